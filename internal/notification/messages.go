package notification

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/fitclub/billing/internal/domain/membership"
	"github.com/fitclub/billing/internal/domain/payment"
	"github.com/fitclub/billing/internal/domain/plan"
	"github.com/fitclub/billing/internal/domain/user"
	"github.com/fitclub/billing/internal/types"
)

// Message is a lifecycle announcement. Lines are plain text and escaped when rendered.
type Message struct {
	Title string
	Lines []string
}

// HTML renders the message for chats using the HTML parse mode
func (m Message) HTML() string {
	var b strings.Builder
	b.WriteString("<b>")
	b.WriteString(html.EscapeString(m.Title))
	b.WriteString("</b>")
	for _, line := range m.Lines {
		b.WriteString("\n")
		b.WriteString(html.EscapeString(line))
	}
	return b.String()
}

func (m Message) Text() string {
	return strings.Join(append([]string{m.Title}, m.Lines...), "\n")
}

func NewMembershipMessage(m *membership.Membership, p *plan.Plan, u *user.User) Message {
	return Message{
		Title: "New Membership Created",
		Lines: []string{
			memberLine(u),
			emailLine(u),
			fmt.Sprintf("Plan: %s (%s)", planName(p), planTier(p)),
			fmt.Sprintf("Price: $%s", m.PriceAtPurchase.StringFixed(2)),
			fmt.Sprintf("Start Date: %s", types.FormatDate(m.StartDate)),
			fmt.Sprintf("End Date: %s", types.FormatDate(m.EndDate)),
			fmt.Sprintf("Auto-Renew: %s", yesNo(m.AutoRenew)),
		},
	}
}

func FrozenMessage(m *membership.Membership, p *plan.Plan, u *user.User) Message {
	return Message{
		Title: "❄️ Membership Frozen",
		Lines: []string{
			memberLine(u),
			emailLine(u),
			fmt.Sprintf("Plan: %s", planName(p)),
			fmt.Sprintf("Frozen From: %s", formatOptionalDate(m.FrozenFrom)),
			fmt.Sprintf("Frozen To: %s", formatOptionalDate(m.FrozenTo)),
			fmt.Sprintf("New End Date: %s", types.FormatDate(m.EndDate)),
		},
	}
}

func ExpiredMessage(m *membership.Membership, p *plan.Plan, u *user.User) Message {
	return Message{
		Title: "Membership Expired",
		Lines: []string{
			memberLine(u),
			emailLine(u),
			fmt.Sprintf("Plan: %s", planName(p)),
			fmt.Sprintf("End Date: %s", types.FormatDate(m.EndDate)),
		},
	}
}

func ReminderMessage(m *membership.Membership, p *plan.Plan, u *user.User, daysBefore int) Message {
	return Message{
		Title: "⏰ Membership Expiring Soon",
		Lines: []string{
			memberLine(u),
			emailLine(u),
			fmt.Sprintf("Plan: %s", planName(p)),
			fmt.Sprintf("Expires in: %d day(s)", daysBefore),
			fmt.Sprintf("End Date: %s", types.FormatDate(m.EndDate)),
		},
	}
}

func AutoRenewMessage(m *membership.Membership, p *plan.Plan, u *user.User) Message {
	return Message{
		Title: "Auto-Renewal Successful",
		Lines: []string{
			memberLine(u),
			emailLine(u),
			fmt.Sprintf("Plan: %s", planName(p)),
			fmt.Sprintf("New Start Date: %s", types.FormatDate(m.StartDate)),
			fmt.Sprintf("New End Date: %s", types.FormatDate(m.EndDate)),
		},
	}
}

func PaymentSuccessMessage(pay *payment.Payment, p *plan.Plan, u *user.User) Message {
	lines := []string{
		fmt.Sprintf("Payment ID: %s", pay.ID),
		fmt.Sprintf("Type: %s", paymentTypeDisplay(pay.Type)),
		fmt.Sprintf("Amount: $%s", pay.MoneyToPay.StringFixed(2)),
		memberLine(u),
		emailLine(u),
		fmt.Sprintf("Plan: %s", planName(p)),
	}
	if pay.SessionID != nil {
		lines = append(lines, fmt.Sprintf("Session ID: %s", *pay.SessionID))
	}
	return Message{Title: "Payment Successful", Lines: lines}
}

func memberLine(u *user.User) string {
	if u == nil {
		return "Member: unknown"
	}
	return fmt.Sprintf("Member: %s", u.FullName())
}

func emailLine(u *user.User) string {
	if u == nil || u.Email == "" {
		return "Email: -"
	}
	return fmt.Sprintf("Email: %s", u.Email)
}

func planName(p *plan.Plan) string {
	if p == nil {
		return "unknown"
	}
	return p.Name
}

func planTier(p *plan.Plan) string {
	if p == nil {
		return "-"
	}
	return string(p.Tier)
}

func formatOptionalDate(d *time.Time) string {
	if d == nil {
		return "-"
	}
	return types.FormatDate(*d)
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func paymentTypeDisplay(t types.PaymentType) string {
	switch t {
	case types.PaymentTypeMembershipPurchase:
		return "Membership purchase"
	case types.PaymentTypeUpgradeFee:
		return "Upgrade fee"
	}
	return string(t)
}
