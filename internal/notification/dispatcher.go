package notification

import (
	"context"

	"github.com/fitclub/billing/internal/domain/user"
	"github.com/fitclub/billing/internal/email"
	"github.com/fitclub/billing/internal/integration/telegram"
	"github.com/fitclub/billing/internal/logger"
	"github.com/fitclub/billing/internal/metrics"
)

const (
	ChannelChat  = "telegram"
	ChannelEmail = "email"
)

// Dispatcher announces lifecycle and payment events. Delivery is best effort:
// failures are logged and never returned to the caller.
type Dispatcher interface {
	// Notify posts to the operations chat
	Notify(ctx context.Context, msg Message)
	// NotifyMember e-mails the member when member e-mail is enabled
	NotifyMember(ctx context.Context, u *user.User, msg Message)
}

// Channel is the chat delivery used by the dispatcher
type Channel interface {
	IsEnabled() bool
	SendMessage(ctx context.Context, text string) error
}

// MemberMailer is the member e-mail delivery used by the dispatcher
type MemberMailer interface {
	IsEnabled() bool
	SendEmailWithTemplate(ctx context.Context, req email.SendEmailWithTemplateRequest) (*email.SendEmailWithTemplateResponse, error)
}

var (
	_ Channel      = (telegram.Client)(nil)
	_ MemberMailer = (*email.Email)(nil)
)

type dispatcher struct {
	channel Channel
	mailer  MemberMailer
	metrics metrics.BillingMetrics
	logger  *logger.Logger
}

func NewDispatcher(channel Channel, mailer MemberMailer, m metrics.BillingMetrics, log *logger.Logger) Dispatcher {
	return &dispatcher{
		channel: channel,
		mailer:  mailer,
		metrics: m,
		logger:  log,
	}
}

func (d *dispatcher) Notify(ctx context.Context, msg Message) {
	if d.channel == nil || !d.channel.IsEnabled() {
		d.logger.WithContext(ctx).Debugw("chat notifications disabled, skipping", "title", msg.Title)
		return
	}

	err := d.channel.SendMessage(ctx, msg.HTML())
	d.record(ChannelChat, err)
	if err != nil {
		d.logger.WithContext(ctx).Warnw("failed to send chat notification",
			"title", msg.Title,
			"error", err,
		)
	}
}

func (d *dispatcher) NotifyMember(ctx context.Context, u *user.User, msg Message) {
	if u == nil || u.Email == "" || d.mailer == nil || !d.mailer.IsEnabled() {
		return
	}

	_, err := d.mailer.SendEmailWithTemplate(ctx, email.SendEmailWithTemplateRequest{
		ToAddress:    u.Email,
		Subject:      msg.Title,
		TemplatePath: email.TemplateMemberNotification,
		Data: map[string]interface{}{
			"name":  u.FullName(),
			"title": msg.Title,
			"lines": msg.Lines,
		},
	})
	d.record(ChannelEmail, err)
	if err != nil {
		d.logger.WithContext(ctx).Warnw("failed to send member e-mail",
			"user_id", u.ID,
			"title", msg.Title,
			"error", err,
		)
	}
}

func (d *dispatcher) record(channel string, err error) {
	if d.metrics != nil {
		d.metrics.IncNotification(channel, err == nil)
	}
}
