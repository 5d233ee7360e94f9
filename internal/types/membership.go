package types

import (
	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/samber/lo"
)

// PlanTier orders plans from cheapest to most complete
type PlanTier string

const (
	PlanTierBasic    PlanTier = "BASIC"
	PlanTierStandard PlanTier = "STANDARD"
	PlanTierPremium  PlanTier = "PREMIUM"
)

var planTierRank = map[PlanTier]int{
	PlanTierBasic:    1,
	PlanTierStandard: 2,
	PlanTierPremium:  3,
}

// Rank returns the position of the tier in BASIC < STANDARD < PREMIUM, 0 when unknown
func (t PlanTier) Rank() int {
	return planTierRank[t]
}

func (t PlanTier) Validate() error {
	if _, ok := planTierRank[t]; !ok {
		return ierr.NewErrorf("invalid plan tier %q", t).
			WithHint("Plan tier must be one of BASIC, STANDARD, PREMIUM").
			WithReportableDetails(map[string]any{"tier": t}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

type MembershipStatus string

const (
	MembershipStatusActive  MembershipStatus = "ACTIVE"
	MembershipStatusFrozen  MembershipStatus = "FROZEN"
	MembershipStatusExpired MembershipStatus = "EXPIRED"
)

// LiveMembershipStatuses are the statuses limited to one membership per user
var LiveMembershipStatuses = []MembershipStatus{
	MembershipStatusActive,
	MembershipStatusFrozen,
}

// IsLive reports whether the membership counts against the one-per-user limit
func (s MembershipStatus) IsLive() bool {
	return lo.Contains(LiveMembershipStatuses, s)
}

func (s MembershipStatus) Validate() error {
	allowed := []MembershipStatus{MembershipStatusActive, MembershipStatusFrozen, MembershipStatusExpired}
	if !lo.Contains(allowed, s) {
		return ierr.NewErrorf("invalid membership status %q", s).
			WithHint("Invalid membership status").
			Mark(ierr.ErrValidation)
	}
	return nil
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRejected PaymentStatus = "REJECTED"
	PaymentStatusExpired  PaymentStatus = "EXPIRED"
)

// IsFinal reports whether the payment can never change status again
func (s PaymentStatus) IsFinal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusRejected || s == PaymentStatusExpired
}

type PaymentType string

const (
	PaymentTypeMembershipPurchase PaymentType = "MEMBERSHIP_PURCHASE"
	PaymentTypeUpgradeFee         PaymentType = "UPGRADE_FEE"
)

func (t PaymentType) Validate() error {
	if t != PaymentTypeMembershipPurchase && t != PaymentTypeUpgradeFee {
		return ierr.NewErrorf("invalid payment type %q", t).
			WithHint("Invalid payment type").
			Mark(ierr.ErrValidation)
	}
	return nil
}
