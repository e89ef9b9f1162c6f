package models

import "time"

// Earning categories
const (
	EarningTypeOrderCommission   = "order_commission"
	EarningTypeRegistrationBonus = "registration_bonus"
	EarningTypeBonus             = "bonus"
)

// Partner represents a referral partner account as served by the marketplace
// backend. Referral counts always satisfy ActiveReferrals <= TotalReferrals.
type Partner struct {
	ID                    int       `json:"id"`
	Username              string    `json:"username"`
	Email                 string    `json:"email"`
	Name                  string    `json:"name"`
	ReferralCode          string    `json:"referral_code"`
	PartnerCommissionRate float64   `json:"partner_commission_rate"`
	TotalReferrals        int       `json:"total_referrals"`
	ActiveReferrals       int       `json:"active_referrals"`
	TotalEarnings         float64   `json:"total_earnings"`
	IsVerifiedPartner     bool      `json:"is_verified_partner"`
	DateJoined            time.Time `json:"date_joined"`
}

// PartnerPatch is a partial partner update. Nil fields are left untouched,
// both by the upstream PATCH endpoint and by the fallback override merge.
type PartnerPatch struct {
	PartnerCommissionRate *float64 `json:"partner_commission_rate,omitempty"`
	IsVerifiedPartner     *bool    `json:"is_verified_partner,omitempty"`
}

// IsEmpty reports whether the patch carries no changes
func (p PartnerPatch) IsEmpty() bool {
	return p.PartnerCommissionRate == nil && p.IsVerifiedPartner == nil
}

// Merge overlays the non-nil fields of other on top of p and returns the result
func (p PartnerPatch) Merge(other PartnerPatch) PartnerPatch {
	if other.PartnerCommissionRate != nil {
		p.PartnerCommissionRate = other.PartnerCommissionRate
	}
	if other.IsVerifiedPartner != nil {
		p.IsVerifiedPartner = other.IsVerifiedPartner
	}
	return p
}

// ApplyTo returns a copy of the partner with the patch applied
func (p PartnerPatch) ApplyTo(partner Partner) Partner {
	if p.PartnerCommissionRate != nil {
		partner.PartnerCommissionRate = *p.PartnerCommissionRate
	}
	if p.IsVerifiedPartner != nil {
		partner.IsVerifiedPartner = *p.IsVerifiedPartner
	}
	return partner
}

// Earning represents a single commission record for a partner. The owning
// partner is referenced by display name, matching the upstream wire format.
type Earning struct {
	ID           int       `json:"id"`
	PartnerName  string    `json:"partner_name"`
	ReferredUser string    `json:"referred_user"`
	Amount       float64   `json:"amount"`
	EarningType  string    `json:"earning_type"`
	IsPaid       bool      `json:"is_paid"`
	CreatedAt    time.Time `json:"created_at"`
}
