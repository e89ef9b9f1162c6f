package models

// ErrorResponse is the standard error payload
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// MessageResponse is the standard success payload for actions without a body
type MessageResponse struct {
	Message string `json:"message"`
}

// UpdatePartnerRequest is the admin partner update payload
type UpdatePartnerRequest struct {
	PartnerCommissionRate *float64 `json:"partner_commission_rate,omitempty" validate:"omitempty,gte=0,lte=100"`
	IsVerifiedPartner     *bool    `json:"is_verified_partner,omitempty"`
}

// Patch converts the request into a PartnerPatch
func (r UpdatePartnerRequest) Patch() PartnerPatch {
	return PartnerPatch{
		PartnerCommissionRate: r.PartnerCommissionRate,
		IsVerifiedPartner:     r.IsVerifiedPartner,
	}
}

// MarkEarningPaidRequest marks a single earning as paid out
type MarkEarningPaidRequest struct {
	EarningID int `json:"earning_id" validate:"required,gt=0"`
}

// AssignArbitratorRequest assigns an arbitrator to a dispute
type AssignArbitratorRequest struct {
	ArbitratorID int `json:"arbitrator_id" validate:"required,gt=0"`
}

// ResolveDisputeRequest closes a dispute with a result text
type ResolveDisputeRequest struct {
	Result string `json:"result" validate:"required,min=3"`
}

// AdminStats holds the aggregates derived from the cached collections
type AdminStats struct {
	TotalPartners        int     `json:"total_partners"`
	VerifiedPartners     int     `json:"verified_partners"`
	TotalEarnings        float64 `json:"total_earnings"`
	UnpaidEarningsCount  int     `json:"unpaid_earnings_count"`
	UnpaidEarningsAmount float64 `json:"unpaid_earnings_amount"`
	OpenDisputes         int     `json:"open_disputes"`
	ResolvedDisputes     int     `json:"resolved_disputes"`
	Arbitrators          int     `json:"arbitrators"`
}
