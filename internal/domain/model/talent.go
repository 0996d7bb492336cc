package model

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// Approval is a talent's vetting state.
type Approval string

// Approval states.
const (
	ApprovalPending  Approval = "pending"
	ApprovalApproved Approval = "approved"
	ApprovalRejected Approval = "rejected"
)

// Talent is an independent service provider.
type Talent struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Address      string           `json:"address"`
	City         string           `json:"city"`
	Capabilities []string         `json:"capabilities"`
	Rate         *decimal.Decimal `json:"rate,omitempty"`
	Experience   string           `json:"experience,omitempty"`
	Approval     Approval         `json:"approval"`
	PhotoURL     string           `json:"photo_url,omitempty"`
}

// Eligible reports whether the talent may be suggested or assigned.
func (t Talent) Eligible() bool {
	return t.Approval == ApprovalApproved || t.Approval == ApprovalPending
}

// Offers reports whether the capability list contains service (exact match).
func (t Talent) Offers(service string) bool {
	return slices.Contains(t.Capabilities, service)
}

// RateString renders the rate with two decimals, or "" when unset.
func (t Talent) RateString() string {
	if t.Rate == nil {
		return ""
	}
	return t.Rate.StringFixed(2)
}

// TalentFilter narrows talent reads. Empty fields match everything.
type TalentFilter struct {
	IDs        []string
	Capability string
	Approvals  []Approval
}

// Match reports whether t passes the filter.
func (f TalentFilter) Match(t Talent) bool {
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, t.ID) {
		return false
	}
	if f.Capability != "" && !t.Offers(f.Capability) {
		return false
	}
	if len(f.Approvals) > 0 && !slices.Contains(f.Approvals, t.Approval) {
		return false
	}
	return true
}

// SuggestedTalent is a scored candidate for a booking. It is never persisted.
type SuggestedTalent struct {
	TalentID     string   `json:"talent_id"`
	Name         string   `json:"name"`
	Address      string   `json:"address"`
	City         string   `json:"city"`
	Capabilities []string `json:"capabilities"`
	Rate         string   `json:"rate,omitempty"`
	Experience   string   `json:"experience,omitempty"`
	Approval     Approval `json:"approval"`
	MatchScore   int      `json:"match_score"`
	Bucket       string   `json:"bucket"`
	Label        string   `json:"label"`
}

// Customer is the read-only view of a customer used by this service.
type Customer struct {
	ID         string `json:"id"`
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name,omitempty"`
	LastName   string `json:"last_name"`
	City       string `json:"city"`
}

// DisplayName joins the non-empty name parts with single spaces.
func (c Customer) DisplayName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{c.FirstName, c.MiddleName, c.LastName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
