package models

import "fmt"

type ClaimStatus string

const (
	StatusDraft          ClaimStatus = "draft"
	StatusSubmitted      ClaimStatus = "submitted"
	StatusPendingPayment ClaimStatus = "pending_payment"
	StatusReferredBack   ClaimStatus = "referred_back"
	StatusRejected       ClaimStatus = "rejected"
	StatusDisbursed      ClaimStatus = "disbursed"

	// StatusVerified exists only so rows written by the old portal still scan.
	// No label maps to it and no transition targets it.
	StatusVerified ClaimStatus = "verified"
)

// statusLabels maps the labels the UI sends to canonical states.
var statusLabels = map[string]ClaimStatus{
	"approved":  StatusPendingPayment,
	"more_info": StatusReferredBack,
	"paid":      StatusDisbursed,
	"rejected":  StatusRejected,
}

// transitions lists the allowed target states per source state. Terminal
// states have no entry.
var transitions = map[ClaimStatus][]ClaimStatus{
	StatusDraft:          {StatusSubmitted},
	StatusSubmitted:      {StatusPendingPayment, StatusReferredBack, StatusRejected},
	StatusVerified:       {StatusPendingPayment, StatusReferredBack, StatusRejected},
	StatusPendingPayment: {StatusDisbursed, StatusRejected},
	StatusReferredBack:   {StatusSubmitted},
}

// ParseStatusLabel resolves a caller-supplied label to a canonical state.
// Canonical state names are accepted verbatim; anything else is an error.
func ParseStatusLabel(label string) (ClaimStatus, error) {
	if s, ok := statusLabels[label]; ok {
		return s, nil
	}
	s := ClaimStatus(label)
	if s.Valid() && s != StatusVerified {
		return s, nil
	}
	return "", fmt.Errorf("unknown status label %q", label)
}

func (s ClaimStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusVerified, StatusPendingPayment,
		StatusReferredBack, StatusRejected, StatusDisbursed:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed from s.
func (s ClaimStatus) Terminal() bool {
	return s == StatusRejected || s == StatusDisbursed
}

// CanTransitionTo reports whether the status machine allows moving from s to
// target.
func (s ClaimStatus) CanTransitionTo(target ClaimStatus) bool {
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// Editable reports whether the owner may still modify and resubmit the claim.
func (s ClaimStatus) Editable() bool {
	return s == StatusDraft || s == StatusReferredBack
}
