package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatusLabel(t *testing.T) {
	cases := []struct {
		label string
		want  ClaimStatus
	}{
		{"approved", StatusPendingPayment},
		{"more_info", StatusReferredBack},
		{"paid", StatusDisbursed},
		{"rejected", StatusRejected},
		// canonical names pass through
		{"pending_payment", StatusPendingPayment},
		{"referred_back", StatusReferredBack},
		{"disbursed", StatusDisbursed},
		{"submitted", StatusSubmitted},
		{"draft", StatusDraft},
	}

	for _, tc := range cases {
		t.Run(tc.label, func(t *testing.T) {
			got, err := ParseStatusLabel(tc.label)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseStatusLabelRejectsUnknown(t *testing.T) {
	for _, label := range []string{"", "escalated", "Approved", "clarification needed", "verified"} {
		t.Run(label, func(t *testing.T) {
			_, err := ParseStatusLabel(label)
			assert.Error(t, err)
		})
	}
}

func TestTerminalStates(t *testing.T) {
	assert.True(t, StatusRejected.Terminal())
	assert.True(t, StatusDisbursed.Terminal())
	assert.False(t, StatusSubmitted.Terminal())
	assert.False(t, StatusPendingPayment.Terminal())
	assert.False(t, StatusReferredBack.Terminal())
	assert.False(t, StatusDraft.Terminal())
}

func TestCanTransitionTo(t *testing.T) {
	allowed := []struct{ from, to ClaimStatus }{
		{StatusDraft, StatusSubmitted},
		{StatusSubmitted, StatusPendingPayment},
		{StatusSubmitted, StatusReferredBack},
		{StatusSubmitted, StatusRejected},
		{StatusVerified, StatusPendingPayment},
		{StatusPendingPayment, StatusDisbursed},
		{StatusPendingPayment, StatusRejected},
		{StatusReferredBack, StatusSubmitted},
	}
	for _, tc := range allowed {
		assert.True(t, tc.from.CanTransitionTo(tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	denied := []struct{ from, to ClaimStatus }{
		{StatusDraft, StatusPendingPayment},
		{StatusSubmitted, StatusDisbursed},
		{StatusSubmitted, StatusVerified},
		{StatusRejected, StatusSubmitted},
		{StatusDisbursed, StatusSubmitted},
		{StatusReferredBack, StatusPendingPayment},
	}
	for _, tc := range denied {
		assert.False(t, tc.from.CanTransitionTo(tc.to), "%s -> %s should be denied", tc.from, tc.to)
	}
}

func TestEditable(t *testing.T) {
	assert.True(t, StatusDraft.Editable())
	assert.True(t, StatusReferredBack.Editable())
	assert.False(t, StatusSubmitted.Editable())
	assert.False(t, StatusRejected.Editable())
	assert.False(t, StatusDisbursed.Editable())
}
