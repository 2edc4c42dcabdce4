package feedback

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// expected lists every legal (status, risk, action) triple for the review
// actions. Anything missing must be rejected.
var expected = map[string]Status{
	key(StatusPending, RiskLow, ActionLLMApprove):    StatusMerged,
	key(StatusPending, RiskMedium, ActionLLMApprove): StatusLLMApproved,
	key(StatusPending, RiskHigh, ActionLLMApprove):   StatusLLMApproved,

	key(StatusPending, RiskLow, ActionLLMReject):    StatusLLMRejected,
	key(StatusPending, RiskMedium, ActionLLMReject): StatusLLMRejected,
	key(StatusPending, RiskHigh, ActionLLMReject):   StatusLLMRejected,

	key(StatusLLMApproved, RiskMedium, ActionHumanApprove): StatusMerged,
	key(StatusLLMApproved, RiskHigh, ActionHumanApprove):   StatusMerged,

	key(StatusLLMApproved, RiskLow, ActionHumanReject):    StatusHumanRejected,
	key(StatusLLMApproved, RiskMedium, ActionHumanReject): StatusHumanRejected,
	key(StatusLLMApproved, RiskHigh, ActionHumanReject):   StatusHumanRejected,
}

func key(s Status, r RiskLevel, a Action) string {
	return fmt.Sprintf("%s/%s/%s", s, r, a)
}

func TestNextStateExhaustive(t *testing.T) {
	for _, s := range Statuses {
		for _, r := range RiskLevels {
			for _, a := range ReviewActions {
				k := key(s, r, a)
				t.Run(k, func(t *testing.T) {
					got, err := NextState(s, r, a)
					want, legal := expected[k]
					if legal {
						require.NoError(t, err)
						assert.Equal(t, want, got)
						return
					}
					var te *InvalidTransitionError
					require.True(t, errors.As(err, &te), "expected InvalidTransitionError, got %v", err)
					assert.Equal(t, s, te.From)
					assert.Equal(t, a, te.Action)
					assert.Equal(t, s, got)
				})
			}
		}
	}
}

func TestNextStateMerge(t *testing.T) {
	tests := []struct {
		from  Status
		risk  RiskLevel
		legal bool
	}{
		{StatusHumanApproved, RiskLow, true},
		{StatusHumanApproved, RiskMedium, true},
		{StatusHumanApproved, RiskHigh, true},
		{StatusLLMApproved, RiskLow, true},
		{StatusLLMApproved, RiskMedium, false},
		{StatusLLMApproved, RiskHigh, false},
		{StatusPending, RiskLow, false},
		{StatusMerged, RiskLow, false},
		{StatusLLMRejected, RiskLow, false},
		{StatusHumanRejected, RiskHigh, false},
	}
	for _, tt := range tests {
		t.Run(key(tt.from, tt.risk, ActionMerge), func(t *testing.T) {
			got, err := NextState(tt.from, tt.risk, ActionMerge)
			if tt.legal {
				require.NoError(t, err)
				assert.Equal(t, StatusMerged, got)
				return
			}
			var te *InvalidTransitionError
			assert.True(t, errors.As(err, &te))
		})
	}
}

func TestTerminalStatesRejectEverything(t *testing.T) {
	for _, s := range []Status{StatusLLMRejected, StatusHumanRejected, StatusMerged} {
		require.True(t, s.IsTerminal())
		for _, a := range append(ReviewActions, ActionMerge) {
			_, err := NextState(s, RiskHigh, a)
			require.Error(t, err, "%s from %s", a, s)
		}
	}
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("HUMAN_REJECT")
	require.NoError(t, err)
	assert.Equal(t, ActionHumanReject, a)
	assert.True(t, a.IsRejection())

	_, err = ParseAction("MERGE")
	assert.Error(t, err)
	_, err = ParseAction("approve")
	assert.Error(t, err)
}
