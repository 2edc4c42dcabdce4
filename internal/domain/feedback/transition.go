package feedback

import "fmt"

// Action is a review decision applied to a feedback item.
type Action string

const (
	ActionLLMApprove   Action = "LLM_APPROVE"
	ActionLLMReject    Action = "LLM_REJECT"
	ActionHumanApprove Action = "HUMAN_APPROVE"
	ActionHumanReject  Action = "HUMAN_REJECT"

	// ActionMerge re-triggers the merge of an item resting in a mergeable
	// state. It is not accepted as a review action.
	ActionMerge Action = "MERGE"
)

// ReviewActions lists the actions a reviewer may submit.
var ReviewActions = []Action{ActionLLMApprove, ActionLLMReject, ActionHumanApprove, ActionHumanReject}

// IsReview reports whether a is one of the four reviewer actions.
func (a Action) IsReview() bool {
	for _, known := range ReviewActions {
		if a == known {
			return true
		}
	}
	return false
}

// IsRejection reports whether a rejects the item.
func (a Action) IsRejection() bool {
	return a == ActionLLMReject || a == ActionHumanReject
}

// ParseAction resolves the review action named by s.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.IsReview() {
		return "", fmt.Errorf("unknown action %q", s)
	}
	return a, nil
}

// outcome picks the target status for a risk level; ok=false means the
// action is not allowed at that risk level.
type outcome func(risk RiskLevel) (to Status, ok bool)

func always(to Status) outcome {
	return func(RiskLevel) (Status, bool) { return to, true }
}

func humanReviewed(to Status) outcome {
	return func(risk RiskLevel) (Status, bool) { return to, risk.RequiresHumanApproval() }
}

func lowRiskOnly(to Status) outcome {
	return func(risk RiskLevel) (Status, bool) { return to, risk == RiskLow }
}

var transitions = map[Status]map[Action]outcome{
	StatusPending: {
		ActionLLMApprove: func(risk RiskLevel) (Status, bool) {
			if risk == RiskLow {
				return StatusMerged, true
			}
			return StatusLLMApproved, true
		},
		ActionLLMReject: always(StatusLLMRejected),
	},
	StatusLLMApproved: {
		ActionHumanApprove: humanReviewed(StatusMerged),
		ActionHumanReject:  always(StatusHumanRejected),
		ActionMerge:        lowRiskOnly(StatusMerged),
	},
	StatusHumanApproved: {
		ActionMerge: always(StatusMerged),
	},
}

// NextState returns the status reached by applying action to an item in
// status from with the given risk level, or an *InvalidTransitionError.
func NextState(from Status, risk RiskLevel, action Action) (Status, error) {
	if from.IsTerminal() {
		return from, &InvalidTransitionError{From: from, RiskLevel: risk, Action: action, Reason: "status is terminal"}
	}
	rule, ok := transitions[from][action]
	if !ok {
		return from, &InvalidTransitionError{From: from, RiskLevel: risk, Action: action}
	}
	to, ok := rule(risk)
	if !ok {
		return from, &InvalidTransitionError{
			From:      from,
			RiskLevel: risk,
			Action:    action,
			Reason:    fmt.Sprintf("not allowed for %s risk", risk),
		}
	}
	return to, nil
}
