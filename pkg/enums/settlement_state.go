package enums

import "fmt"

// SettlementState is the per-order settlement state machine:
// unsettled -> validating -> {settled | validation_failed | partially_settled}.
type SettlementState string

const (
	SettlementStateUnsettled        SettlementState = "unsettled"
	SettlementStateValidating       SettlementState = "validating"
	SettlementStateSettled          SettlementState = "settled"
	SettlementStateValidationFailed SettlementState = "validation_failed"
	SettlementStatePartiallySettled SettlementState = "partially_settled"
)

var validSettlementStates = []SettlementState{
	SettlementStateUnsettled,
	SettlementStateValidating,
	SettlementStateSettled,
	SettlementStateValidationFailed,
	SettlementStatePartiallySettled,
}

// ClaimableSettlementStates may enter validating.
var ClaimableSettlementStates = []SettlementState{
	SettlementStateUnsettled,
	SettlementStateValidationFailed,
}

func (s SettlementState) IsValid() bool {
	for _, candidate := range validSettlementStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further settlement attempt is allowed.
func (s SettlementState) IsTerminal() bool {
	return s == SettlementStateSettled || s == SettlementStatePartiallySettled
}

func ParseSettlementState(value string) (SettlementState, error) {
	for _, candidate := range validSettlementStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid settlement state %q", value)
}
