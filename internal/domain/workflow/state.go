package workflow

// State represents a travel request status in the approval lifecycle
type State string

const (
	StateSubmitted           State = "submitted"
	StatePMApproved          State = "pm_approved"
	StatePMRejected          State = "pm_rejected"
	StateOperationsCompleted State = "operations_completed"
)

var validStates = map[State]bool{
	StateSubmitted:           true,
	StatePMApproved:          true,
	StatePMRejected:          true,
	StateOperationsCompleted: true,
}

var terminalStates = map[State]bool{
	StatePMRejected:          true,
	StateOperationsCompleted: true,
}

// IsTerminal returns true if no further transitions are allowed from the state
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is one of the lifecycle statuses
func (s State) IsValid() bool {
	return validStates[s]
}
