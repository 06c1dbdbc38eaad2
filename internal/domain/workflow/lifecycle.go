package workflow

import (
	"fmt"
	"sort"
)

// Transition is one edge of a lifecycle: Trigger moves a request From one status To another
type Transition struct {
	From    State
	Trigger Trigger
	To      State
}

// Lifecycle is an immutable transition table
type Lifecycle struct {
	edges map[State]map[Trigger]State
}

// NewLifecycle validates transitions and indexes them by source state.
// Unknown states, edges out of terminal states and ambiguous (From, Trigger) pairs are rejected.
func NewLifecycle(transitions ...Transition) (*Lifecycle, error) {
	l := &Lifecycle{edges: make(map[State]map[Trigger]State)}
	for _, t := range transitions {
		switch {
		case !t.From.IsValid():
			return nil, fmt.Errorf("unknown source state %q", t.From)
		case !t.To.IsValid():
			return nil, fmt.Errorf("unknown target state %q", t.To)
		case t.From.IsTerminal():
			return nil, fmt.Errorf("terminal state %s cannot have outgoing transitions", t.From)
		case t.Trigger == "":
			return nil, fmt.Errorf("transition from %s has no trigger", t.From)
		}

		out, ok := l.edges[t.From]
		if !ok {
			out = make(map[Trigger]State)
			l.edges[t.From] = out
		}
		if prev, dup := out[t.Trigger]; dup {
			return nil, fmt.Errorf("%s from %s already leads to %s", t.Trigger, t.From, prev)
		}
		out[t.Trigger] = t.To
	}
	return l, nil
}

// MustLifecycle is NewLifecycle for package-level tables
func MustLifecycle(transitions ...Transition) *Lifecycle {
	l, err := NewLifecycle(transitions...)
	if err != nil {
		panic(err)
	}
	return l
}

// Next returns the state trigger leads to from current
func (l *Lifecycle) Next(current State, trigger Trigger) (State, error) {
	if !current.IsValid() {
		return current, fmt.Errorf("%w: unknown state %q", ErrInvalidTransition, current)
	}
	if current.IsTerminal() {
		return current, fmt.Errorf("%w: %w: cannot %s from %s", ErrInvalidTransition, ErrTerminalState, trigger, current)
	}
	next, ok := l.edges[current][trigger]
	if !ok {
		return current, fmt.Errorf("%w: cannot %s from %s", ErrInvalidTransition, trigger, current)
	}
	return next, nil
}

// Permitted lists the triggers available from current, sorted
func (l *Lifecycle) Permitted(current State) []Trigger {
	triggers := make([]Trigger, 0, len(l.edges[current]))
	for t := range l.edges[current] {
		triggers = append(triggers, t)
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })
	return triggers
}

// TravelRequest is the approval lifecycle. pm_rejected and operations_completed are terminal.
var TravelRequest = MustLifecycle(
	Transition{From: StateSubmitted, Trigger: TriggerApprove, To: StatePMApproved},
	Transition{From: StateSubmitted, Trigger: TriggerReject, To: StatePMRejected},
	Transition{From: StatePMApproved, Trigger: TriggerComplete, To: StateOperationsCompleted},
)
