package workflow

// Trigger represents a decision that moves a request to its next status
type Trigger string

const (
	TriggerApprove  Trigger = "approve"
	TriggerReject   Trigger = "reject"
	TriggerComplete Trigger = "complete"
)

func (t Trigger) String() string {
	return string(t)
}
