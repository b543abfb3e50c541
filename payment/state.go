package payment

// State of a user's payment control.
type State int

const (
	Idle State = iota
	Validating
	AwaitingGateway
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case AwaitingGateway:
		return "awaiting_gateway"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Processing is the single flag the storefront sees while an attempt runs.
func (s State) Processing() bool {
	return s == Validating || s == AwaitingGateway
}
