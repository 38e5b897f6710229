package domain

// SessionState is the lifecycle of a viewer session.
// CONNECTING -> REPLAYING -> LIVE -> DISCONNECTED, DISCONNECTED being terminal.
type SessionState int

const (
	Connecting SessionState = iota
	Replaying
	Live
	Disconnected
)

func (s SessionState) String() string {
	switch s {
	case Connecting:
		return "CONNECTING"
	case Replaying:
		return "REPLAYING"
	case Live:
		return "LIVE"
	case Disconnected:
		return "DISCONNECTED"
	default:
		return "UNKNOWN"
	}
}

// Subscription is the hub-side view of a connected viewer.
type Subscription struct {
	ViewerID        string
	SessionID       string
	LastDeliveredID MessageID
}
