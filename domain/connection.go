package domain

// ConnectionState only moves forward:
// CONNECTING -> AUTHENTICATED -> JOINED -> CLOSED, or CONNECTING -> CLOSED.
type ConnectionState int

const (
	Connecting ConnectionState = iota
	Authenticated
	Joined
	Closed
)

func (s ConnectionState) String() string {
	switch s {
	case Connecting:
		return "CONNECTING"
	case Authenticated:
		return "AUTHENTICATED"
	case Joined:
		return "JOINED"
	case Closed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// CanMoveTo reports whether next is a legal transition from s.
func (s ConnectionState) CanMoveTo(next ConnectionState) bool {
	switch s {
	case Connecting:
		return next == Authenticated || next == Closed
	case Authenticated:
		return next == Joined || next == Closed
	case Joined:
		return next == Closed
	default:
		return false
	}
}
