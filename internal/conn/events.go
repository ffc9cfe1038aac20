package conn

// State is the connectivity state of the daemon.
type State int

const (
	// Disconnected is the initial state, before the link is started.
	Disconnected State = iota

	// Connecting means a link (re-)establishment is in flight.
	Connecting

	// LinkUp means the wireless link has a carrier but no session.
	LinkUp

	// SessionUp means the broker session is established. Implies the
	// link is up.
	SessionUp

	// RetryFailed means link retries are exhausted. The watchdog can
	// still move the machine out of this state when the carrier
	// returns on its own.
	RetryFailed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case LinkUp:
		return "link_up"
	case SessionUp:
		return "session_up"
	case RetryFailed:
		return "retry_failed"
	default:
		return "unknown"
	}
}

// EventKind discriminates dispatch events.
type EventKind int

const (
	// LinkStarted kicks off the first link establishment.
	LinkStarted EventKind = iota

	// LinkLost reports a carrier loss.
	LinkLost

	// LinkEstablished reports a carrier.
	LinkEstablished

	// SessionEstablished reports a broker session (initial or
	// reconnect).
	SessionEstablished

	// SessionLost reports a broker session loss.
	SessionLost

	// Message carries one incoming publication.
	Message
)

func (k EventKind) String() string {
	switch k {
	case LinkStarted:
		return "link_started"
	case LinkLost:
		return "link_lost"
	case LinkEstablished:
		return "link_established"
	case SessionEstablished:
		return "session_established"
	case SessionLost:
		return "session_lost"
	case Message:
		return "message"
	default:
		return "unknown"
	}
}

// Event is one item on the dispatch channel. Topic and Payload are set
// for Message events; Err carries the cause for loss events when known.
type Event struct {
	Kind    EventKind
	Topic   string
	Payload []byte
	Err     error
}
