package client

// Status is the single connection status a client holds at any instant.
type Status uint8

const (
	StatusConnecting Status = iota
	StatusConnected
	StatusReconnecting
	StatusPolling
	StatusDisconnected
)

var statusNames = [...]string{
	StatusConnecting:   "connecting",
	StatusConnected:    "connected",
	StatusReconnecting: "reconnecting",
	StatusPolling:      "polling",
	StatusDisconnected: "disconnected",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// Live reports whether events arrive over the live channel.
func (s Status) Live() bool {
	return s == StatusConnected
}

// trigger is an input to the state machine.
type trigger uint8

const (
	triggerHandshakeOK trigger = iota
	triggerHandshakeFailed
	triggerChannelDropped
	triggerPollingStarted
	triggerRetriesExhausted
	triggerIdentityInvalid
	triggerTeardown
)

var triggerNames = [...]string{
	triggerHandshakeOK:      "handshake_ok",
	triggerHandshakeFailed:  "handshake_failed",
	triggerChannelDropped:   "channel_dropped",
	triggerPollingStarted:   "polling_started",
	triggerRetriesExhausted: "retries_exhausted",
	triggerIdentityInvalid:  "identity_invalid",
	triggerTeardown:         "teardown",
}

func (t trigger) String() string {
	if int(t) < len(triggerNames) {
		return triggerNames[t]
	}
	return "unknown"
}

var allStatuses = []Status{StatusConnecting, StatusConnected, StatusReconnecting, StatusPolling, StatusDisconnected}

var allTriggers = []trigger{
	triggerHandshakeOK,
	triggerHandshakeFailed,
	triggerChannelDropped,
	triggerPollingStarted,
	triggerRetriesExhausted,
	triggerIdentityInvalid,
	triggerTeardown,
}

// next is the transition function. It is total: every (status, trigger)
// pair yields a defined status, and disconnected absorbs everything.
func next(s Status, t trigger) Status {
	if s == StatusDisconnected || t == triggerIdentityInvalid || t == triggerTeardown {
		return StatusDisconnected
	}

	switch t {
	case triggerHandshakeOK:
		return StatusConnected
	case triggerChannelDropped:
		if s == StatusPolling {
			return StatusPolling
		}
		return StatusReconnecting
	case triggerPollingStarted, triggerRetriesExhausted:
		// Live data supersedes polling.
		if s == StatusConnected {
			return StatusConnected
		}
		return StatusPolling
	}

	// handshakeFailed keeps the current status; retry policy decides what
	// happens next.
	return s
}
