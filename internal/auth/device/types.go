package device

import (
	"fmt"
	"time"
)

// DefaultInterval is used when the provider does not send a polling interval.
const DefaultInterval = 5 * time.Second

// SlowDownIncrement is added to the interval on every slow_down response (RFC 8628 §3.5).
const SlowDownIncrement = 5 * time.Second

// GrantType is the token grant used while polling.
const GrantType = "urn:ietf:params:oauth:grant-type:device_code"

// Session is the in-memory result of a device authorization request.
// It only lives for the duration of one login and is never persisted.
type Session struct {
	DeviceCode              string
	UserCode                string
	VerificationURI         string
	VerificationURIComplete string
	ExpiresIn               time.Duration
	ExpiresAt               time.Time
	Interval                time.Duration
}

// State is a step of the polling state machine.
type State int

const (
	StatePending State = iota
	StateSlowed
	StateSucceeded
	StateDenied
	StateExpired
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateSlowed:
		return "SLOWED"
	case StateSucceeded:
		return "SUCCEEDED"
	case StateDenied:
		return "DENIED"
	case StateExpired:
		return "EXPIRED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether polling stops in this state.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateDenied || s == StateExpired
}

// Transition is delivered to an Observer after every poll attempt.
type Transition struct {
	From     State
	To       State
	Attempt  int
	Interval time.Duration
}

// Observer receives polling transitions. It runs on the polling goroutine
// and must not block.
type Observer func(Transition)
