package engine

import (
	"context"
	"errors"
	"fmt"
)

// AvailabilityState reports whether the local generation capability is usable.
type AvailabilityState int

const (
	StateUnknown AvailabilityState = iota
	StateAvailable
	StateUnavailable
)

// Reason classifies why the capability is unavailable.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonDeviceIneligible
	ReasonDisabled
	ReasonNotReady
	ReasonOther
)

func (r Reason) String() string {
	switch r {
	case ReasonDeviceIneligible:
		return "device-ineligible"
	case ReasonDisabled:
		return "capability-disabled"
	case ReasonNotReady:
		return "not-ready"
	case ReasonOther:
		return "other"
	default:
		return "none"
	}
}

// Availability is the result of a capability probe.
type Availability struct {
	State  AvailabilityState
	Reason Reason
}

func Available() Availability {
	return Availability{State: StateAvailable}
}

func Unavailable(r Reason) Availability {
	return Availability{State: StateUnavailable, Reason: r}
}

func Unknown() Availability {
	return Availability{State: StateUnknown}
}

func (a Availability) String() string {
	switch a.State {
	case StateAvailable:
		return "available"
	case StateUnavailable:
		return fmt.Sprintf("unavailable (%s)", a.Reason)
	default:
		return "unknown"
	}
}

var (
	// ErrContextExceeded is reported when a prompt does not fit the engine's context window.
	ErrContextExceeded = errors.New("prompt exceeds the engine context window")
	// ErrEmptyInstructions is reported when a session is requested without a role.
	ErrEmptyInstructions = errors.New("session instructions must not be empty")
)

// Response is the engine's answer to a single prompt. Structured is true when the
// engine honored the requested output schema and FormalityScore is meaningful.
type Response struct {
	Text           string
	FormalityScore int
	Structured     bool
}

// Engine is the local text-generation capability.
type Engine interface {
	Probe(ctx context.Context) Availability
	NewSession(ctx context.Context, instructions string) (Session, error)
}

// Session is a stateful handle bound to one fixed instruction set.
type Session interface {
	Respond(ctx context.Context, prompt string) (Response, error)
	Close() error
}
