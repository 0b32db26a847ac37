package core

import (
	"errors"
	"fmt"

	"github.com/toneshift/toneshift/engine"
)

// ErrorKind is the stable classification the presentation layer keys its
// messaging on. Raw engine errors never cross the orchestrator boundary.
type ErrorKind int

const (
	CapabilityUnavailable ErrorKind = iota
	SessionNotInitialized
	InputTooLarge
	GenerationFailed
)

func (k ErrorKind) String() string {
	switch k {
	case CapabilityUnavailable:
		return "capability-unavailable"
	case SessionNotInitialized:
		return "session-not-initialized"
	case InputTooLarge:
		return "input-too-large"
	default:
		return "generation-failed"
	}
}

// ToneError carries an error kind plus a user-presentable message.
type ToneError struct {
	Kind    ErrorKind
	Message string
	err     error
}

func (e *ToneError) Error() string { return e.Message }
func (e *ToneError) Unwrap() error { return e.err }

// Call-rejection outcomes. These are returned directly from Generate and are
// never stored as the current error; the call performs no state transition.
var (
	ErrBusy       = errors.New("a rewrite is already in progress")
	ErrEmptyInput = errors.New("no message to rewrite")
)

// UnavailableError reports a failed availability probe during initialization.
type UnavailableError struct {
	Availability engine.Availability
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("generation capability %s", e.Availability)
}

func classifyInitError(err error) *ToneError {
	unavailable := &UnavailableError{}
	if errors.As(err, &unavailable) {
		return &ToneError{
			Kind:    CapabilityUnavailable,
			Message: unavailableMessage(unavailable.Availability.Reason),
			err:     err,
		}
	}
	return &ToneError{
		Kind:    GenerationFailed,
		Message: fmt.Sprintf("The rewriting engine could not start a session: %v. Try again or relaunch.", err),
		err:     err,
	}
}

func unavailableMessage(r engine.Reason) string {
	switch r {
	case engine.ReasonDeviceIneligible:
		return "This device cannot run the local rewriting engine. A physically capable device is required; simulators and sandboxes are not supported."
	case engine.ReasonDisabled:
		return "The local rewriting engine is disabled. Enable it in your configuration and relaunch."
	case engine.ReasonNotReady:
		return "The rewriting engine's model is still provisioning. Try again in a moment."
	default:
		return "The local rewriting engine is unavailable on this host."
	}
}

func classifyEngineError(err error) *ToneError {
	if errors.Is(err, engine.ErrContextExceeded) {
		return &ToneError{
			Kind:    InputTooLarge,
			Message: "Your message is too long for the engine's context window. Shorten it and try again.",
			err:     err,
		}
	}
	return &ToneError{
		Kind:    GenerationFailed,
		Message: fmt.Sprintf("Rewriting failed: %v. Try again.", err),
		err:     err,
	}
}
