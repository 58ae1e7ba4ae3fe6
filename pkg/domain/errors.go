package domain

import (
	"errors"
	"fmt"
)

// ErrEngineFailure matches any failure reported by the computation engine.
var ErrEngineFailure = errors.New("engine failure")

// ErrSerializationFailure matches results that have no canonical text form.
var ErrSerializationFailure = errors.New("serialization failure")

// ErrUnknownEngine is returned when a named engine is not registered.
var ErrUnknownEngine = errors.New("unknown engine")

// ErrSessionNotFound is returned when a session ID cannot be found.
var ErrSessionNotFound = errors.New("session not found")

// EngineFailure wraps an error (or recovered panic) raised by the engine for a given input.
type EngineFailure struct {
	Input string
	Err   error
}

func (e *EngineFailure) Error() string {
	return fmt.Sprintf("engine failure: %v", e.Err)
}

func (e *EngineFailure) Unwrap() error { return e.Err }

func (e *EngineFailure) Is(target error) bool { return target == ErrEngineFailure }

// SerializationFailure reports a result that cannot be rendered as JSON text.
type SerializationFailure struct {
	Err error
}

func (e *SerializationFailure) Error() string {
	return fmt.Sprintf("serialization failure: %v", e.Err)
}

func (e *SerializationFailure) Unwrap() error { return e.Err }

func (e *SerializationFailure) Is(target error) bool { return target == ErrSerializationFailure }

// IsEngineFailure reports whether err is, or wraps, an engine failure.
func IsEngineFailure(err error) bool {
	return errors.Is(err, ErrEngineFailure)
}

// IsSerializationFailure reports whether err is, or wraps, a serialization failure.
func IsSerializationFailure(err error) bool {
	return errors.Is(err, ErrSerializationFailure)
}
