// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-spead.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrRingFull        = errors.New("ring buffer is full")
	ErrRingEmpty       = errors.New("ring buffer is empty")
	ErrRingStopped     = errors.New("ring buffer has been shut down")
	ErrTransportClosed = errors.New("transport is closed")
	ErrStreamClosed    = errors.New("stream is closed")
	ErrInvalidArgument = fmt.Errorf("invalid argument")

	// ErrPacketSizeTooSmall is returned when the maximum packet size cannot hold
	// the prefix, one item pointer and 8 bytes of payload.
	ErrPacketSizeTooSmall = errors.New("packet size is too small")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	// ErrCodeConfiguration: rejected at construction, fatal to that instance.
	ErrCodeConfiguration
	// ErrCodeCapacity: non-blocking push on a full ring; caller decides.
	ErrCodeCapacity
	// ErrCodeAvailability: non-blocking pop with no data.
	ErrCodeAvailability
	// ErrCodeLifecycle: the ring, stream or transport has been shut down.
	ErrCodeLifecycle
	ErrCodeInternal
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeConfiguration:
		return "configuration"
	case ErrCodeCapacity:
		return "capacity"
	case ErrCodeAvailability:
		return "availability"
	case ErrCodeLifecycle:
		return "lifecycle"
	default:
		return "internal"
	}
}

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// Unwrap exposes the wrapped sentinel to errors.Is.
func (e *Error) Unwrap() error { return e.Err }

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// ConfigError wraps a sentinel as a configuration error.
func ConfigError(err error) *Error {
	e := NewError(ErrCodeConfiguration, err.Error())
	e.Err = err
	return e
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// CodeOf classifies err into the library taxonomy.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	switch {
	case errors.Is(err, ErrPacketSizeTooSmall), errors.Is(err, ErrInvalidArgument):
		return ErrCodeConfiguration
	case errors.Is(err, ErrRingFull):
		return ErrCodeCapacity
	case errors.Is(err, ErrRingEmpty):
		return ErrCodeAvailability
	case errors.Is(err, ErrRingStopped), errors.Is(err, ErrTransportClosed), errors.Is(err, ErrStreamClosed):
		return ErrCodeLifecycle
	}
	return ErrCodeInternal
}
