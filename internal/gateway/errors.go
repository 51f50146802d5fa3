package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// Errors surfaced to callers. Remote unavailability is never one of them.
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("already exists")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrUnconfirmed means a write timed out after it was sent; the remote may
	// have applied it, so the mock must not apply it a second time.
	ErrUnconfirmed = errors.New("remote did not confirm the write")
)

// RemoteErrorKind classifies why a remote call failed
type RemoteErrorKind string

const (
	KindDisabled    RemoteErrorKind = "disabled"
	KindNetwork     RemoteErrorKind = "network"
	KindTimeout     RemoteErrorKind = "timeout"
	KindStatus      RemoteErrorKind = "status"
	KindDecode      RemoteErrorKind = "decode"
	KindCircuitOpen RemoteErrorKind = "circuit_open"
)

// RemoteError is the only error type returned by RemoteClient
type RemoteError struct {
	Op         string
	Kind       RemoteErrorKind
	StatusCode int
	Err        error
}

func (e *RemoteError) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("%s: remote responded %d", e.Op, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// domainError maps status codes that carry an authoritative answer from the
// remote service. Such answers are not outages and must not be masked by the mock.
func (e *RemoteError) domainError() error {
	if e.Kind != KindStatus {
		return nil
	}
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	}
	return nil
}

// breakerFailure reports whether err should count against the circuit breaker.
// Client errors are answers, not signs of an unhealthy remote.
func breakerFailure(err error) bool {
	var re *RemoteError
	if !errors.As(err, &re) {
		return err != nil
	}
	return !(re.Kind == KindStatus && re.StatusCode < http.StatusInternalServerError)
}

// Decision is the outcome of inspecting a remote result
type Decision int

const (
	UseRemote Decision = iota
	UseFallback
	Surface
)

// Decide chooses between the remote result, the mock path, and surfacing err
func Decide(err error) (Decision, error) {
	if err == nil {
		return UseRemote, nil
	}
	var re *RemoteError
	if !errors.As(err, &re) {
		return UseFallback, nil
	}
	if domain := re.domainError(); domain != nil {
		return Surface, domain
	}
	return UseFallback, nil
}

// DecideWrite is Decide for non-idempotent writes: a timeout surfaces
// ErrUnconfirmed instead of falling back
func DecideWrite(err error) (Decision, error) {
	var re *RemoteError
	if errors.As(err, &re) && re.Kind == KindTimeout {
		return Surface, fmt.Errorf("%s: %w", re.Op, ErrUnconfirmed)
	}
	return Decide(err)
}
