// Package domain defines domain-specific errors.
// These errors represent business logic failures and are independent of infrastructure.
package domain

import (
	"errors"
	"fmt"
)

// Common errors that services can return.
var (
	// ErrNoActiveSource is returned when a source operation is requested
	// before any source has been selected.
	ErrNoActiveSource = errors.New("no active source selected")

	// ErrUnknownSource is returned when selecting a source type that has
	// no registered implementation.
	ErrUnknownSource = errors.New("unknown source type")

	// ErrNoTrackLoaded is returned when playback is requested with no
	// current track and an empty queue.
	ErrNoTrackLoaded = errors.New("no track loaded")

	// ErrNoSession is returned by drivers when a control operation arrives
	// without an open audio session.
	ErrNoSession = errors.New("no open audio session")

	// ErrPlaylistNotFound is returned when a requested playlist does not exist.
	ErrPlaylistNotFound = errors.New("playlist not found")

	// ErrShutdown is returned when an operation is attempted after shutdown.
	ErrShutdown = errors.New("player has been shut down")
)

// ErrorKind classifies outward-facing playback failures.
type ErrorKind int

const (
	// KindResolution indicates the source could not produce a locator for
	// a track (missing file, no entitlement, ...).
	KindResolution ErrorKind = iota

	// KindOutput indicates a decode or hardware failure reported by the
	// output driver.
	KindOutput
)

// String returns a human-readable representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindOutput:
		return "output"
	default:
		return "resolution"
	}
}

// PlaybackError is an outward-facing playback failure: a kind plus a
// human-readable reason. Neither kind is fatal; both leave the engine in the
// recoverable Failed state and neither triggers a retry or an automatic skip.
type PlaybackError struct {
	Kind   ErrorKind
	Reason string
	Err    error // Underlying error (if any)
}

// Error implements the error interface.
func (e *PlaybackError) Error() string {
	return fmt.Sprintf("%s error: %s", e.Kind, e.Reason)
}

// Unwrap returns the underlying error.
func (e *PlaybackError) Unwrap() error {
	return e.Err
}

// NewResolutionError creates a PlaybackError of kind resolution.
func NewResolutionError(reason string, err error) *PlaybackError {
	return &PlaybackError{Kind: KindResolution, Reason: reason, Err: err}
}

// NewOutputError creates a PlaybackError of kind output.
func NewOutputError(reason string, err error) *PlaybackError {
	return &PlaybackError{Kind: KindOutput, Reason: reason, Err: err}
}

// SourceError wraps a failure from a source capability (search,
// recommendations, resolve). Source errors never touch engine or queue
// state; they are reported to the calling layer only.
type SourceError struct {
	Source SourceType // Source that failed
	Op     string     // Operation that failed (e.g., "search")
	Err    error      // Underlying error
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %s failed: %v", e.Source, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *SourceError) Unwrap() error {
	return e.Err
}

// NewSourceError creates a new SourceError.
func NewSourceError(source SourceType, op string, err error) *SourceError {
	return &SourceError{Source: source, Op: op, Err: err}
}
