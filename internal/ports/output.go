// Package ports defines interfaces for dependency inversion.
// These interfaces allow the core business logic to remain independent of external frameworks.
package ports

import (
	"time"
)

// OutputCallbacks receives asynchronous notifications from an output driver.
// Callbacks may be invoked from driver-owned goroutines; the playback engine
// is responsible for marshaling them back onto its own state.
type OutputCallbacks interface {
	// OnFinished is called when the open session reaches its end.
	// success is false when playback aborted mid-stream.
	OnFinished(success bool)

	// OnDecodeError is called when the driver hits a decode or device
	// failure while a session is active.
	OnDecodeError(reason string)
}

// OutputDriver turns a resolved locator into an audible session. The
// playback engine is the only component that touches this interface.
//
// Open is a blocking call: it returns once the resource is decoded far
// enough to start, or with an error. The engine runs Open on its own
// goroutine, so drivers do not need completion plumbing of their own.
//
// Implementations must be safe for concurrent use; control methods and the
// engine's progress sampling may arrive from different goroutines.
type OutputDriver interface {
	// SetCallbacks registers the callback sink. Called once by the engine
	// before the first Open.
	SetCallbacks(cb OutputCallbacks)

	// Open prepares the resource behind the locator for playback,
	// replacing any previously open session.
	Open(locator string) error

	// Start begins or resumes output of the open session.
	Start() error

	// Pause suspends output, preserving the current position.
	Pause() error

	// Stop halts output and resets the position to zero. The session
	// stays open and can be restarted with Start.
	Stop() error

	// Seek repositions the open session. The position has already been
	// clamped into [0, Duration] by the engine.
	Seek(position time.Duration) error

	// SetVolume sets the output volume (0.0 silent to 1.0 full).
	SetVolume(volume float64) error

	// SetRate sets the playback rate (1.0 is normal speed).
	SetRate(rate float64) error

	// Position returns the current position of the open session, or 0
	// when no session is open.
	Position() time.Duration

	// Duration returns the total duration of the open session, or 0 when
	// no session is open.
	Duration() time.Duration

	// Close releases the open session and its resources. Closing with no
	// open session is a no-op.
	Close() error
}
