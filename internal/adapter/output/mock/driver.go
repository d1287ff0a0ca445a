// Package mock provides an in-memory implementation of the OutputDriver
// interface. It simulates an audio session without producing sound and is
// used for tests and for running without an audio device.
package mock

import (
	"log/slog"
	"sync"
	"time"

	"github.com/chorus-audio/chorus/internal/domain"
	"github.com/chorus-audio/chorus/internal/ports"
)

// DefaultDuration is the simulated length of every opened session unless
// overridden with SetNextDuration.
const DefaultDuration = 3 * time.Minute

// Driver is a mock output driver.
//
// Thread-safety: all methods are safe for concurrent use. Callbacks are
// invoked without holding the driver lock, so a callback may call back into
// the driver.
type Driver struct {
	logger *slog.Logger

	mu       sync.Mutex
	cb       ports.OutputCallbacks
	locator  string
	open     bool
	playing  bool
	position time.Duration
	duration time.Duration
	volume   float64
	rate     float64

	// Behavior configuration (for testing error scenarios)
	failOpen     bool
	failStart    bool
	nextDuration time.Duration
	openCount    int

	// gate, when set, blocks Open until released. Used to exercise the
	// race between a slow open and a superseding load.
	gate chan struct{}
}

// NewDriver creates a mock driver. The logger may be nil.
func NewDriver(logger *slog.Logger) *Driver {
	return &Driver{
		logger:       logger,
		volume:       1.0,
		rate:         1.0,
		nextDuration: DefaultDuration,
	}
}

// SetFailOpen configures the driver to fail Open calls.
func (d *Driver) SetFailOpen(fail bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failOpen = fail
}

// SetFailStart configures the driver to fail Start calls.
func (d *Driver) SetFailStart(fail bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failStart = fail
}

// SetNextDuration sets the simulated duration of subsequently opened
// sessions.
func (d *Driver) SetNextDuration(duration time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextDuration = duration
}

// HoldOpens makes following Open calls block until ReleaseOpens.
func (d *Driver) HoldOpens() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gate == nil {
		d.gate = make(chan struct{})
	}
}

// ReleaseOpens unblocks Open calls held by HoldOpens.
func (d *Driver) ReleaseOpens() {
	d.mu.Lock()
	gate := d.gate
	d.gate = nil
	d.mu.Unlock()

	if gate != nil {
		close(gate)
	}
}

// OpenCount returns how many Open calls have completed successfully.
func (d *Driver) OpenCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.openCount
}

// Locator returns the locator of the open session ("" when none).
func (d *Driver) Locator() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.locator
}

// Playing reports whether the session is running.
func (d *Driver) Playing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playing
}

// Volume returns the last applied volume.
func (d *Driver) Volume() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.volume
}

// Rate returns the last applied rate.
func (d *Driver) Rate() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rate
}

// AdvancePosition moves the simulated position forward, clamping at the
// session duration.
func (d *Driver) AdvancePosition(delta time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return
	}
	d.position += delta
	if d.position > d.duration {
		d.position = d.duration
	}
}

// TriggerFinished simulates the session reaching its end (success true) or
// aborting mid-stream (success false).
func (d *Driver) TriggerFinished(success bool) {
	d.mu.Lock()
	d.playing = false
	if success {
		d.position = d.duration
	}
	cb := d.cb
	d.mu.Unlock()

	if cb != nil {
		cb.OnFinished(success)
	}
}

// TriggerDecodeError simulates a decode or device failure.
func (d *Driver) TriggerDecodeError(reason string) {
	d.mu.Lock()
	d.playing = false
	cb := d.cb
	d.mu.Unlock()

	if cb != nil {
		cb.OnDecodeError(reason)
	}
}

// SetCallbacks implements ports.OutputDriver.
func (d *Driver) SetCallbacks(cb ports.OutputCallbacks) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cb = cb
}

// Open implements ports.OutputDriver.
func (d *Driver) Open(locator string) error {
	d.mu.Lock()
	gate := d.gate
	d.mu.Unlock()

	if gate != nil {
		<-gate
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failOpen {
		return domain.NewOutputError("mock open failed", nil)
	}
	if locator == "" {
		return domain.NewOutputError("empty locator", nil)
	}

	d.locator = locator
	d.open = true
	d.playing = false
	d.position = 0
	d.duration = d.nextDuration
	d.openCount++
	return nil
}

// Start implements ports.OutputDriver.
func (d *Driver) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return domain.ErrNoSession
	}
	if d.failStart {
		return domain.NewOutputError("mock start failed", nil)
	}
	d.playing = true
	return nil
}

// Pause implements ports.OutputDriver.
func (d *Driver) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return domain.ErrNoSession
	}
	d.playing = false
	return nil
}

// Stop implements ports.OutputDriver.
func (d *Driver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return domain.ErrNoSession
	}
	d.playing = false
	d.position = 0
	return nil
}

// Seek implements ports.OutputDriver.
func (d *Driver) Seek(position time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return domain.ErrNoSession
	}
	if position < 0 {
		position = 0
	}
	if position > d.duration {
		position = d.duration
	}
	d.position = position
	return nil
}

// SetVolume implements ports.OutputDriver.
func (d *Driver) SetVolume(volume float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.volume = volume
	return nil
}

// SetRate implements ports.OutputDriver.
func (d *Driver) SetRate(rate float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rate = rate
	return nil
}

// Position implements ports.OutputDriver.
func (d *Driver) Position() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.position
}

// Duration implements ports.OutputDriver.
func (d *Driver) Duration() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return 0
	}
	return d.duration
}

// Close implements ports.OutputDriver.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.open = false
	d.playing = false
	d.locator = ""
	d.position = 0
	d.duration = 0
	return nil
}

// Verify that Driver implements the OutputDriver interface
var _ ports.OutputDriver = (*Driver)(nil)
