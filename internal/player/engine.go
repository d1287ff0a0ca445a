// Package player contains the playback core: the Engine state machine that
// drives a single output-driver session, and the Player facade that
// coordinates queue, engine, hub and sources.
package player

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/chorus-audio/chorus/internal/domain"
	"github.com/chorus-audio/chorus/internal/hub"
	"github.com/chorus-audio/chorus/internal/ports"
	"github.com/chorus-audio/chorus/internal/queue"
)

// Resolver turns a track into a locator the output driver can open. The
// facade installs a resolver that dispatches to the track's source.
type Resolver func(ctx context.Context, track domain.Track) (string, error)

// DefaultSampleInterval is how often progress is sampled while playing.
const DefaultSampleInterval = 333 * time.Millisecond

// Engine is the playback state machine. It is the only component that
// touches the output driver. Exactly one lifecycle state is current at any
// time; StatusPlaying is the only state in which audio is sounding and in
// which progress sampling produces samples.
//
// Loads are asynchronous: Load resolves and opens the resource on its own
// goroutine and marshals the result back under the engine mutex. Every load
// carries a generation token; results for superseded generations are
// dropped, so a late open for track X can never clobber a newer load of Y.
type Engine struct {
	// Dependencies (injected)
	logger *slog.Logger
	driver ports.OutputDriver
	queue  *queue.Queue
	hub    *hub.Hub

	// State
	mu       sync.RWMutex
	state    domain.PlayerState
	current  *domain.Track
	resolver Resolver
	loadGen  uint64
	volume   float64
	rate     float64
	closed   bool

	// openMu serializes driver.Open calls across load generations.
	openMu sync.Mutex

	// Progress sampling
	sampleInterval time.Duration
	stopSampler    chan struct{}
	samplerWg      sync.WaitGroup
}

// NewEngine creates an engine over the given driver. The engine registers
// itself as the driver's callback sink and starts the progress sampler.
// A non-positive sampleInterval selects DefaultSampleInterval.
func NewEngine(logger *slog.Logger, driver ports.OutputDriver, q *queue.Queue, h *hub.Hub, sampleInterval time.Duration) *Engine {
	if sampleInterval <= 0 {
		sampleInterval = DefaultSampleInterval
	}

	e := &Engine{
		logger:         logger,
		driver:         driver,
		queue:          q,
		hub:            h,
		state:          domain.PlayerState{Status: domain.StatusIdle},
		volume:         0.8, // Default 80% volume
		rate:           1.0,
		sampleInterval: sampleInterval,
		stopSampler:    make(chan struct{}),
	}

	driver.SetCallbacks(e)
	e.startSampler()

	logger.Debug("engine initialized")
	return e
}

// SetResolver installs the locator resolver used by Load.
func (e *Engine) SetResolver(r Resolver) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resolver = r
}

// State returns the current lifecycle state.
func (e *Engine) State() domain.PlayerState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// CurrentTrack returns the track the engine is (or was last) driving.
func (e *Engine) CurrentTrack() (domain.Track, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.current == nil {
		return domain.Track{}, false
	}
	return *e.current, true
}

// Progress returns the current progress sample.
func (e *Engine) Progress() domain.Progress {
	return domain.Progress{
		Position: e.driver.Position(),
		Duration: e.driver.Duration(),
	}
}

// Load starts loading a track, superseding any load still in flight. The
// engine moves to Loading immediately; on success it begins output and
// moves to Playing, on failure it moves to Failed without advancing the
// queue.
func (e *Engine) Load(track domain.Track) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return domain.ErrShutdown
	}

	e.loadGen++
	gen := e.loadGen
	t := track
	e.current = &t
	resolver := e.resolver
	e.state = domain.PlayerState{Status: domain.StatusLoading}
	state := e.state
	e.mu.Unlock()

	e.logger.Debug("loading track",
		slog.String("track_id", track.ID),
		slog.String("title", track.Title),
		slog.Uint64("generation", gen))
	e.hub.StateChanged(state)

	go e.openTrack(gen, track, resolver)
	return nil
}

// openTrack resolves and opens a track off the engine goroutine. The
// result is handed back through finishOpen, which drops stale generations.
func (e *Engine) openTrack(gen uint64, track domain.Track, resolver Resolver) {
	if resolver == nil {
		e.finishOpen(gen, domain.NewResolutionError("no source can resolve track", domain.ErrNoActiveSource))
		return
	}

	locator, err := resolver(context.Background(), track)
	if err != nil {
		e.finishOpen(gen, domain.NewResolutionError(err.Error(), err))
		return
	}

	e.openMu.Lock()
	if !e.isCurrentGen(gen) {
		// A newer load superseded this one while resolving.
		e.openMu.Unlock()
		return
	}
	err = e.driver.Open(locator)
	e.openMu.Unlock()

	if err != nil {
		e.finishOpen(gen, domain.NewOutputError(err.Error(), err))
		return
	}
	e.finishOpen(gen, nil)
}

// isCurrentGen reports whether gen is still the newest load generation.
func (e *Engine) isCurrentGen(gen uint64) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return gen == e.loadGen && !e.closed
}

// finishOpen marshals an open result back onto engine state. Results
// tagged with a superseded generation are ignored.
func (e *Engine) finishOpen(gen uint64, failure *domain.PlaybackError) {
	e.mu.Lock()
	if e.closed || gen != e.loadGen {
		e.mu.Unlock()
		e.logger.Debug("dropping stale load result", slog.Uint64("generation", gen))
		return
	}

	if failure != nil {
		e.state = domain.Failed(failure.Reason)
		state := e.state
		e.mu.Unlock()

		e.logger.Warn("load failed",
			slog.String("kind", failure.Kind.String()),
			slog.String("reason", failure.Reason))
		e.hub.StateChanged(state)
		return
	}

	// Engine-level properties are applied to every fresh session.
	if err := e.driver.SetVolume(e.volume); err != nil {
		e.logger.Warn("failed to apply volume", slog.Any("error", err))
	}
	if err := e.driver.SetRate(e.rate); err != nil {
		e.logger.Warn("failed to apply rate", slog.Any("error", err))
	}

	if err := e.driver.Start(); err != nil {
		e.state = domain.Failed(err.Error())
		state := e.state
		e.mu.Unlock()
		e.hub.StateChanged(state)
		return
	}

	e.state = domain.PlayerState{Status: domain.StatusPlaying}
	state := e.state
	e.mu.Unlock()

	e.hub.StateChanged(state)
}

// Play starts or resumes playback. With a loaded track it resumes output;
// with no loaded track but a non-empty queue it loads the queue's current
// track; from Failed it retries the current track with a fresh load.
func (e *Engine) Play() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return domain.ErrShutdown
	}

	switch e.state.Status {
	case domain.StatusPlaying, domain.StatusLoading:
		e.mu.Unlock()
		return nil

	case domain.StatusPaused, domain.StatusStopped:
		if e.current != nil {
			if err := e.driver.Start(); err != nil {
				e.mu.Unlock()
				return err
			}
			e.state = domain.PlayerState{Status: domain.StatusPlaying}
			state := e.state
			e.mu.Unlock()
			e.hub.StateChanged(state)
			return nil
		}

	case domain.StatusFailed:
		if e.current != nil {
			track := *e.current
			e.mu.Unlock()
			return e.Load(track)
		}
	}

	// No current track: fall back to the queue.
	e.mu.Unlock()
	if track, ok := e.queue.Current(); ok {
		return e.Load(track)
	}
	return domain.ErrNoTrackLoaded
}

// Pause suspends output. A no-op unless playing.
func (e *Engine) Pause() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return domain.ErrShutdown
	}
	if e.state.Status != domain.StatusPlaying {
		e.mu.Unlock()
		return nil
	}

	if err := e.driver.Pause(); err != nil {
		e.mu.Unlock()
		return err
	}
	e.state = domain.PlayerState{Status: domain.StatusPaused}
	state := e.state
	e.mu.Unlock()

	e.hub.StateChanged(state)
	return nil
}

// Stop halts output and resets the position to zero. Valid from any state.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return domain.ErrShutdown
	}

	// Invalidate any load still in flight.
	e.loadGen++

	if err := e.driver.Stop(); err != nil {
		e.logger.Debug("driver stop", slog.Any("error", err))
	}
	e.state = domain.PlayerState{Status: domain.StatusStopped}
	state := e.state
	e.mu.Unlock()

	e.hub.StateChanged(state)
	return nil
}

// Seek repositions the open session, clamping into [0, duration]. The
// lifecycle state is unchanged; a fresh progress sample is emitted
// immediately.
func (e *Engine) Seek(position time.Duration) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return domain.ErrShutdown
	}

	duration := e.driver.Duration()
	if position < 0 {
		position = 0
	}
	if duration > 0 && position > duration {
		position = duration
	}

	if err := e.driver.Seek(position); err != nil {
		e.mu.Unlock()
		return err
	}
	e.mu.Unlock()

	e.hub.ProgressChanged(domain.Progress{Position: position, Duration: duration})
	return nil
}

// SetVolume sets the engine-level volume, clamped into [0, 1], and applies
// it to the open session.
func (e *Engine) SetVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}

	e.mu.Lock()
	e.volume = volume
	e.mu.Unlock()

	if err := e.driver.SetVolume(volume); err != nil {
		e.logger.Debug("driver set volume", slog.Any("error", err))
	}
}

// Volume returns the engine-level volume.
func (e *Engine) Volume() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.volume
}

// SetRate sets the playback rate and applies it to the open session.
// Non-positive rates are ignored.
func (e *Engine) SetRate(rate float64) {
	if rate <= 0 {
		return
	}

	e.mu.Lock()
	e.rate = rate
	e.mu.Unlock()

	if err := e.driver.SetRate(rate); err != nil {
		e.logger.Debug("driver set rate", slog.Any("error", err))
	}
}

// Rate returns the playback rate.
func (e *Engine) Rate() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rate
}

// OnFinished implements ports.OutputCallbacks. A natural finish either
// replays the current track (repeat one), advances the queue, or stops at
// the end of the queue.
func (e *Engine) OnFinished(success bool) {
	if !success {
		// Aborted mid-stream by a stop or a new open; not a natural finish.
		return
	}

	e.mu.RLock()
	playing := e.state.Status == domain.StatusPlaying && !e.closed
	var current *domain.Track
	if e.current != nil {
		t := *e.current
		current = &t
	}
	e.mu.RUnlock()

	if !playing || current == nil {
		return
	}

	if e.queue.RepeatMode() == domain.RepeatOne {
		// Replay the same track from zero without consulting the queue.
		e.logger.Debug("repeat one: replaying track", slog.String("track_id", current.ID))
		if err := e.Load(*current); err != nil {
			e.logger.Warn("failed to replay track", slog.Any("error", err))
		}
		return
	}

	if next, ok := e.queue.Advance(); ok {
		if err := e.Load(next); err != nil {
			e.logger.Warn("failed to load next track", slog.Any("error", err))
		}
		return
	}

	// End of queue, repeat off.
	if err := e.Stop(); err != nil {
		e.logger.Warn("failed to stop at end of queue", slog.Any("error", err))
	}
}

// OnDecodeError implements ports.OutputCallbacks. A failure during active
// playback moves to Failed; the queue is not advanced, so a failure never
// silently skips a track.
func (e *Engine) OnDecodeError(reason string) {
	e.mu.Lock()
	if e.closed || e.state.Status != domain.StatusPlaying {
		e.mu.Unlock()
		return
	}
	e.state = domain.Failed(reason)
	state := e.state
	e.mu.Unlock()

	e.logger.Warn("output failed", slog.String("reason", reason))
	e.hub.StateChanged(state)
}

// Shutdown stops the sampler, halts output and releases the session. The
// engine cannot be used afterwards.
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.loadGen++
	close(e.stopSampler)
	e.mu.Unlock()

	e.samplerWg.Wait()

	if err := e.driver.Stop(); err != nil {
		e.logger.Debug("driver stop on shutdown", slog.Any("error", err))
	}
	return e.driver.Close()
}

// startSampler runs the persistent progress sampling goroutine. The tick
// is a no-op unless the engine is Playing, which also guards against a
// tick racing a transition away from Playing.
func (e *Engine) startSampler() {
	e.samplerWg.Add(1)

	go func() {
		defer e.samplerWg.Done()

		ticker := time.NewTicker(e.sampleInterval)
		defer ticker.Stop()

		for {
			select {
			case <-e.stopSampler:
				return
			case <-ticker.C:
				e.sampleProgress()
			}
		}
	}()
}

// sampleProgress publishes one progress sample if playing.
func (e *Engine) sampleProgress() {
	e.mu.RLock()
	playing := e.state.Status == domain.StatusPlaying && !e.closed
	e.mu.RUnlock()

	if !playing {
		return
	}

	e.hub.ProgressChanged(domain.Progress{
		Position: e.driver.Position(),
		Duration: e.driver.Duration(),
	})
}

// Verify that Engine is the driver's callback sink
var _ ports.OutputCallbacks = (*Engine)(nil)
