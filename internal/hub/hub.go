// Package hub provides the notification fan-out between the playback core
// and presentation-layer collaborators. It replaces ad-hoc callbacks with an
// explicit registry of listener handles: the hub stores only non-owning
// references, and deregistration is a real removal.
package hub

import (
	"log/slog"
	"sync"

	"github.com/chorus-audio/chorus/internal/domain"
)

// Listener is the capability set a registered collaborator implements.
// Methods are invoked synchronously, in registration order, on the goroutine
// that produced the event. Handlers must return quickly or dispatch to their
// own goroutine.
type Listener interface {
	// OnStateChange is called when the engine's lifecycle state changes.
	OnStateChange(state domain.PlayerState)

	// OnProgress is called with periodic progress samples while playing,
	// and immediately after a seek.
	OnProgress(progress domain.Progress)

	// OnQueueChange is called with the new displayed order after any
	// structural queue change.
	OnQueueChange(tracks []domain.Track)

	// OnCurrentTrackChange is called when the track under the queue
	// cursor changes. track is nil when the queue becomes empty.
	OnCurrentTrackChange(track *domain.Track)

	// OnShuffleChange is called when the shuffle flag flips.
	OnShuffleChange(shuffled bool)

	// OnRepeatModeChange is called when the repeat mode is set.
	OnRepeatModeChange(mode domain.RepeatMode)
}

// Hub is a stateless fan-out of playback notifications to zero or more
// registered listeners. There is no buffering and no delivery guarantee
// beyond "called once per event per listener present at emit time".
//
// Thread-safety: registration and emission may happen from different
// goroutines. The listener slice is copied before emission so a handler may
// deregister itself (or others) without invalidating the iteration.
type Hub struct {
	logger *slog.Logger

	mu        sync.RWMutex
	listeners []Listener
}

// New creates an empty hub. The logger may be nil.
func New(logger *slog.Logger) *Hub {
	return &Hub{logger: logger}
}

// Add registers a listener. Adding a listener that is already registered is
// a no-op; registration order is preserved for emission.
func (h *Hub) Add(l Listener) {
	if l == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, existing := range h.listeners {
		if existing == l {
			return
		}
	}
	h.listeners = append(h.listeners, l)
}

// Remove deregisters a listener. Removing an unknown listener is a no-op.
func (h *Hub) Remove(l Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, existing := range h.listeners {
		if existing == l {
			h.listeners = append(h.listeners[:i], h.listeners[i+1:]...)
			return
		}
	}
}

// Count returns the number of registered listeners.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}

// StateChanged fans out a lifecycle state change.
func (h *Hub) StateChanged(state domain.PlayerState) {
	for _, l := range h.current() {
		h.deliver(func() { l.OnStateChange(state) }, "state")
	}
}

// ProgressChanged fans out a progress sample.
func (h *Hub) ProgressChanged(progress domain.Progress) {
	for _, l := range h.current() {
		h.deliver(func() { l.OnProgress(progress) }, "progress")
	}
}

// QueueChanged fans out the new queue order. Together with the three
// methods below it satisfies queue.Notifier.
func (h *Hub) QueueChanged(tracks []domain.Track) {
	for _, l := range h.current() {
		h.deliver(func() { l.OnQueueChange(tracks) }, "queue")
	}
}

// CurrentTrackChanged fans out a cursor change.
func (h *Hub) CurrentTrackChanged(track *domain.Track) {
	for _, l := range h.current() {
		h.deliver(func() { l.OnCurrentTrackChange(track) }, "current_track")
	}
}

// ShuffleChanged fans out a shuffle flag change.
func (h *Hub) ShuffleChanged(shuffled bool) {
	for _, l := range h.current() {
		h.deliver(func() { l.OnShuffleChange(shuffled) }, "shuffle")
	}
}

// RepeatModeChanged fans out a repeat mode change.
func (h *Hub) RepeatModeChanged(mode domain.RepeatMode) {
	for _, l := range h.current() {
		h.deliver(func() { l.OnRepeatModeChange(mode) }, "repeat_mode")
	}
}

// current returns a copy of the listener slice for iteration outside the lock.
func (h *Hub) current() []Listener {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Listener(nil), h.listeners...)
}

// deliver invokes one listener method, recovering from panics so a broken
// listener cannot stop delivery to the rest.
func (h *Hub) deliver(fn func(), event string) {
	defer func() {
		if r := recover(); r != nil {
			if h.logger != nil {
				h.logger.Error("listener panicked",
					slog.Any("panic", r),
					slog.String("event", event))
			}
		}
	}()
	fn()
}
