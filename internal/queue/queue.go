// Package queue implements the ordered play queue: a mutable sequence of
// tracks plus a cursor, owning shuffle and repeat policy. All index
// bookkeeping is centralized here; no other component mutates the items or
// the cursor directly.
//
// The queue never returns errors. Invalid input degrades to a clamp or a
// no-op so the structure is always in a valid state: for a non-empty queue
// the cursor is always in [0, Len()); for an empty queue it is 0.
package queue

import (
	"math/rand/v2"
	"sync"

	"github.com/chorus-audio/chorus/internal/domain"
)

// Notifier receives change notifications from the queue. The notification
// hub satisfies this interface; tests use a recording implementation.
type Notifier interface {
	// QueueChanged is called with the new displayed order after any
	// structural change.
	QueueChanged(tracks []domain.Track)

	// CurrentTrackChanged is called when the track under the cursor
	// changes. track is nil when the queue becomes empty.
	CurrentTrackChanged(track *domain.Track)

	// ShuffleChanged is called when the shuffle flag flips.
	ShuffleChanged(shuffled bool)

	// RepeatModeChanged is called when the repeat mode is set.
	RepeatModeChanged(mode domain.RepeatMode)
}

// NopNotifier is a Notifier that ignores all notifications.
type NopNotifier struct{}

func (NopNotifier) QueueChanged([]domain.Track)         {}
func (NopNotifier) CurrentTrackChanged(*domain.Track)   {}
func (NopNotifier) ShuffleChanged(bool)                 {}
func (NopNotifier) RepeatModeChanged(domain.RepeatMode) {}

// Queue is the ordered play queue.
//
// Thread-safety: all operations are guarded by a mutex. The single-writer
// discipline still applies for meaningful ordering of mutations; the mutex
// covers the one cross-goroutine reader, the engine's auto-advance.
type Queue struct {
	mu sync.Mutex

	items        []domain.Track
	currentIndex int
	shuffled     bool
	repeatMode   domain.RepeatMode

	// Saved only while shuffled; restored on unshuffle.
	originalOrder []domain.Track
	originalIndex int

	notify Notifier
}

// New creates an empty queue reporting changes to the given notifier.
// A nil notifier is replaced with NopNotifier.
func New(notify Notifier) *Queue {
	if notify == nil {
		notify = NopNotifier{}
	}
	return &Queue{notify: notify}
}

// Replace sets the queue contents, clears shuffle state, and moves the
// cursor to startIndex clamped into the new bounds (0 if tracks is empty).
func (q *Queue) Replace(tracks []domain.Track, startIndex int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append([]domain.Track(nil), tracks...)
	q.shuffled = false
	q.originalOrder = nil
	q.originalIndex = 0
	q.currentIndex = clamp(startIndex, 0, len(q.items)-1)

	q.notify.QueueChanged(q.snapshot())
	q.notify.CurrentTrackChanged(q.currentPtr())
}

// Append adds a track to the end of the displayed order.
func (q *Queue) Append(track domain.Track) {
	q.AppendAll([]domain.Track{track})
}

// AppendAll adds tracks to the end of the displayed order.
func (q *Queue) AppendAll(tracks []domain.Track) {
	if len(tracks) == 0 {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	wasEmpty := len(q.items) == 0
	q.items = append(q.items, tracks...)

	q.notify.QueueChanged(q.snapshot())
	if wasEmpty {
		// The cursor (0) now designates a track where there was none.
		q.notify.CurrentTrackChanged(q.currentPtr())
	}
}

// Insert places a track at the given index, clamped into [0, Len()]. If the
// insertion point is at or before the cursor, the cursor shifts right so it
// keeps designating the same logical track.
func (q *Queue) Insert(track domain.Track, at int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	at = clamp(at, 0, len(q.items))
	wasEmpty := len(q.items) == 0

	q.items = append(q.items, domain.Track{})
	copy(q.items[at+1:], q.items[at:])
	q.items[at] = track

	if !wasEmpty && at <= q.currentIndex {
		q.currentIndex++
	}

	q.notify.QueueChanged(q.snapshot())
	if wasEmpty {
		q.notify.CurrentTrackChanged(q.currentPtr())
	}
}

// Remove deletes the track at the given index. Out-of-range indices are a
// no-op. Removing before the cursor shifts it left; removing the cursor's
// own track re-clamps the cursor and reports a current-track change.
func (q *Queue) Remove(at int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if at < 0 || at >= len(q.items) {
		return
	}

	removedCurrent := at == q.currentIndex
	q.items = append(q.items[:at], q.items[at+1:]...)

	switch {
	case at < q.currentIndex:
		q.currentIndex--
	case removedCurrent:
		if len(q.items) == 0 {
			q.currentIndex = 0
		} else if q.currentIndex > len(q.items)-1 {
			q.currentIndex = len(q.items) - 1
		}
	}

	q.notify.QueueChanged(q.snapshot())
	if removedCurrent {
		q.notify.CurrentTrackChanged(q.currentPtr())
	}
}

// Move relocates a track from one index to another. Invalid or equal
// indices are a no-op. The cursor is adjusted so it keeps designating the
// same logical track.
func (q *Queue) Move(from, to int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items)
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		return
	}

	track := q.items[from]
	q.items = append(q.items[:from], q.items[from+1:]...)
	q.items = append(q.items[:to], append([]domain.Track{track}, q.items[to:]...)...)

	switch {
	case q.currentIndex == from:
		q.currentIndex = to
	case from < q.currentIndex && to >= q.currentIndex:
		q.currentIndex--
	case from > q.currentIndex && to <= q.currentIndex:
		q.currentIndex++
	}

	q.notify.QueueChanged(q.snapshot())
}

// Clear empties the queue and resets cursor and shuffle state.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = nil
	q.currentIndex = 0
	q.shuffled = false
	q.originalOrder = nil
	q.originalIndex = 0

	q.notify.QueueChanged(q.snapshot())
	q.notify.CurrentTrackChanged(nil)
}

// Advance computes the candidate next index under the current repeat mode
// and commits the move only if the candidate differs from the cursor, or
// the mode is RepeatAll (which permits wrapping onto the same index in a
// single-item queue). Returns the new current track and whether a move was
// committed.
func (q *Queue) Advance() (domain.Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items)
	if n == 0 {
		return domain.Track{}, false
	}

	candidate := q.currentIndex
	switch q.repeatMode {
	case domain.RepeatOff:
		candidate = min(q.currentIndex+1, n-1)
	case domain.RepeatOne:
		// Stays put; the engine handles replay without consulting us.
	case domain.RepeatAll:
		candidate = (q.currentIndex + 1) % n
	}

	return q.commitMove(candidate)
}

// Retreat is the mirror of Advance for the previous direction.
func (q *Queue) Retreat() (domain.Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items)
	if n == 0 {
		return domain.Track{}, false
	}

	candidate := q.currentIndex
	switch q.repeatMode {
	case domain.RepeatOff:
		candidate = max(q.currentIndex-1, 0)
	case domain.RepeatOne:
	case domain.RepeatAll:
		if q.currentIndex == 0 {
			candidate = n - 1
		} else {
			candidate = q.currentIndex - 1
		}
	}

	return q.commitMove(candidate)
}

// commitMove applies the candidate cursor position computed by Advance or
// Retreat. Caller must hold the lock.
func (q *Queue) commitMove(candidate int) (domain.Track, bool) {
	if candidate == q.currentIndex && q.repeatMode != domain.RepeatAll {
		return domain.Track{}, false
	}

	q.currentIndex = candidate
	track := q.items[q.currentIndex]
	q.notify.CurrentTrackChanged(&track)
	return track, true
}

// Jump moves the cursor directly to the given index. Out-of-range indices
// are a no-op.
func (q *Queue) Jump(to int) (domain.Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if to < 0 || to >= len(q.items) {
		return domain.Track{}, false
	}

	q.currentIndex = to
	track := q.items[to]
	q.notify.CurrentTrackChanged(&track)
	return track, true
}

// ToggleShuffle flips the shuffle state. Shuffling snapshots the current
// order and cursor, produces a uniformly random permutation, and relocates
// the cursor to the shuffled position of the previously current track.
// Unshuffling restores the snapshot, dropping any mutations made while
// shuffled.
func (q *Queue) ToggleShuffle() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.shuffled {
		q.originalOrder = append([]domain.Track(nil), q.items...)
		q.originalIndex = q.currentIndex

		var current *domain.Track
		if len(q.items) > 0 {
			t := q.items[q.currentIndex]
			current = &t
		}

		perm := rand.Perm(len(q.items))
		shuffledItems := make([]domain.Track, len(q.items))
		for i, p := range perm {
			shuffledItems[i] = q.items[p]
		}
		q.items = shuffledItems

		q.currentIndex = 0
		if current != nil {
			for i, t := range q.items {
				if t.Same(*current) {
					q.currentIndex = i
					break
				}
			}
		}
		q.shuffled = true
	} else {
		prev := q.currentTrackID()

		q.items = q.originalOrder
		q.currentIndex = q.originalIndex
		q.originalOrder = nil
		q.originalIndex = 0
		q.shuffled = false

		if q.currentTrackID() != prev {
			q.notify.QueueChanged(q.snapshot())
			q.notify.ShuffleChanged(q.shuffled)
			q.notify.CurrentTrackChanged(q.currentPtr())
			return
		}
	}

	q.notify.QueueChanged(q.snapshot())
	q.notify.ShuffleChanged(q.shuffled)
}

// SetRepeatMode stores the repeat mode. The cursor is not touched.
func (q *Queue) SetRepeatMode(mode domain.RepeatMode) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.repeatMode == mode {
		return
	}
	q.repeatMode = mode
	q.notify.RepeatModeChanged(mode)
}

// RepeatMode returns the current repeat mode.
func (q *Queue) RepeatMode() domain.RepeatMode {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.repeatMode
}

// Shuffled reports whether the displayed order is a shuffle permutation.
func (q *Queue) Shuffled() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.shuffled
}

// Current returns the track under the cursor, if any.
func (q *Queue) Current() (domain.Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return domain.Track{}, false
	}
	return q.items[q.currentIndex], true
}

// CurrentIndex returns the cursor position (0 for an empty queue).
func (q *Queue) CurrentIndex() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.currentIndex
}

// Tracks returns a copy of the displayed order.
func (q *Queue) Tracks() []domain.Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshot()
}

// Len returns the number of tracks in the queue.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// IsEmpty reports whether the queue has no tracks.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// snapshot returns a copy of items. Caller must hold the lock.
func (q *Queue) snapshot() []domain.Track {
	return append([]domain.Track(nil), q.items...)
}

// currentPtr returns a pointer to a copy of the current track, or nil for
// an empty queue. Caller must hold the lock.
func (q *Queue) currentPtr() *domain.Track {
	if len(q.items) == 0 {
		return nil
	}
	t := q.items[q.currentIndex]
	return &t
}

// currentTrackID returns the current track's ID, or "" for an empty queue.
// Caller must hold the lock.
func (q *Queue) currentTrackID() string {
	if len(q.items) == 0 {
		return ""
	}
	return q.items[q.currentIndex].ID
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
