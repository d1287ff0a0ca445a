// Package domain contains core business models and logic with no external dependencies.
// This package defines the fundamental entities of the Chorus playback controller.
package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// SourceType identifies which source capability a track came from.
type SourceType string

const (
	// SourceLocal is the local filesystem source.
	SourceLocal SourceType = "local"
)

// Track is an immutable description of a single playable audio item.
// Tracks are value types; equality is by ID only.
type Track struct {
	// ID is an opaque unique identifier for the track (UUID)
	ID string

	// Title is the song title (from metadata or filename)
	Title string

	// Artist is the performing artist name
	Artist string

	// Album is the album name (may be empty)
	Album string

	// Duration is the total length of the track (non-negative, finite)
	Duration time.Duration

	// ArtworkRef is an optional reference to cover art (path or URL)
	ArtworkRef string

	// Source identifies the provider that produced this track
	Source SourceType

	// Locator is the source-specific string used to resolve the audio resource
	Locator string

	// PreviewLocator is an optional locator for a short preview resource
	PreviewLocator string
}

// NewTrackID generates a fresh track identifier.
func NewTrackID() string {
	return uuid.NewString()
}

// Same reports whether two tracks denote the same item. Identity is the ID;
// metadata differences are ignored.
func (t Track) Same(other Track) bool {
	return t.ID == other.ID
}

// DisplayString returns the "Title – Artist" form used by presentation layers.
// The artist part is omitted when unknown.
func (t Track) DisplayString() string {
	if t.Artist == "" {
		return t.Title
	}
	return t.Title + " – " + t.Artist
}

// FormatDuration renders a duration as mm:ss, or h:mm:ss for durations of an
// hour or more. Seconds (and minutes in the hour form) are zero-padded.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second).Seconds())
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// RepeatMode controls how the queue advances when a track finishes.
type RepeatMode int

const (
	// RepeatOff plays the queue once and stops at the end.
	RepeatOff RepeatMode = iota

	// RepeatOne replays the current track indefinitely.
	RepeatOne

	// RepeatAll wraps around to the start when the end is reached.
	RepeatAll
)

// String returns a human-readable representation of the repeat mode.
func (m RepeatMode) String() string {
	switch m {
	case RepeatOne:
		return "one"
	case RepeatAll:
		return "all"
	default:
		return "off"
	}
}

// ParseRepeatMode converts a string to a RepeatMode. Unknown values map to
// RepeatOff.
func ParseRepeatMode(s string) RepeatMode {
	switch s {
	case "one":
		return RepeatOne
	case "all":
		return RepeatAll
	default:
		return RepeatOff
	}
}

// Status enumerates the lifecycle states of the playback engine.
type Status int

const (
	// StatusIdle indicates no track has been loaded yet
	StatusIdle Status = iota

	// StatusLoading indicates a resource open is in flight
	StatusLoading

	// StatusPlaying indicates audio is audibly sounding
	StatusPlaying

	// StatusPaused indicates playback is suspended at a position
	StatusPaused

	// StatusStopped indicates playback is stopped with position reset
	StatusStopped

	// StatusFailed indicates the last load or playback attempt failed
	StatusFailed
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusStopped:
		return "stopped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PlayerState is the engine's current lifecycle state. Reason carries the
// human-readable failure description and is empty unless Status is
// StatusFailed. Exactly one PlayerState value is current at any time; it is
// the source of truth for whether audio should be sounding.
type PlayerState struct {
	Status Status
	Reason string
}

// Failed constructs the failed state with the given reason.
func Failed(reason string) PlayerState {
	return PlayerState{Status: StatusFailed, Reason: reason}
}

// IsPlaying reports whether audio should currently be audible.
func (s PlayerState) IsPlaying() bool {
	return s.Status == StatusPlaying
}

// Progress is a (position, duration) sample of the active stream. Values
// exposed to listeners are always non-negative and finite.
type Progress struct {
	Position time.Duration
	Duration time.Duration
}

// Ratio returns position/duration clamped into [0, 1]. It is defined as 0
// when the duration is zero or either value is not finite.
func (p Progress) Ratio() float64 {
	pos := p.Position.Seconds()
	dur := p.Duration.Seconds()
	if dur <= 0 || math.IsNaN(pos) || math.IsInf(pos, 0) || math.IsNaN(dur) || math.IsInf(dur, 0) {
		return 0
	}
	r := pos / dur
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

// Playlist is a named, persisted collection of tracks. The live play queue
// is not a Playlist; playlists only cross the persistence boundary.
type Playlist struct {
	// ID is a unique identifier for the playlist (UUID)
	ID string

	// Name is the playlist name
	Name string

	// Tracks is the ordered list of tracks in the playlist
	Tracks []Track

	// CreatedAt is when the playlist was created
	CreatedAt time.Time

	// UpdatedAt is when the playlist was last modified
	UpdatedAt time.Time
}
