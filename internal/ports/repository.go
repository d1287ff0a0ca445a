// Package ports defines repository interfaces for data persistence abstraction.
package ports

import (
	"github.com/chorus-audio/chorus/internal/domain"
)

// PlaylistRepository handles the persistence of named playlists (not the
// live play queue). Implementations can use files, databases, or in-memory
// storage; load and save are opaque succeed/fail operations to the core.
//
// Thread-safety: implementations must be thread-safe.
type PlaylistRepository interface {
	// Save persists a playlist. If a playlist with the same ID exists, it
	// is replaced.
	Save(playlist *domain.Playlist) error

	// Load retrieves a playlist by ID. Returns
	// (nil, domain.ErrPlaylistNotFound) when it does not exist.
	Load(id string) (*domain.Playlist, error)

	// LoadAll retrieves all saved playlists (empty slice if none exist).
	LoadAll() ([]*domain.Playlist, error)

	// Delete removes a playlist by ID. Deleting a missing playlist is a
	// no-op.
	Delete(id string) error

	// Exists reports whether a playlist with the given ID exists.
	Exists(id string) bool
}
