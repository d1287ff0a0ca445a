// Package memory provides an in-memory implementation of the
// PlaylistRepository interface. Contents are lost when the process exits.
package memory

import (
	"sync"

	"github.com/chorus-audio/chorus/internal/domain"
	"github.com/chorus-audio/chorus/internal/ports"
)

// Repository stores playlists in a map keyed by ID.
//
// Thread-safety: all methods are safe for concurrent use. Playlists are
// deep-copied on the way in and out so callers cannot mutate stored state.
type Repository struct {
	mu        sync.RWMutex
	playlists map[string]*domain.Playlist
}

// NewRepository creates an empty repository.
func NewRepository() *Repository {
	return &Repository{
		playlists: make(map[string]*domain.Playlist),
	}
}

// Save implements ports.PlaylistRepository. Saving an existing ID replaces
// the stored playlist.
func (r *Repository) Save(playlist *domain.Playlist) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.playlists[playlist.ID] = clone(playlist)
	return nil
}

// Load implements ports.PlaylistRepository.
func (r *Repository) Load(id string) (*domain.Playlist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	playlist, ok := r.playlists[id]
	if !ok {
		return nil, domain.ErrPlaylistNotFound
	}
	return clone(playlist), nil
}

// LoadAll implements ports.PlaylistRepository.
func (r *Repository) LoadAll() ([]*domain.Playlist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*domain.Playlist, 0, len(r.playlists))
	for _, playlist := range r.playlists {
		all = append(all, clone(playlist))
	}
	return all, nil
}

// Delete implements ports.PlaylistRepository. Deleting an unknown ID is a
// no-op.
func (r *Repository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.playlists, id)
	return nil
}

// Exists implements ports.PlaylistRepository.
func (r *Repository) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.playlists[id]
	return ok
}

// clone copies a playlist including its track slice.
func clone(playlist *domain.Playlist) *domain.Playlist {
	cp := *playlist
	cp.Tracks = append([]domain.Track(nil), playlist.Tracks...)
	return &cp
}

// Verify that Repository implements the PlaylistRepository interface
var _ ports.PlaylistRepository = (*Repository)(nil)
