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

// Player is the single coordination point exposed to callers. It composes
// the queue, the engine and the hub, and holds no durable state of its own
// beyond which source is active. One Player instance is constructed by the
// composition root and passed to whichever components need it.
type Player struct {
	// Dependencies (injected)
	logger *slog.Logger
	queue  *queue.Queue
	engine *Engine
	hub    *hub.Hub
	repo   ports.PlaylistRepository

	// Source selection
	mu      sync.RWMutex
	sources map[domain.SourceType]ports.Source
	active  ports.Source
}

// New creates the facade. The playlist repository may be nil when playlist
// persistence is not wired. The engine's resolver is installed here: it
// dispatches on each track's own source tag so a queue that mixes sources
// still resolves correctly, falling back to the active source.
func New(
	logger *slog.Logger,
	q *queue.Queue,
	engine *Engine,
	h *hub.Hub,
	repo ports.PlaylistRepository,
) *Player {
	p := &Player{
		logger:  logger,
		queue:   q,
		engine:  engine,
		hub:     h,
		repo:    repo,
		sources: make(map[domain.SourceType]ports.Source),
	}

	engine.SetResolver(p.resolve)
	return p
}

// RegisterSource makes a source selectable. The first registered source
// becomes active.
func (p *Player) RegisterSource(src ports.Source) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sources[src.Type()] = src
	if p.active == nil {
		p.active = src
	}
}

// SelectSource switches the active source capability. Switching clears the
// queue and stops playback (explicit product rule: queue contents from the
// previous source do not survive a source switch).
func (p *Player) SelectSource(t domain.SourceType) error {
	p.mu.Lock()
	src, ok := p.sources[t]
	if !ok {
		p.mu.Unlock()
		return domain.ErrUnknownSource
	}
	if p.active == src {
		p.mu.Unlock()
		return nil
	}
	p.active = src
	p.mu.Unlock()

	p.logger.Info("source selected", slog.String("source", string(t)))

	if err := p.engine.Stop(); err != nil {
		p.logger.Warn("failed to stop playback on source switch", slog.Any("error", err))
	}
	p.queue.Clear()
	return nil
}

// ActiveSource returns the tag of the active source, or "" when none.
func (p *Player) ActiveSource() domain.SourceType {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.active == nil {
		return ""
	}
	return p.active.Type()
}

// resolve is the engine's Resolver. It prefers the source named by the
// track's own tag.
func (p *Player) resolve(ctx context.Context, track domain.Track) (string, error) {
	p.mu.RLock()
	src, ok := p.sources[track.Source]
	if !ok {
		src = p.active
	}
	p.mu.RUnlock()

	if src == nil {
		return "", domain.ErrNoActiveSource
	}
	return src.Resolve(ctx, track)
}

// Play starts or resumes playback.
func (p *Player) Play() error {
	return p.engine.Play()
}

// Pause suspends playback.
func (p *Player) Pause() error {
	return p.engine.Pause()
}

// Stop halts playback and resets the position.
func (p *Player) Stop() error {
	return p.engine.Stop()
}

// SkipNext advances the queue and plays the resulting track. An explicit
// skip consults the queue directly, so repeat-one's replay rule does not
// apply. A no-op when the queue does not move.
func (p *Player) SkipNext() error {
	track, ok := p.queue.Advance()
	if !ok {
		return nil
	}
	return p.engine.Load(track)
}

// SkipPrevious is the mirror of SkipNext for the previous direction.
func (p *Player) SkipPrevious() error {
	track, ok := p.queue.Retreat()
	if !ok {
		return nil
	}
	return p.engine.Load(track)
}

// Seek repositions playback within the current track.
func (p *Player) Seek(position time.Duration) error {
	return p.engine.Seek(position)
}

// SetVolume sets the playback volume (clamped into [0, 1]).
func (p *Player) SetVolume(volume float64) {
	p.engine.SetVolume(volume)
}

// Volume returns the current playback volume.
func (p *Player) Volume() float64 {
	return p.engine.Volume()
}

// SetRate sets the playback rate.
func (p *Player) SetRate(rate float64) {
	p.engine.SetRate(rate)
}

// Rate returns the current playback rate.
func (p *Player) Rate() float64 {
	return p.engine.Rate()
}

// State returns the engine's lifecycle state.
func (p *Player) State() domain.PlayerState {
	return p.engine.State()
}

// SetQueue replaces the queue contents and immediately requests playback
// of the resulting current track. An empty track list stops playback.
func (p *Player) SetQueue(tracks []domain.Track, startIndex int) error {
	p.queue.Replace(tracks, startIndex)

	track, ok := p.queue.Current()
	if !ok {
		return p.engine.Stop()
	}
	return p.engine.Load(track)
}

// AddToQueue appends a track to the queue without affecting playback.
func (p *Player) AddToQueue(track domain.Track) {
	p.queue.Append(track)
}

// AddAllToQueue appends tracks to the queue without affecting playback.
func (p *Player) AddAllToQueue(tracks []domain.Track) {
	p.queue.AppendAll(tracks)
}

// InsertIntoQueue inserts a track at the given position.
func (p *Player) InsertIntoQueue(track domain.Track, at int) {
	p.queue.Insert(track, at)
}

// RemoveFromQueue removes the track at the given index.
func (p *Player) RemoveFromQueue(index int) {
	p.queue.Remove(index)
}

// MoveInQueue relocates a track within the queue.
func (p *Player) MoveInQueue(from, to int) {
	p.queue.Move(from, to)
}

// ClearQueue empties the queue and stops playback.
func (p *Player) ClearQueue() error {
	p.queue.Clear()
	return p.engine.Stop()
}

// PlayTrackAt jumps the queue cursor to index and plays that track.
func (p *Player) PlayTrackAt(index int) error {
	track, ok := p.queue.Jump(index)
	if !ok {
		return nil
	}
	return p.engine.Load(track)
}

// Queue returns a copy of the current queue order.
func (p *Player) Queue() []domain.Track {
	return p.queue.Tracks()
}

// ToggleShuffle flips the queue's shuffle state.
func (p *Player) ToggleShuffle() {
	p.queue.ToggleShuffle()
}

// SetRepeatMode sets the queue's repeat mode.
func (p *Player) SetRepeatMode(mode domain.RepeatMode) {
	p.queue.SetRepeatMode(mode)
}

// Search delegates to the active source. A failure leaves all player state
// untouched; prior results held by the caller stay valid.
func (p *Player) Search(ctx context.Context, query string) ([]domain.Track, error) {
	src := p.activeSource()
	if src == nil {
		return nil, domain.ErrNoActiveSource
	}

	tracks, err := src.Search(ctx, query)
	if err != nil {
		return nil, domain.NewSourceError(src.Type(), "search", err)
	}
	return tracks, nil
}

// Recommendations delegates to the active source.
func (p *Player) Recommendations(ctx context.Context) ([]domain.Track, error) {
	src := p.activeSource()
	if src == nil {
		return nil, domain.ErrNoActiveSource
	}

	tracks, err := src.Recommendations(ctx)
	if err != nil {
		return nil, domain.NewSourceError(src.Type(), "recommendations", err)
	}
	return tracks, nil
}

func (p *Player) activeSource() ports.Source {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.active
}

// AddListener registers a listener with the hub.
func (p *Player) AddListener(l hub.Listener) {
	p.hub.Add(l)
}

// RemoveListener deregisters a listener from the hub.
func (p *Player) RemoveListener(l hub.Listener) {
	p.hub.Remove(l)
}

// SaveQueueAsPlaylist persists the current queue order as a named playlist.
func (p *Player) SaveQueueAsPlaylist(name string) (*domain.Playlist, error) {
	if p.repo == nil {
		return nil, domain.ErrPlaylistNotFound
	}

	now := time.Now()
	playlist := &domain.Playlist{
		ID:        domain.NewTrackID(),
		Name:      name,
		Tracks:    p.queue.Tracks(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := p.repo.Save(playlist); err != nil {
		return nil, err
	}
	p.logger.Info("playlist saved",
		slog.String("playlist_id", playlist.ID),
		slog.String("name", name),
		slog.Int("tracks", len(playlist.Tracks)))
	return playlist, nil
}

// LoadPlaylist replaces the queue with a stored playlist and starts
// playback from its first track.
func (p *Player) LoadPlaylist(id string) error {
	if p.repo == nil {
		return domain.ErrPlaylistNotFound
	}

	playlist, err := p.repo.Load(id)
	if err != nil {
		return err
	}
	return p.SetQueue(playlist.Tracks, 0)
}

// Playlists returns all stored playlists.
func (p *Player) Playlists() ([]*domain.Playlist, error) {
	if p.repo == nil {
		return nil, nil
	}
	return p.repo.LoadAll()
}

// DeletePlaylist removes a stored playlist.
func (p *Player) DeletePlaylist(id string) error {
	if p.repo == nil {
		return nil
	}
	return p.repo.Delete(id)
}

// Shutdown stops playback and releases the engine.
func (p *Player) Shutdown() error {
	return p.engine.Shutdown()
}
