package player

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chorus-audio/chorus/internal/adapter/output/mock"
	"github.com/chorus-audio/chorus/internal/adapter/repository/memory"
	"github.com/chorus-audio/chorus/internal/domain"
	"github.com/chorus-audio/chorus/internal/hub"
	"github.com/chorus-audio/chorus/internal/logger"
	"github.com/chorus-audio/chorus/internal/queue"
	"github.com/chorus-audio/chorus/internal/testutil"
)

// stubSource is a canned ports.Source for facade tests.
type stubSource struct {
	typ           domain.SourceType
	searchResults []domain.Track
	searchErr     error
	recsResults   []domain.Track
	recsErr       error
	resolveErr    error
}

func (s *stubSource) Type() domain.SourceType          { return s.typ }
func (s *stubSource) Initialize(context.Context) error { return nil }

func (s *stubSource) Search(context.Context, string) ([]domain.Track, error) {
	return s.searchResults, s.searchErr
}

func (s *stubSource) Recommendations(context.Context) ([]domain.Track, error) {
	return s.recsResults, s.recsErr
}

func (s *stubSource) Resolve(_ context.Context, track domain.Track) (string, error) {
	if s.resolveErr != nil {
		return "", s.resolveErr
	}
	return track.Locator, nil
}

// Helper to create a facade over a mock driver with a local stub source.
func newTestPlayer(t *testing.T) (*Player, *mock.Driver, *queue.Queue) {
	t.Helper()

	log := logger.NewTestLogger()
	h := hub.New(log)
	q := queue.New(h)
	driver := mock.NewDriver(log)
	engine := NewEngine(log, driver, q, h, testSampleInterval)

	p := New(log, q, engine, h, memory.NewRepository())
	p.RegisterSource(&stubSource{typ: domain.SourceLocal})

	return p, driver, q
}

func waitForPlayerStatus(t *testing.T, p *Player, status domain.Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		return p.State().Status == status
	}, waitTimeout, waitTick, "player never reached %s (currently %s)", status, p.State().Status)
}

func TestPlayer_SetQueue_StartsPlayback(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	p, driver, _ := newTestPlayer(t)
	defer p.Shutdown()

	require.NoError(t, p.SetQueue(createTestTracks(3), 1))

	waitForPlayerStatus(t, p, domain.StatusPlaying)
	assert.Equal(t, "/music/1.mp3", driver.Locator())
	assert.Len(t, p.Queue(), 3)
}

func TestPlayer_SetQueue_EmptyStops(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	p, _, _ := newTestPlayer(t)
	defer p.Shutdown()

	require.NoError(t, p.SetQueue(createTestTracks(2), 0))
	waitForPlayerStatus(t, p, domain.StatusPlaying)

	require.NoError(t, p.SetQueue(nil, 0))
	waitForPlayerStatus(t, p, domain.StatusStopped)
	assert.Empty(t, p.Queue())
}

func TestPlayer_SkipNext(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	p, driver, q := newTestPlayer(t)
	defer p.Shutdown()

	require.NoError(t, p.SetQueue(createTestTracks(3), 0))
	waitForPlayerStatus(t, p, domain.StatusPlaying)

	require.NoError(t, p.SkipNext())
	require.Eventually(t, func() bool {
		return driver.Locator() == "/music/1.mp3"
	}, waitTimeout, waitTick)
	assert.Equal(t, 1, q.CurrentIndex())
}

func TestPlayer_SkipNext_AtEndIsNoop(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	p, driver, q := newTestPlayer(t)
	defer p.Shutdown()

	require.NoError(t, p.SetQueue(createTestTracks(2), 1))
	waitForPlayerStatus(t, p, domain.StatusPlaying)
	opens := driver.OpenCount()

	// Repeat off at the last track: the skip does not move or reload.
	require.NoError(t, p.SkipNext())

	assert.Equal(t, 1, q.CurrentIndex())
	assert.Equal(t, opens, driver.OpenCount())
	assert.Equal(t, domain.StatusPlaying, p.State().Status)
}

func TestPlayer_SkipPrevious(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	p, driver, q := newTestPlayer(t)
	defer p.Shutdown()

	require.NoError(t, p.SetQueue(createTestTracks(3), 2))
	waitForPlayerStatus(t, p, domain.StatusPlaying)

	require.NoError(t, p.SkipPrevious())
	require.Eventually(t, func() bool {
		return driver.Locator() == "/music/1.mp3"
	}, waitTimeout, waitTick)
	assert.Equal(t, 1, q.CurrentIndex())
}

func TestPlayer_PlayTrackAt(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	p, driver, _ := newTestPlayer(t)
	defer p.Shutdown()

	require.NoError(t, p.SetQueue(createTestTracks(3), 0))
	waitForPlayerStatus(t, p, domain.StatusPlaying)

	require.NoError(t, p.PlayTrackAt(2))
	require.Eventually(t, func() bool {
		return driver.Locator() == "/music/2.mp3"
	}, waitTimeout, waitTick)

	// Out of range: no-op.
	require.NoError(t, p.PlayTrackAt(99))
	assert.Equal(t, "/music/2.mp3", driver.Locator())
}

func TestPlayer_QueueEditing(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	p, _, q := newTestPlayer(t)
	defer p.Shutdown()

	p.AddToQueue(createTestTrack("a", "A"))
	p.AddAllToQueue([]domain.Track{createTestTrack("b", "B"), createTestTrack("c", "C")})
	p.InsertIntoQueue(createTestTrack("x", "X"), 1)
	assert.Equal(t, []string{"a", "x", "b", "c"}, trackIDs(p.Queue()))

	p.MoveInQueue(3, 0)
	assert.Equal(t, []string{"c", "a", "x", "b"}, trackIDs(p.Queue()))

	p.RemoveFromQueue(2)
	assert.Equal(t, []string{"c", "a", "b"}, trackIDs(p.Queue()))

	require.NoError(t, p.ClearQueue())
	assert.Empty(t, p.Queue())
	assert.True(t, q.IsEmpty())
	assert.Equal(t, domain.StatusStopped, p.State().Status)
}

func trackIDs(tracks []domain.Track) []string {
	ids := make([]string, 0, len(tracks))
	for _, track := range tracks {
		ids = append(ids, track.ID)
	}
	return ids
}

func TestPlayer_ShuffleAndRepeat(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	p, _, q := newTestPlayer(t)
	defer p.Shutdown()

	require.NoError(t, p.SetQueue(createTestTracks(5), 0))
	waitForPlayerStatus(t, p, domain.StatusPlaying)

	p.ToggleShuffle()
	assert.True(t, q.Shuffled())
	p.ToggleShuffle()
	assert.False(t, q.Shuffled())

	p.SetRepeatMode(domain.RepeatAll)
	assert.Equal(t, domain.RepeatAll, q.RepeatMode())
}

func TestPlayer_SelectSource_Unknown(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	p, _, _ := newTestPlayer(t)
	defer p.Shutdown()

	err := p.SelectSource("streaming")
	assert.ErrorIs(t, err, domain.ErrUnknownSource)
}

func TestPlayer_SelectSource_SwitchClearsQueue(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	p, _, _ := newTestPlayer(t)
	defer p.Shutdown()

	other := &stubSource{typ: domain.SourceType("other")}
	p.RegisterSource(other)

	require.NoError(t, p.SetQueue(createTestTracks(3), 0))
	waitForPlayerStatus(t, p, domain.StatusPlaying)

	require.NoError(t, p.SelectSource("other"))

	assert.Equal(t, domain.SourceType("other"), p.ActiveSource())
	assert.Empty(t, p.Queue())
	assert.Equal(t, domain.StatusStopped, p.State().Status)

	// Re-selecting the active source changes nothing.
	p.AddToQueue(createTestTrack("a", "A"))
	require.NoError(t, p.SelectSource("other"))
	assert.Len(t, p.Queue(), 1)
}

func TestPlayer_Resolve_PrefersTrackSource(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	log := logger.NewTestLogger()
	h := hub.New(log)
	q := queue.New(h)
	driver := mock.NewDriver(log)
	engine := NewEngine(log, driver, q, h, testSampleInterval)
	p := New(log, q, engine, h, nil)
	defer p.Shutdown()

	// The active (first registered) source cannot resolve anything; the
	// track's own source tag must route resolution to the other source.
	p.RegisterSource(&stubSource{typ: domain.SourceLocal, resolveErr: fmt.Errorf("not mine")})
	p.RegisterSource(&stubSource{typ: domain.SourceType("other")})

	track := createTestTrack("1", "Song")
	track.Source = "other"
	require.NoError(t, p.SetQueue([]domain.Track{track}, 0))

	waitForPlayerStatus(t, p, domain.StatusPlaying)
	assert.Equal(t, track.Locator, driver.Locator())
}

func TestPlayer_Resolve_UnknownTagFallsBackToActive(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	p, driver, _ := newTestPlayer(t)
	defer p.Shutdown()

	track := createTestTrack("1", "Song")
	track.Source = "nonexistent"
	require.NoError(t, p.SetQueue([]domain.Track{track}, 0))

	waitForPlayerStatus(t, p, domain.StatusPlaying)
	assert.Equal(t, track.Locator, driver.Locator())
}

func TestPlayer_Search(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	log := logger.NewTestLogger()
	h := hub.New(log)
	q := queue.New(h)
	driver := mock.NewDriver(log)
	engine := NewEngine(log, driver, q, h, testSampleInterval)
	p := New(log, q, engine, h, nil)
	defer p.Shutdown()

	// No source registered yet.
	_, err := p.Search(context.Background(), "query")
	assert.ErrorIs(t, err, domain.ErrNoActiveSource)

	want := createTestTracks(2)
	p.RegisterSource(&stubSource{typ: domain.SourceLocal, searchResults: want})

	got, err := p.Search(context.Background(), "query")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPlayer_Search_WrapsSourceError(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	p, _, _ := newTestPlayer(t)
	defer p.Shutdown()

	other := &stubSource{typ: domain.SourceType("other"), searchErr: fmt.Errorf("backend down")}
	p.RegisterSource(other)
	require.NoError(t, p.SelectSource("other"))

	_, err := p.Search(context.Background(), "query")
	require.Error(t, err)

	var srcErr *domain.SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, domain.SourceType("other"), srcErr.Source)
	assert.Equal(t, "search", srcErr.Op)
}

func TestPlayer_Recommendations(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	p, _, _ := newTestPlayer(t)
	defer p.Shutdown()

	want := createTestTracks(4)
	other := &stubSource{typ: domain.SourceType("other"), recsResults: want}
	p.RegisterSource(other)
	require.NoError(t, p.SelectSource("other"))

	got, err := p.Recommendations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPlayer_Playlists_RoundTrip(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	p, driver, _ := newTestPlayer(t)
	defer p.Shutdown()

	require.NoError(t, p.SetQueue(createTestTracks(3), 0))
	waitForPlayerStatus(t, p, domain.StatusPlaying)

	playlist, err := p.SaveQueueAsPlaylist("road trip")
	require.NoError(t, err)
	assert.Equal(t, "road trip", playlist.Name)
	assert.Len(t, playlist.Tracks, 3)

	all, err := p.Playlists()
	require.NoError(t, err)
	require.Len(t, all, 1)

	// Loading replaces the queue and starts from the first track.
	require.NoError(t, p.SetQueue([]domain.Track{createTestTrack("z", "Z")}, 0))
	require.Eventually(t, func() bool {
		return driver.Locator() == "/music/z.mp3"
	}, waitTimeout, waitTick)

	require.NoError(t, p.LoadPlaylist(playlist.ID))
	assert.Len(t, p.Queue(), 3)
	require.Eventually(t, func() bool {
		return driver.Locator() == "/music/0.mp3"
	}, waitTimeout, waitTick)

	require.NoError(t, p.DeletePlaylist(playlist.ID))
	all, err = p.Playlists()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestPlayer_LoadPlaylist_Unknown(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	p, _, _ := newTestPlayer(t)
	defer p.Shutdown()

	err := p.LoadPlaylist("no-such-id")
	assert.ErrorIs(t, err, domain.ErrPlaylistNotFound)
}

func TestPlayer_PlayPauseStop(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	p, driver, _ := newTestPlayer(t)
	defer p.Shutdown()

	require.NoError(t, p.SetQueue(createTestTracks(1), 0))
	waitForPlayerStatus(t, p, domain.StatusPlaying)

	require.NoError(t, p.Pause())
	assert.Equal(t, domain.StatusPaused, p.State().Status)

	require.NoError(t, p.Play())
	assert.Equal(t, domain.StatusPlaying, p.State().Status)

	require.NoError(t, p.Stop())
	assert.Equal(t, domain.StatusStopped, p.State().Status)
	assert.False(t, driver.Playing())
}
