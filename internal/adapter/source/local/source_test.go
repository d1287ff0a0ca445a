package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chorus-audio/chorus/internal/domain"
	"github.com/chorus-audio/chorus/internal/logger"
)

// writeFile creates a file with throwaway contents. The bytes are not a
// valid audio stream, so tag reading fails and the filename fallback kicks in.
func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("not really audio"), 0o644))
	return path
}

func newTestSource(t *testing.T, dirs ...string) *Source {
	t.Helper()
	return NewSource(logger.NewTestLogger(), dirs)
}

func TestSource_Type(t *testing.T) {
	s := newTestSource(t)
	assert.Equal(t, domain.SourceLocal, s.Type())
}

func TestSource_Initialize_ScansRecursively(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.mp3")
	writeFile(t, dir, "albums/two.flac")
	writeFile(t, dir, "albums/deep/three.ogg")
	writeFile(t, dir, "notes.txt")
	writeFile(t, dir, "cover.jpg")

	s := newTestSource(t, dir)
	require.NoError(t, s.Initialize(context.Background()))

	tracks, err := s.Search(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, tracks, 3, "only supported audio extensions are picked up")

	for _, track := range tracks {
		assert.NotEmpty(t, track.ID)
		assert.Equal(t, domain.SourceLocal, track.Source)
		assert.NotEmpty(t, track.Locator)
	}
}

func TestSource_Initialize_FilenameFallback(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "My Favorite Song.mp3")

	s := newTestSource(t, dir)
	require.NoError(t, s.Initialize(context.Background()))

	tracks, err := s.Search(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, "My Favorite Song", tracks[0].Title)
}

func TestSource_Initialize_MissingDirectoryIsSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.mp3")

	// A directory that does not exist is skipped by the walk, not fatal.
	s := newTestSource(t, filepath.Join(dir, "nope"), dir)
	require.NoError(t, s.Initialize(context.Background()))

	tracks, err := s.Search(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, tracks, 1)
}

func TestSource_Initialize_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.mp3")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newTestSource(t, dir)
	err := s.Initialize(ctx)
	require.Error(t, err)

	var srcErr *domain.SourceError
	assert.ErrorAs(t, err, &srcErr)
}

func TestSource_Search_SubstringMatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Autumn Leaves.mp3")
	writeFile(t, dir, "Summertime.mp3")
	writeFile(t, dir, "Winter Song.flac")

	s := newTestSource(t, dir)
	require.NoError(t, s.Initialize(context.Background()))

	results, err := s.Search(context.Background(), "sUmMeR")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Summertime", results[0].Title)

	results, err = s.Search(context.Background(), "song that is not there")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSource_Recommendations(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.mp3", "b.mp3", "c.mp3"} {
		writeFile(t, dir, name)
	}

	s := newTestSource(t, dir)
	require.NoError(t, s.Initialize(context.Background()))

	recs, err := s.Recommendations(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 3, "small catalogs are returned whole")

	// No duplicates in a single sample.
	seen := make(map[string]bool)
	for _, track := range recs {
		assert.False(t, seen[track.ID])
		seen[track.ID] = true
	}
}

func TestSource_Recommendations_EmptyCatalog(t *testing.T) {
	s := newTestSource(t)
	require.NoError(t, s.Initialize(context.Background()))

	recs, err := s.Recommendations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestSource_Resolve(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "one.mp3")

	s := newTestSource(t, dir)

	track := domain.Track{ID: "1", Source: domain.SourceLocal, Locator: path}
	locator, err := s.Resolve(context.Background(), track)
	require.NoError(t, err)
	assert.Equal(t, path, locator)
}

func TestSource_Resolve_MissingFile(t *testing.T) {
	s := newTestSource(t)

	track := domain.Track{ID: "1", Source: domain.SourceLocal, Locator: "/nonexistent/file.mp3"}
	_, err := s.Resolve(context.Background(), track)
	require.Error(t, err)

	var srcErr *domain.SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, "resolve", srcErr.Op)
}

func TestSource_Resolve_EmptyLocator(t *testing.T) {
	s := newTestSource(t)

	_, err := s.Resolve(context.Background(), domain.Track{ID: "1"})
	assert.Error(t, err)
}

func TestSource_TrackFromPath(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "Road Song.mp3")

	s := newTestSource(t)
	track := s.TrackFromPath(path)

	assert.NotEmpty(t, track.ID)
	assert.Equal(t, "Road Song", track.Title)
	assert.Equal(t, domain.SourceLocal, track.Source)
	assert.Equal(t, path, track.Locator)
}
