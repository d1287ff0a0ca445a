// Package local implements the Source interface over the local filesystem.
// Tracks are discovered by scanning configured music directories; metadata is
// read from the files' tags with a filename fallback.
package local

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dhowden/tag"

	"github.com/chorus-audio/chorus/internal/domain"
	"github.com/chorus-audio/chorus/internal/ports"
)

// supportedExts lists the file extensions the scan picks up. It matches what
// the output drivers can decode.
var supportedExts = []string{".mp3", ".flac", ".wav", ".ogg"}

// recommendationLimit caps how many tracks Recommendations samples.
const recommendationLimit = 20

// Source is a filesystem-backed track source.
//
// Thread-safety: the catalog is rebuilt under the write lock by Initialize
// and read under the read lock by Search and Recommendations.
type Source struct {
	// Dependencies (injected)
	logger *slog.Logger

	// Configuration
	dirs []string

	// State
	mu      sync.RWMutex
	catalog []domain.Track
}

// NewSource creates a local source scanning the given directories. The
// logger may be nil.
func NewSource(logger *slog.Logger, dirs []string) *Source {
	return &Source{
		logger: logger,
		dirs:   dirs,
	}
}

// Type implements ports.Source.
func (s *Source) Type() domain.SourceType {
	return domain.SourceLocal
}

// Initialize implements ports.Source. It walks the configured directories
// and builds the in-memory catalog. Unreadable files and folders are skipped.
func (s *Source) Initialize(ctx context.Context) error {
	files := make([]string, 0)
	for _, dir := range s.dirs {
		found, err := collectAudioFiles(ctx, dir)
		if err != nil {
			return domain.NewSourceError(domain.SourceLocal, "initialize", err)
		}
		files = append(files, found...)
	}

	tracks := make([]domain.Track, 0, len(files))
	for _, path := range files {
		select {
		case <-ctx.Done():
			return domain.NewSourceError(domain.SourceLocal, "initialize", ctx.Err())
		default:
		}
		tracks = append(tracks, s.trackFromFile(path))
	}

	s.mu.Lock()
	s.catalog = tracks
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("local catalog built",
			slog.Int("tracks", len(tracks)),
			slog.Int("directories", len(s.dirs)))
	}
	return nil
}

// Search implements ports.Source. Matching is a case-insensitive substring
// test over title, artist and album. An empty query returns the whole
// catalog.
func (s *Source) Search(ctx context.Context, query string) ([]domain.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewSourceError(domain.SourceLocal, "search", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return append([]domain.Track(nil), s.catalog...), nil
	}

	results := make([]domain.Track, 0)
	for _, track := range s.catalog {
		if strings.Contains(strings.ToLower(track.Title), needle) ||
			strings.Contains(strings.ToLower(track.Artist), needle) ||
			strings.Contains(strings.ToLower(track.Album), needle) {
			results = append(results, track)
		}
	}
	return results, nil
}

// Recommendations implements ports.Source. Without listening history there
// is nothing to model, so it returns a random sample of the catalog.
func (s *Source) Recommendations(ctx context.Context) ([]domain.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewSourceError(domain.SourceLocal, "recommendations", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.catalog)
	if n == 0 {
		return []domain.Track{}, nil
	}

	limit := recommendationLimit
	if limit > n {
		limit = n
	}

	picks := make([]domain.Track, 0, limit)
	for _, i := range rand.Perm(n)[:limit] {
		picks = append(picks, s.catalog[i])
	}
	return picks, nil
}

// Resolve implements ports.Source. The locator of a local track is already
// a playable path; resolution only verifies the file still exists.
func (s *Source) Resolve(ctx context.Context, track domain.Track) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", domain.NewSourceError(domain.SourceLocal, "resolve", err)
	}

	if track.Locator == "" {
		return "", domain.NewSourceError(domain.SourceLocal, "resolve",
			fmt.Errorf("track %s has no locator", track.ID))
	}
	if _, err := os.Stat(track.Locator); err != nil {
		return "", domain.NewSourceError(domain.SourceLocal, "resolve", err)
	}
	return track.Locator, nil
}

// TrackFromPath builds a playable track for a single file, whether or not
// it lives under a scanned directory.
func (s *Source) TrackFromPath(path string) domain.Track {
	return s.trackFromFile(path)
}

// trackFromFile builds a Track from a file's tags, falling back to the
// filename when the file carries no readable tags.
func (s *Source) trackFromFile(path string) domain.Track {
	track := domain.Track{
		ID:      domain.NewTrackID(),
		Title:   titleFromFilename(path),
		Source:  domain.SourceLocal,
		Locator: path,
	}

	f, err := os.Open(path)
	if err != nil {
		return track
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		if s.logger != nil {
			s.logger.Debug("no readable tags, using filename",
				slog.String("path", path),
				slog.Any("error", err))
		}
		return track
	}

	if title := strings.TrimSpace(meta.Title()); title != "" {
		track.Title = title
	}
	track.Artist = strings.TrimSpace(meta.Artist())
	track.Album = strings.TrimSpace(meta.Album())
	return track
}

// titleFromFilename derives a display title from the file name, without the
// extension.
func titleFromFilename(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// collectAudioFiles recursively collects supported audio files under root.
func collectAudioFiles(ctx context.Context, root string) ([]string, error) {
	files := make([]string, 0)

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			// Skip files/folders we can't access
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if isSupported(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return files, err
	}
	return files, nil
}

// isSupported checks the file extension against the supported set.
func isSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, supported := range supportedExts {
		if ext == supported {
			return true
		}
	}
	return false
}

// Verify that Source implements the Source interface
var _ ports.Source = (*Source)(nil)
