// Package ports defines interfaces for dependency inversion.
package ports

import (
	"context"

	"github.com/chorus-audio/chorus/internal/domain"
)

// Source is a provider of playable tracks (filesystem scan, streaming
// catalog, ...). Sources only produce candidate Track records and locators;
// they never touch the queue or the engine.
//
// Lookup methods take a context so callers can bound or cancel slow
// providers; results are returned to the calling layer and failures leave
// any prior results untouched.
type Source interface {
	// Type returns the tag under which this source is selected.
	Type() domain.SourceType

	// Initialize prepares the source for use (index build, auth, ...).
	Initialize(ctx context.Context) error

	// Search returns tracks matching the query.
	Search(ctx context.Context, query string) ([]domain.Track, error)

	// Recommendations returns tracks the source suggests playing next.
	Recommendations(ctx context.Context) ([]domain.Track, error)

	// Resolve turns a track into a locator the output driver can open.
	Resolve(ctx context.Context, track domain.Track) (string, error)
}
