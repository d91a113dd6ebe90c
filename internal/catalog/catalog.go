// internal/catalog/catalog.go
package catalog

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/trackline/trackline/internal/room"
)

// Source supplies the ordered round pool for a set of playlist identifiers.
type Source interface {
	LoadRounds(ctx context.Context, playlistIDs []string) ([]room.Round, error)
}

// BuiltinSource serves the fixed built-in round set regardless of playlist
// selection. It is the graceful fallback when no external catalog is
// reachable.
type BuiltinSource struct{}

// LoadRounds returns a copy of the built-in rounds.
func (BuiltinSource) LoadRounds(ctx context.Context, playlistIDs []string) ([]room.Round, error) {
	return append([]room.Round{}, builtinRounds...), nil
}

// fallbackSource tries a primary source first and falls back to the built-in
// set when the primary fails or yields nothing. With the fallback in place a
// catalog outage degrades the game instead of producing an empty one.
type fallbackSource struct {
	primary Source
	logger  *logrus.Logger
}

// WithFallback wraps a primary source with the built-in fallback.
func WithFallback(primary Source, logger *logrus.Logger) Source {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &fallbackSource{primary: primary, logger: logger}
}

func (f *fallbackSource) LoadRounds(ctx context.Context, playlistIDs []string) ([]room.Round, error) {
	if f.primary != nil {
		rounds, err := f.primary.LoadRounds(ctx, playlistIDs)
		if err == nil && len(rounds) > 0 {
			return rounds, nil
		}
		if err != nil {
			f.logger.WithError(err).WithField("playlists", playlistIDs).
				Warn("Catalog source failed, serving built-in rounds")
		}
	}
	return BuiltinSource{}.LoadRounds(ctx, playlistIDs)
}

// builtinRounds is a small fixed catalog spanning several decades so the
// timeline mechanic works out of the box.
var builtinRounds = []room.Round{
	{ID: "bi-01", TrackRef: "track:johnny-b-goode", Title: "Johnny B. Goode", ArtistRef: "artist:chuck-berry", ArtistName: "Chuck Berry", Year: 1958, MediaURI: "media://builtin/johnny-b-goode", StartOffsetMs: 0},
	{ID: "bi-02", TrackRef: "track:respect", Title: "Respect", ArtistRef: "artist:aretha-franklin", ArtistName: "Aretha Franklin", Year: 1967, MediaURI: "media://builtin/respect", StartOffsetMs: 0},
	{ID: "bi-03", TrackRef: "track:superstition", Title: "Superstition", ArtistRef: "artist:stevie-wonder", ArtistName: "Stevie Wonder", Year: 1972, MediaURI: "media://builtin/superstition", StartOffsetMs: 5000},
	{ID: "bi-04", TrackRef: "track:dancing-queen", Title: "Dancing Queen", ArtistRef: "artist:abba", ArtistName: "ABBA", Year: 1976, MediaURI: "media://builtin/dancing-queen", StartOffsetMs: 0},
	{ID: "bi-05", TrackRef: "track:billie-jean", Title: "Billie Jean", ArtistRef: "artist:michael-jackson", ArtistName: "Michael Jackson", Year: 1982, MediaURI: "media://builtin/billie-jean", StartOffsetMs: 8000},
	{ID: "bi-06", TrackRef: "track:like-a-prayer", Title: "Like a Prayer", ArtistRef: "artist:madonna", ArtistName: "Madonna", Year: 1989, MediaURI: "media://builtin/like-a-prayer", StartOffsetMs: 0},
	{ID: "bi-07", TrackRef: "track:smells-like-teen-spirit", Title: "Smells Like Teen Spirit", ArtistRef: "artist:nirvana", ArtistName: "Nirvana", Year: 1991, MediaURI: "media://builtin/smells-like-teen-spirit", StartOffsetMs: 0},
	{ID: "bi-08", TrackRef: "track:wonderwall", Title: "Wonderwall", ArtistRef: "artist:oasis", ArtistName: "Oasis", Year: 1995, MediaURI: "media://builtin/wonderwall", StartOffsetMs: 10000},
	{ID: "bi-09", TrackRef: "track:my-heart-will-go-on", Title: "My Heart Will Go On", ArtistRef: "artist:celine-dion", ArtistName: "Celine Dion", Year: 1997, MediaURI: "media://builtin/my-heart-will-go-on", StartOffsetMs: 0},
	{ID: "bi-10", TrackRef: "track:crazy-in-love", Title: "Crazy in Love", ArtistRef: "artist:beyonce", ArtistName: "Beyonce", Year: 2003, MediaURI: "media://builtin/crazy-in-love", StartOffsetMs: 0},
	{ID: "bi-11", TrackRef: "track:mr-brightside", Title: "Mr. Brightside", ArtistRef: "artist:the-killers", ArtistName: "The Killers", Year: 2004, MediaURI: "media://builtin/mr-brightside", StartOffsetMs: 0},
	{ID: "bi-12", TrackRef: "track:rolling-in-the-deep", Title: "Rolling in the Deep", ArtistRef: "artist:adele", ArtistName: "Adele", Year: 2010, MediaURI: "media://builtin/rolling-in-the-deep", StartOffsetMs: 0},
	{ID: "bi-13", TrackRef: "track:get-lucky", Title: "Get Lucky", ArtistRef: "artist:daft-punk", ArtistName: "Daft Punk", Year: 2013, MediaURI: "media://builtin/get-lucky", StartOffsetMs: 15000},
	{ID: "bi-14", TrackRef: "track:uptown-funk", Title: "Uptown Funk", ArtistRef: "artist:mark-ronson", ArtistName: "Mark Ronson", Year: 2014, MediaURI: "media://builtin/uptown-funk", StartOffsetMs: 0},
	{ID: "bi-15", TrackRef: "track:blinding-lights", Title: "Blinding Lights", ArtistRef: "artist:the-weeknd", ArtistName: "The Weeknd", Year: 2019, MediaURI: "media://builtin/blinding-lights", StartOffsetMs: 0},
	{ID: "bi-16", TrackRef: "track:drivers-license", Title: "drivers license", ArtistRef: "artist:olivia-rodrigo", ArtistName: "Olivia Rodrigo", Year: 2021, MediaURI: "media://builtin/drivers-license", StartOffsetMs: 0},
}
