// internal/catalog/postgres.go
package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trackline/trackline/internal/room"
)

// PostgresSource loads rounds from a playlist catalog in Postgres.
type PostgresSource struct {
	pool *pgxpool.Pool
}

// NewPostgresSource connects a pgx pool against the given database URL.
func NewPostgresSource(ctx context.Context, databaseURL string) (*PostgresSource, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting catalog database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging catalog database: %w", err)
	}
	return &PostgresSource{pool: pool}, nil
}

// Close releases the underlying pool.
func (p *PostgresSource) Close() {
	p.pool.Close()
}

// LoadRounds returns every track of the selected playlists as a round. An
// empty playlist selection loads the whole track table.
func (p *PostgresSource) LoadRounds(ctx context.Context, playlistIDs []string) ([]room.Round, error) {
	q := `
		SELECT t.id, t.track_ref, t.title, t.artist_ref, t.artist_name,
		       t.release_year, t.media_uri, t.start_offset_ms
		FROM tracks t
		JOIN playlist_tracks pt ON pt.track_id = t.id
		WHERE pt.playlist_id = ANY($1)
		ORDER BY pt.playlist_id, pt.position
	`
	args := []interface{}{playlistIDs}
	if len(playlistIDs) == 0 {
		q = `
			SELECT t.id, t.track_ref, t.title, t.artist_ref, t.artist_name,
			       t.release_year, t.media_uri, t.start_offset_ms
			FROM tracks t
			ORDER BY t.id
		`
		args = nil
	}

	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying catalog rounds: %w", err)
	}
	defer rows.Close()

	var rounds []room.Round
	for rows.Next() {
		var r room.Round
		if err := rows.Scan(&r.ID, &r.TrackRef, &r.Title, &r.ArtistRef, &r.ArtistName,
			&r.Year, &r.MediaURI, &r.StartOffsetMs); err != nil {
			return nil, fmt.Errorf("scanning catalog round: %w", err)
		}
		rounds = append(rounds, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading catalog rounds: %w", err)
	}
	return rounds, nil
}
