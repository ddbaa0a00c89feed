package report

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository writes incident reports to the managed datastore.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a connection pool against the managed
// backend.
func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresRepository{pool: pool}, nil
}

// Close releases the pool.
func (r *PostgresRepository) Close() {
	r.pool.Close()
}

// Ping reports backend reachability; the queue replay watcher uses it as
// its connectivity probe.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// InsertIncident writes one report row. SOS rows share this table with
// incident_type marking them.
func (r *PostgresRepository) InsertIncident(ctx context.Context, rep IncidentReport) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO incident_reports (
			reporter_id, incident_type, transit_line, location_name,
			description, latitude, longitude, accuracy, image_url, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rep.ReporterID, rep.IncidentType, rep.TransitLine, rep.LocationName,
		rep.Description, rep.Latitude, rep.Longitude, rep.Accuracy,
		nullable(rep.ImageURL), rep.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to insert incident report: %w", err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
