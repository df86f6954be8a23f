package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"journey-player/internal/journey"
)

// Gazetteer resolves location codes against the locations table. It accepts
// either latitude/longitude columns or a PostGIS geom column.
type Gazetteer struct {
	db *sql.DB

	mu    sync.Mutex
	query string
}

func NewGazetteer(db *sql.DB) *Gazetteer {
	return &Gazetteer{db: db}
}

func (g *Gazetteer) Resolve(ctx context.Context, code string) (journey.Location, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return journey.Location{}, journey.ErrLocationNotFound
	}
	query, err := g.lookupQuery(ctx)
	if err != nil {
		return journey.Location{}, err
	}

	var (
		loc           journey.Location
		name, country sql.NullString
	)
	err = g.db.QueryRowContext(ctx, query, code).Scan(&name, &country, &loc.Latitude, &loc.Longitude)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return journey.Location{}, fmt.Errorf("%w: %s", journey.ErrLocationNotFound, code)
		}
		return journey.Location{}, fmt.Errorf("query location %s: %w", code, err)
	}
	loc.DisplayName = name.String
	if loc.DisplayName == "" {
		loc.DisplayName = code
	}
	loc.Country = country.String
	return loc, nil
}

// lookupQuery picks the query for the table's column layout once it has been
// introspected successfully.
func (g *Gazetteer) lookupQuery(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.query != "" {
		return g.query, nil
	}
	q, err := g.buildQuery(ctx)
	if err != nil {
		return "", err
	}
	g.query = q
	return q, nil
}

func (g *Gazetteer) buildQuery(ctx context.Context) (string, error) {
	cols, err := hasColumns(ctx, g.db, "public", "locations", "latitude", "longitude", "geom")
	if err != nil {
		return "", fmt.Errorf("introspect locations columns: %w", err)
	}
	switch {
	case cols["latitude"] && cols["longitude"]:
		return `SELECT name, country, latitude, longitude
             FROM locations WHERE UPPER(code) = $1 AND latitude IS NOT NULL AND longitude IS NOT NULL`, nil
	case cols["geom"]:
		return `SELECT name, country, ST_Y(geom::geometry), ST_X(geom::geometry)
             FROM locations WHERE UPPER(code) = $1 AND geom IS NOT NULL`, nil
	default:
		return "", fmt.Errorf("locations table missing expected columns (latitude/longitude or geom)")
	}
}
