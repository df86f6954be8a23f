package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"journey-player/internal/journey"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// FetchLegs returns the legs of a journey in stored order. The sequencer
// re-sorts them by date, so position only breaks ties.
func FetchLegs(ctx context.Context, db *sql.DB, journeyID int64) ([]journey.Leg, error) {
	q := `
SELECT travel_date, origin_code, destination_code, COALESCE(mode, ''), cost_amount, duration_hours
FROM legs
WHERE journey_id = $1
ORDER BY position`
	rows, err := db.QueryContext(ctx, q, journeyID)
	if err != nil {
		return nil, fmt.Errorf("query legs: %w", err)
	}
	defer rows.Close()

	var legs []journey.Leg
	for rows.Next() {
		var (
			date         time.Time
			origin, dest sql.NullString
			mode         string
			cost, dur    sql.NullFloat64
		)
		if err := rows.Scan(&date, &origin, &dest, &mode, &cost, &dur); err != nil {
			return nil, err
		}
		legs = append(legs, journey.Leg{
			Date:            date,
			OriginCode:      strings.TrimSpace(origin.String),
			DestinationCode: strings.TrimSpace(dest.String),
			Mode:            journey.ParseMode(mode),
			CostAmount:      nullFloat(cost),
			DurationHours:   nullFloat(dur),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return legs, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// hasColumns returns a map of requested column names to existence for the given table.
func hasColumns(ctx context.Context, db *sql.DB, schema, table string, cols ...string) (map[string]bool, error) {
	res := make(map[string]bool, len(cols))
	if len(cols) == 0 {
		return res, nil
	}
	for _, c := range cols {
		res[c] = false
	}
	q := `SELECT column_name FROM information_schema.columns WHERE table_schema = $1 AND table_name = $2 AND column_name = ANY($3)`
	rows, err := db.QueryContext(ctx, q, schema, table, cols)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		res[name] = true
	}
	return res, rows.Err()
}
