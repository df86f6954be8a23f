package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrJourneyNotFound = errors.New("journey not found")

// JourneyRef identifies a stored journey.
type JourneyRef struct {
	ID   int64
	Name string
}

// ResolveJourney returns the journey whose name equals selector, ignoring case,
// with the most recent imported_at. Names are compared literally, so '_' and
// '%' match only themselves. A numeric selector matches the id directly.
func ResolveJourney(ctx context.Context, db *sql.DB, selector string) (JourneyRef, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return JourneyRef{}, fmt.Errorf("journey is required")
	}
	var (
		q   string
		arg any = selector
	)
	if id, err := strconv.ParseInt(selector, 10, 64); err == nil {
		q = `SELECT id, name FROM journeys WHERE id = $1`
		arg = id
	} else {
		q = `
SELECT id, name
FROM journeys
WHERE LOWER(name) = LOWER($1)
ORDER BY imported_at DESC
LIMIT 1`
	}
	var (
		ref  JourneyRef
		name sql.NullString
	)
	if err := db.QueryRowContext(ctx, q, arg).Scan(&ref.ID, &name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return JourneyRef{}, fmt.Errorf("%w: %q", ErrJourneyNotFound, selector)
		}
		return JourneyRef{}, err
	}
	ref.Name = name.String
	if ref.Name == "" {
		ref.Name = selector
	}
	return ref, nil
}
