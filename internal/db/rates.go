package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"journey-player/internal/currency"
)

// RateStore serves the most recently fetched rate for a currency pair. The
// inverse pair is used when only the opposite direction is stored.
type RateStore struct {
	db *sql.DB
}

func NewRateStore(db *sql.DB) *RateStore {
	return &RateStore{db: db}
}

func (s *RateStore) Rate(ctx context.Context, from, to string) (float64, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == to {
		return 1, nil
	}
	q := `
SELECT rate, inverted FROM (
  SELECT rate, false AS inverted, fetched_at FROM exchange_rates WHERE base = $1 AND quote = $2
  UNION ALL
  SELECT rate, true AS inverted, fetched_at FROM exchange_rates WHERE base = $2 AND quote = $1
) r
WHERE rate > 0
ORDER BY fetched_at DESC
LIMIT 1`
	var (
		rate     float64
		inverted bool
	)
	if err := s.db.QueryRowContext(ctx, q, from, to).Scan(&rate, &inverted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: %s/%s", currency.ErrUnknownCurrency, from, to)
		}
		return 0, fmt.Errorf("query exchange rate %s/%s: %w", from, to, err)
	}
	if inverted {
		rate = 1 / rate
	}
	return rate, nil
}
