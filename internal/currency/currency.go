// Package currency converts base-currency costs for display. Live rates come
// from a RateProvider; a fixed table answers whenever the provider cannot.
package currency

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

var ErrUnknownCurrency = errors.New("unknown currency")

// RateProvider returns how many units of `to` one unit of `from` buys.
type RateProvider interface {
	Rate(ctx context.Context, from, to string) (float64, error)
}

// fallbackPerEUR is the static table used when no provider answers.
var fallbackPerEUR = map[string]float64{
	"EUR": 1,
	"USD": 1.08,
	"GBP": 0.86,
	"CHF": 0.95,
	"JPY": 162.0,
	"CNY": 7.8,
	"AUD": 1.65,
	"CAD": 1.47,
	"NZD": 1.78,
	"SEK": 11.4,
	"NOK": 11.6,
	"DKK": 7.46,
	"PLN": 4.3,
	"CZK": 25.0,
	"HUF": 390.0,
	"INR": 90.0,
	"THB": 38.5,
	"SGD": 1.45,
	"HKD": 8.45,
	"KRW": 1450.0,
	"MXN": 18.5,
	"BRL": 5.4,
	"ZAR": 20.0,
	"TRY": 35.0,
	"AED": 3.97,
}

// FallbackRate answers from the static table.
func FallbackRate(from, to string) (float64, error) {
	f, ok := fallbackPerEUR[from]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCurrency, from)
	}
	t, ok := fallbackPerEUR[to]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCurrency, to)
	}
	return t / f, nil
}

// Converter turns base-currency amounts into the display currency.
type Converter struct {
	provider RateProvider
	base     string
	display  string
	log      zerolog.Logger
}

// NewConverter returns a Converter; provider may be nil to use only the
// static table.
func NewConverter(provider RateProvider, base, display string, log zerolog.Logger) *Converter {
	return &Converter{
		provider: provider,
		base:     normalize(base),
		display:  normalize(display),
		log:      log,
	}
}

func (c *Converter) Base() string    { return c.base }
func (c *Converter) Display() string { return c.display }

// Rate returns the from->to rate, preferring the provider.
func (c *Converter) Rate(ctx context.Context, from, to string) (float64, error) {
	from, to = normalize(from), normalize(to)
	if from == to {
		return 1, nil
	}
	if c.provider != nil {
		r, err := c.provider.Rate(ctx, from, to)
		if err == nil && r > 0 {
			return r, nil
		}
		c.log.Debug().Err(err).Str("from", from).Str("to", to).Msg("rate provider unavailable, using fallback table")
	}
	return FallbackRate(from, to)
}

// ToDisplay converts a base-currency amount. An unknown currency leaves the
// amount unconverted and reports the error.
func (c *Converter) ToDisplay(ctx context.Context, amount float64) (float64, error) {
	r, err := c.Rate(ctx, c.base, c.display)
	if err != nil {
		return amount, err
	}
	return amount * r, nil
}

func normalize(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "EUR"
	}
	return code
}
