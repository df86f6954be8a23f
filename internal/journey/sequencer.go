// Package journey turns recorded travel legs into the ordered waypoint
// sequence that playback walks through.
package journey

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// WarningKind classifies a data-quality problem found while sequencing.
type WarningKind string

const (
	WarnUnresolvedLocation WarningKind = "unresolved_location"
	WarnDroppedLeg         WarningKind = "dropped_leg"
	WarnMissingCost        WarningKind = "missing_cost"
	WarnMissingDuration    WarningKind = "missing_duration"
)

// Warning is a non-fatal problem with one leg. LegIndex refers to Journey.Legs.
type Warning struct {
	Kind     WarningKind
	LegIndex int
	Code     string
	Err      error
}

// Journey is the sequenced result. Waypoints reference entries of Legs.
type Journey struct {
	Legs      []Leg
	Waypoints []Waypoint
	Warnings  []Warning
}

// Empty reports whether nothing could be sequenced; such a journey cannot be
// played.
func (j *Journey) Empty() bool { return j == nil || len(j.Waypoints) == 0 }

// Sequencer builds journeys using a Resolver for coordinates.
type Sequencer struct {
	resolver Resolver
	log      zerolog.Logger
}

func NewSequencer(resolver Resolver, log zerolog.Logger) *Sequencer {
	return &Sequencer{resolver: resolver, log: log}
}

// Build sorts legs by date (stable) and expands them into waypoints. An origin
// waypoint is emitted only for the first leg or when the leg does not start
// where the previous waypoint is; that origin is then marked disconnected.
// Endpoints that do not resolve are skipped and reported as warnings. The
// input slice is not modified.
func (s *Sequencer) Build(ctx context.Context, legs []Leg) *Journey {
	j := &Journey{Legs: slices.Clone(legs)}
	slices.SortStableFunc(j.Legs, func(a, b Leg) int { return a.Date.Compare(b.Date) })

	for i := range j.Legs {
		leg := &j.Legs[i]
		s.checkLeg(j, i, leg)

		emitted := 0
		origin := normalizeCode(leg.OriginCode)
		n := len(j.Waypoints)
		if n == 0 || j.Waypoints[n-1].LocationCode != origin {
			if wp, ok := s.waypoint(ctx, j, i, origin, leg.Date); ok {
				wp.IsDisconnected = n > 0
				j.Waypoints = append(j.Waypoints, wp)
				emitted++
			}
		}

		if wp, ok := s.waypoint(ctx, j, i, normalizeCode(leg.DestinationCode), leg.Date); ok {
			wp.OriginatingLeg = leg
			j.Waypoints = append(j.Waypoints, wp)
			emitted++
		}

		if emitted == 0 {
			s.warn(j, Warning{Kind: WarnDroppedLeg, LegIndex: i, Code: leg.OriginCode + "-" + leg.DestinationCode})
		}
	}

	for i := range j.Waypoints {
		j.Waypoints[i].SequenceIndex = i
	}
	s.log.Debug().
		Int("legs", len(j.Legs)).
		Int("waypoints", len(j.Waypoints)).
		Int("warnings", len(j.Warnings)).
		Msg("journey sequenced")
	return j
}

func (s *Sequencer) waypoint(ctx context.Context, j *Journey, legIndex int, code string, date time.Time) (Waypoint, bool) {
	loc, err := s.resolver.Resolve(ctx, code)
	if err != nil {
		s.warn(j, Warning{Kind: WarnUnresolvedLocation, LegIndex: legIndex, Code: code, Err: err})
		return Waypoint{}, false
	}
	name := loc.DisplayName
	if name == "" {
		name = code
	}
	return Waypoint{
		LocationCode: code,
		DisplayName:  name,
		Country:      loc.Country,
		Latitude:     loc.Latitude,
		Longitude:    loc.Longitude,
		Date:         date,
	}, true
}

func (s *Sequencer) checkLeg(j *Journey, i int, leg *Leg) {
	if leg.CostAmount == nil || *leg.CostAmount <= 0 {
		s.warn(j, Warning{Kind: WarnMissingCost, LegIndex: i})
	}
	if leg.DurationHours == nil && ParseMode(string(leg.Mode)).Overland() {
		s.warn(j, Warning{Kind: WarnMissingDuration, LegIndex: i})
	}
}

func (s *Sequencer) warn(j *Journey, w Warning) {
	j.Warnings = append(j.Warnings, w)
	ev := s.log.Warn()
	if w.Kind == WarnMissingCost || w.Kind == WarnMissingDuration {
		ev = s.log.Debug()
	}
	ev.Str("kind", string(w.Kind)).Int("leg", w.LegIndex).Str("code", w.Code).Err(w.Err).Msg("data quality")
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
