package playback

import (
	"time"

	"journey-player/internal/geodesy"
	"journey-player/internal/journey"
	"journey-player/internal/stats"
)

// EventKind names the transition an Event reports.
type EventKind string

const (
	EventStart          EventKind = "start"
	EventFrame          EventKind = "frame"
	EventArrival        EventKind = "arrival"
	EventPauseRequested EventKind = "pause_requested"
	EventPause          EventKind = "pause"
	EventResume         EventKind = "resume"
	EventSeek           EventKind = "seek"
	EventSpeed          EventKind = "speed"
	EventComplete       EventKind = "complete"
	EventReset          EventKind = "reset"
)

// Event is delivered to observers on every transition and on every animation
// frame. It is a copy; observers may keep it.
type Event struct {
	Kind EventKind
	At   time.Time

	State State

	// WaypointIndex is the waypoint the indicator is on, or is heading to
	// during a frame. -1 before playback starts.
	WaypointIndex int
	Waypoint      journey.Waypoint

	// Progress is the eased fraction of the leg being animated.
	Progress float64
	Position geodesy.Point
	Bearing  float64

	// Live is Cumulative plus the animated share of the current leg.
	Live stats.Totals

	// Partial is the part of the current leg drawn so far, split at the
	// date line. Set on frames only.
	Partial [][]geodesy.Point

	// Hop marks an arrival at a disconnected origin, reached without a path.
	Hop bool
	// LegDuration is the animation length of the leg that just arrived.
	LegDuration time.Duration
}

// Observer receives playback events on the scheduler's goroutine.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(ev Event) { f(ev) }
