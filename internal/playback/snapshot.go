package playback

import (
	"journey-player/internal/geodesy"
	"journey-player/internal/journey"
)

// WaypointStatus is a waypoint together with its playback marks.
type WaypointStatus struct {
	journey.Waypoint
	Visited bool
	Current bool
}

// Snapshot is a copy of everything an observer may render.
type Snapshot struct {
	State     State
	Waypoints []WaypointStatus
}

// Snapshot copies the current state; later playback does not change it.
func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		State:     e.state,
		Waypoints: make([]WaypointStatus, len(e.waypoints)),
	}
	for i, wp := range e.waypoints {
		s.Waypoints[i] = WaypointStatus{
			Waypoint: wp,
			Visited:  e.visited[i],
			Current:  i == e.current,
		}
	}
	return s
}

// Trail returns the drawn paths of every leg completed up to the waypoint
// the indicator rests on, split at the date line. Hops leave no trail.
func (e *Engine) Trail() [][]geodesy.Point {
	var segments [][]geodesy.Point
	for k := 1; k <= e.at; k++ {
		if _, ok := e.opts.Calculator.Step(e.waypoints, k); !ok {
			continue
		}
		path := geodesy.GreatCirclePath(e.points[k-1], e.points[k], e.opts.PathPoints)
		segments = append(segments, geodesy.SplitAtDateLine(path)...)
	}
	return segments
}
