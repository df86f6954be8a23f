// Package playback animates a journey: it moves an indicator along the
// great-circle path of each leg, keeps running totals, and exposes
// play/pause/resume/seek controls. An Engine is not safe for concurrent use;
// call it only from the goroutine its Scheduler runs callbacks on.
package playback

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"journey-player/internal/geodesy"
	"journey-player/internal/journey"
	"journey-player/internal/stats"
)

const (
	MinLegDuration = 500 * time.Millisecond
	MaxLegDuration = 2000 * time.Millisecond

	DefaultPointStep   = 20 * time.Millisecond
	DefaultSettleDelay = 300 * time.Millisecond
)

type Options struct {
	// PathPoints is the number of great-circle steps per leg.
	PathPoints int
	// PointStep is the time budget per path sample before clamping to
	// [MinLegDuration, MaxLegDuration].
	PointStep time.Duration
	// SettleDelay separates an arrival from the next departure.
	SettleDelay time.Duration
	// Speed is the initial multiplier; it must be one of Speeds.
	Speed      int
	Calculator stats.Calculator
	Logger     zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.PathPoints < 1 {
		o.PathPoints = geodesy.DefaultPathPoints
	}
	if o.PointStep <= 0 {
		o.PointStep = DefaultPointStep
	}
	if o.SettleDelay < 0 {
		o.SettleDelay = 0
	}
	if !ValidSpeed(o.Speed) {
		o.Speed = 1
	}
	return o
}

type legAnimation struct {
	from, to int
	path     []geodesy.Point
	start    time.Time
	duration time.Duration
	totals   stats.Totals
}

// Engine owns the playback state and the visited/current marks of every
// waypoint.
type Engine struct {
	opts      Options
	sched     Scheduler
	observers []Observer
	log       zerolog.Logger

	waypoints []journey.Waypoint
	points    []geodesy.Point

	state   State
	visited []bool
	current int // waypoint carrying the current mark, -1 for none
	at      int // waypoint the indicator rests on, -1 before start

	// epoch is bumped whenever pending callbacks must be dropped.
	epoch     uint64
	animating bool
	leg       *legAnimation
}

// New creates an engine for j. A nil or empty journey yields an engine that
// stays Idle forever.
func New(j *journey.Journey, sched Scheduler, opts Options, observers ...Observer) *Engine {
	opts = opts.withDefaults()
	e := &Engine{
		opts:      opts,
		sched:     sched,
		observers: observers,
		log:       opts.Logger,
		state:     initialState(opts.Speed),
		current:   -1,
		at:        -1,
	}
	if j != nil {
		e.waypoints = j.Waypoints
	}
	e.points = make([]geodesy.Point, len(e.waypoints))
	for i, wp := range e.waypoints {
		e.points[i] = geodesy.Point{Lat: wp.Latitude, Lon: wp.Longitude}
	}
	e.visited = make([]bool, len(e.waypoints))
	return e
}

// Len is the number of waypoints.
func (e *Engine) Len() int { return len(e.waypoints) }

// State returns a copy of the playback state.
func (e *Engine) State() State { return e.state }

// Start begins playback from the first waypoint. It only acts when Idle and
// the journey is not empty.
func (e *Engine) Start() {
	if len(e.waypoints) == 0 || e.state.Phase != Idle {
		return
	}
	e.epoch++
	e.visited[0] = true
	e.current = 0
	e.at = 0
	e.state.CurrentIndex = 1
	e.setPhase(Playing)
	e.emit(e.event(EventStart))
	e.advance()
}

// advance animates the indicator from the waypoint it rests on to the next.
func (e *Engine) advance() {
	if e.animating {
		return
	}
	next := e.at + 1
	if next >= len(e.waypoints) {
		e.complete()
		return
	}
	if _, ok := e.opts.Calculator.Step(e.waypoints, next); !ok {
		e.arrive(next, stats.Totals{}, true, 0)
		return
	}

	path := geodesy.GreatCirclePath(e.points[e.at], e.points[next], e.opts.PathPoints)
	e.leg = &legAnimation{
		from:     e.at,
		to:       next,
		path:     path,
		start:    e.sched.Now(),
		duration: e.legDuration(len(path)),
		totals:   e.opts.Calculator.Leg(e.waypoints[e.at], e.waypoints[next]),
	}
	e.animating = true
	epoch := e.epoch
	e.sched.RequestFrame(func(now time.Time) { e.frame(epoch, now) })
}

func (e *Engine) legDuration(samples int) time.Duration {
	d := geodesy.Clamp(time.Duration(samples)*e.opts.PointStep, MinLegDuration, MaxLegDuration)
	return d / time.Duration(e.state.SpeedMultiplier)
}

func (e *Engine) frame(epoch uint64, now time.Time) {
	if epoch != e.epoch || e.leg == nil {
		return
	}
	leg := e.leg

	t := 1.0
	if leg.duration > 0 {
		t = geodesy.Clamp(float64(now.Sub(leg.start))/float64(leg.duration), 0, 1)
	}
	eased := EaseInOut(t)
	pos, brng := geodesy.InterpolatePath(leg.path, eased)

	drawn := int(math.Floor(eased * float64(len(leg.path)-1)))
	partial := append(leg.path[:drawn+1:drawn+1], pos)

	ev := e.event(EventFrame)
	ev.At = now
	ev.WaypointIndex = leg.to
	ev.Waypoint = e.waypoints[leg.to]
	ev.Progress = eased
	ev.Position = pos
	ev.Bearing = brng
	ev.Live = e.state.Cumulative.Add(leg.totals.Scale(eased))
	ev.Partial = geodesy.SplitAtDateLine(partial)
	e.emit(ev)

	if t >= 1 {
		e.arrive(leg.to, leg.totals, false, leg.duration)
		return
	}
	e.sched.RequestFrame(func(now time.Time) { e.frame(epoch, now) })
}

// arrive lands the indicator on waypoint k and decides what happens next:
// complete at the end, pause if one was requested, otherwise settle and go on.
func (e *Engine) arrive(k int, totals stats.Totals, hop bool, took time.Duration) {
	e.animating = false
	e.leg = nil
	e.visited[k] = true
	e.current = k
	e.at = k
	if !hop {
		e.state.Cumulative = e.state.Cumulative.Add(totals)
	}
	e.state.CurrentIndex = k + 1

	ev := e.event(EventArrival)
	ev.Progress = 1
	ev.Hop = hop
	ev.LegDuration = took
	e.emit(ev)

	// Reaching the last waypoint completes the journey even with a pause
	// pending; there is nothing left to pause before.
	if e.state.CurrentIndex >= len(e.waypoints) {
		e.complete()
		return
	}
	if e.state.PausePending {
		e.setPhase(Paused)
		e.emit(e.event(EventPause))
		return
	}
	epoch := e.epoch
	e.sched.AfterFunc(e.opts.SettleDelay, func() {
		if epoch != e.epoch || e.state.Phase != Playing {
			return
		}
		e.advance()
	})
}

func (e *Engine) complete() {
	e.animating = false
	e.leg = nil
	e.state.CurrentIndex = len(e.waypoints)
	e.setPhase(Complete)
	e.emit(e.event(EventComplete))
	e.log.Info().
		Int("waypoints", len(e.waypoints)).
		Float64("distance_km", e.state.Cumulative.DistanceKm).
		Float64("co2_kg", e.state.Cumulative.CO2Kg).
		Msg("journey complete")
}

// RequestPause stops playback. A leg in flight always finishes first so the
// trail never ends mid-segment; between legs the pause is immediate.
func (e *Engine) RequestPause() {
	if e.state.Phase != Playing {
		return
	}
	if e.animating {
		e.setPhase(PausePending)
		e.emit(e.event(EventPauseRequested))
		return
	}
	e.epoch++
	e.setPhase(Paused)
	e.emit(e.event(EventPause))
}

// Resume continues from where playback stands. From Idle it starts, from
// Complete it restarts, and with a pause pending it withdraws the request.
func (e *Engine) Resume() {
	switch e.state.Phase {
	case Idle:
		e.Start()
	case Complete:
		e.Restart()
	case PausePending:
		e.setPhase(Playing)
		e.emit(e.event(EventResume))
	case Paused:
		e.epoch++
		e.setPhase(Playing)
		e.emit(e.event(EventResume))
		e.advance()
	}
}

// Restart resets everything and plays from the first waypoint.
func (e *Engine) Restart() {
	e.Reset()
	e.Start()
}

// Reset cancels any animation and returns to Idle with no waypoint marked.
// The speed multiplier is kept.
func (e *Engine) Reset() {
	e.cancel()
	clear(e.visited)
	e.current = -1
	e.at = -1
	e.state = initialState(e.state.SpeedMultiplier)
	e.emit(e.event(EventReset))
}

// SetSpeed changes the multiplier used for legs started from now on.
func (e *Engine) SetSpeed(multiplier int) error {
	if !ValidSpeed(multiplier) {
		return ErrUnsupportedSpeed
	}
	e.state.SpeedMultiplier = multiplier
	e.emit(e.event(EventSpeed))
	return nil
}

// Seek jumps to the waypoint at fraction f of the sequence. f is clamped to
// [0,1]; NaN counts as 0.
func (e *Engine) Seek(f float64) {
	n := len(e.waypoints)
	if n == 0 {
		return
	}
	if math.IsNaN(f) {
		f = 0
	}
	target := int(math.Floor(geodesy.Clamp(f, 0, 1) * float64(n)))
	e.jump(geodesy.Clamp(target, 0, n-1))
}

// JumpTo seeks directly to waypoint index, clamped to the sequence.
func (e *Engine) JumpTo(index int) {
	n := len(e.waypoints)
	if n == 0 {
		return
	}
	e.jump(geodesy.Clamp(index, 0, n-1))
}

// jump rebuilds the state for target from scratch, so repeating it changes
// nothing. Any animation in flight is abandoned, not finished.
func (e *Engine) jump(target int) {
	e.cancel()
	for i := range e.visited {
		e.visited[i] = i <= target
	}
	e.current = target
	e.at = target
	e.state.CurrentIndex = target
	e.state.Cumulative = e.opts.Calculator.Sum(e.waypoints, target)
	e.setPhase(Paused)
	e.emit(e.event(EventSeek))
}

func (e *Engine) cancel() {
	e.epoch++
	e.animating = false
	e.leg = nil
}

func (e *Engine) setPhase(p Phase) {
	if e.state.Phase != p {
		e.log.Debug().Stringer("from", e.state.Phase).Stringer("to", p).Int("index", e.state.CurrentIndex).Msg("playback state")
	}
	e.state.Phase = p
	e.state.IsPlaying = p == Playing || p == PausePending
	e.state.PausePending = p == PausePending
}

func (e *Engine) event(kind EventKind) Event {
	ev := Event{
		Kind:          kind,
		At:            e.sched.Now(),
		State:         e.state,
		WaypointIndex: e.at,
		Live:          e.state.Cumulative,
	}
	if e.at >= 0 {
		ev.Waypoint = e.waypoints[e.at]
		ev.Position = e.points[e.at]
	}
	return ev
}

func (e *Engine) emit(ev Event) {
	for _, o := range e.observers {
		o.Observe(ev)
	}
}
