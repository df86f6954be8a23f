package playback

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journey-player/internal/geodesy"
	"journey-player/internal/journey"
	"journey-player/internal/stats"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func sequence(t testing.TB, resolver journey.StaticResolver, legs ...journey.Leg) *journey.Journey {
	t.Helper()
	return journey.NewSequencer(resolver, zerolog.Nop()).Build(context.Background(), legs)
}

// chain builds a connected journey of n waypoints P0..P(n-1).
func chain(n int) *journey.Journey {
	resolver := journey.StaticResolver{}
	var legs []journey.Leg
	for i := 0; i < n; i++ {
		resolver[fmt.Sprintf("P%d", i)] = journey.Location{Latitude: float64(i) * 3, Longitude: float64(i) * 7}
	}
	for i := 1; i < n; i++ {
		cost := float64(10 * i)
		mode := journey.ModeFlight
		if i%2 == 0 {
			mode = journey.ModeTrain
		}
		legs = append(legs, journey.Leg{
			Date:            start.AddDate(0, 0, i),
			OriginCode:      fmt.Sprintf("P%d", i-1),
			DestinationCode: fmt.Sprintf("P%d", i),
			Mode:            mode,
			CostAmount:      &cost,
		})
	}
	if n == 1 {
		legs = append(legs, journey.Leg{Date: start, OriginCode: "P0", DestinationCode: "NOWHERE"})
	}
	return journey.NewSequencer(resolver, zerolog.Nop()).Build(context.Background(), legs)
}

var airports = journey.StaticResolver{
	"JFK": {Latitude: 40.6413, Longitude: -73.7781},
	"LHR": {Latitude: 51.4700, Longitude: -0.4543},
	"CDG": {Latitude: 49.0097, Longitude: 2.5479},
	"FCO": {Latitude: 41.8003, Longitude: 12.2389},
	"NRT": {Latitude: 35.7720, Longitude: 140.3929},
	"SFO": {Latitude: 37.6213, Longitude: -122.3790},
}

// gapped is JFK -> LHR, then CDG (disconnected) -> FCO.
func gapped(t testing.TB) *journey.Journey {
	hours := 3.0
	return sequence(t, airports,
		journey.Leg{Date: start, OriginCode: "JFK", DestinationCode: "LHR", Mode: journey.ModeFlight},
		journey.Leg{Date: start.AddDate(0, 0, 3), OriginCode: "CDG", DestinationCode: "FCO", Mode: journey.ModeTrain, DurationHours: &hours},
	)
}

type recorder struct {
	events []Event
}

func (r *recorder) Observe(ev Event) { r.events = append(r.events, ev) }

func (r *recorder) kinds() []EventKind {
	var out []EventKind
	for _, ev := range r.events {
		if ev.Kind != EventFrame {
			out = append(out, ev.Kind)
		}
	}
	return out
}

func (r *recorder) arrivals() []Event {
	var out []Event
	for _, ev := range r.events {
		if ev.Kind == EventArrival {
			out = append(out, ev)
		}
	}
	return out
}

func visitedFlags(e *Engine) []bool {
	s := e.Snapshot()
	out := make([]bool, len(s.Waypoints))
	for i, wp := range s.Waypoints {
		out[i] = wp.Visited
	}
	return out
}

func currentCount(e *Engine) int {
	n := 0
	for _, wp := range e.Snapshot().Waypoints {
		if wp.Current {
			n++
		}
	}
	return n
}

func TestEngine_SingleFlightScenario(t *testing.T) {
	j := sequence(t, airports, journey.Leg{Date: start, OriginCode: "JFK", DestinationCode: "LHR", Mode: journey.ModeFlight})
	require.Len(t, j.Waypoints, 2)

	sched := newManualScheduler()
	rec := &recorder{}
	e := New(j, sched, Options{}, rec)

	e.Start()
	assert.Equal(t, Playing, e.State().Phase)
	assert.Equal(t, 1, e.State().CurrentIndex)
	assert.Equal(t, []bool{true, false}, visitedFlags(e))

	sched.runUntilIdle(t)

	st := e.State()
	assert.Equal(t, Complete, st.Phase)
	assert.Equal(t, 2, st.CurrentIndex)
	assert.False(t, st.IsPlaying)
	assert.Equal(t, []bool{true, true}, visitedFlags(e))
	assert.InDelta(t, geodesy.HaversineKm(40.6413, -73.7781, 51.47, -0.4543), st.Cumulative.DistanceKm, 1e-9)
	assert.Equal(t, []EventKind{EventStart, EventArrival, EventComplete}, rec.kinds())

	snap := e.Snapshot()
	assert.True(t, snap.Waypoints[1].Current)
	assert.False(t, snap.Waypoints[0].Current)
}

func TestEngine_EmptyJourneyStaysIdle(t *testing.T) {
	sched := newManualScheduler()
	rec := &recorder{}
	for _, j := range []*journey.Journey{nil, sequence(t, airports)} {
		e := New(j, sched, Options{}, rec)
		e.Start()
		e.Resume()
		e.Seek(0.5)
		e.JumpTo(3)
		e.RequestPause()
		assert.Equal(t, Idle, e.State().Phase)
		assert.Equal(t, 0, e.State().CurrentIndex)
		assert.Equal(t, 0, e.Len())
		assert.Empty(t, e.Snapshot().Waypoints)
		assert.Empty(t, e.Trail())
	}
	assert.True(t, sched.idle())
	assert.Empty(t, rec.events)
}

func TestEngine_SingleWaypointCompletesImmediately(t *testing.T) {
	j := chain(1)
	require.Len(t, j.Waypoints, 1)

	e := New(j, newManualScheduler(), Options{})
	e.Start()
	assert.Equal(t, Complete, e.State().Phase)
	assert.Equal(t, 1, e.State().CurrentIndex)
}

func TestEngine_SeekHalfOfTenWaypoints(t *testing.T) {
	j := chain(10)
	require.Len(t, j.Waypoints, 10)

	e := New(j, newManualScheduler(), Options{})
	e.Seek(0.5)

	st := e.State()
	assert.Equal(t, 5, st.CurrentIndex)
	assert.Equal(t, Paused, st.Phase)
	assert.Equal(t, []bool{true, true, true, true, true, true, false, false, false, false}, visitedFlags(e))
	assert.True(t, e.Snapshot().Waypoints[5].Current)
	assert.Equal(t, 1, currentCount(e))

	calc := stats.NewCalculator()
	var want stats.Totals
	for k := 1; k <= 5; k++ {
		want = want.Add(calc.Leg(j.Waypoints[k-1], j.Waypoints[k]))
	}
	assert.Equal(t, want, st.Cumulative)
}

func TestEngine_SeekIsIdempotent(t *testing.T) {
	for _, f := range []float64{0, 0.05, 0.33, 0.5, 0.99, 1} {
		sched := newManualScheduler()
		e := New(chain(10), sched, Options{})
		e.Start()
		sched.tick()

		e.Seek(f)
		first := e.Snapshot()
		e.Seek(f)
		second := e.Snapshot()
		assert.Equal(t, first, second, "f=%v", f)
	}
}

func TestEngine_SeekClamps(t *testing.T) {
	e := New(chain(4), newManualScheduler(), Options{})

	e.Seek(-3)
	assert.Equal(t, 0, e.State().CurrentIndex)
	assert.Equal(t, stats.Totals{}, e.State().Cumulative)

	e.Seek(7)
	assert.Equal(t, 3, e.State().CurrentIndex)

	e.Seek(1)
	assert.Equal(t, 3, e.State().CurrentIndex)

	e.Seek(math.NaN())
	assert.Equal(t, 0, e.State().CurrentIndex)

	e.JumpTo(-1)
	assert.Equal(t, 0, e.State().CurrentIndex)
	e.JumpTo(99)
	assert.Equal(t, 3, e.State().CurrentIndex)
	assert.Equal(t, []bool{true, true, true, true}, visitedFlags(e))
}

func TestEngine_RecomputeMatchesForwardPlay(t *testing.T) {
	for name, j := range map[string]*journey.Journey{"chain": chain(8), "gapped": gapped(t)} {
		t.Run(name, func(t *testing.T) {
			sched := newManualScheduler()
			rec := &recorder{}
			New(j, sched, Options{Speed: 100}, rec).Start()
			sched.runUntilIdle(t)

			arrivals := rec.arrivals()
			require.Len(t, arrivals, len(j.Waypoints)-1)
			for _, ev := range arrivals {
				e := New(j, newManualScheduler(), Options{})
				e.JumpTo(ev.WaypointIndex)
				assert.Equal(t, ev.State.Cumulative, e.State().Cumulative, "waypoint %d", ev.WaypointIndex)
			}
		})
	}
}

func TestEngine_MarksStayConsistentDuringForwardPlay(t *testing.T) {
	sched := newManualScheduler()
	var e *Engine
	lastVisited := 0
	e = New(chain(6), sched, Options{Speed: 20}, ObserverFunc(func(ev Event) {
		assert.LessOrEqual(t, currentCount(e), 1)
		n := 0
		for _, v := range visitedFlags(e) {
			if v {
				n++
			}
		}
		assert.GreaterOrEqual(t, n, lastVisited)
		lastVisited = n
		assert.GreaterOrEqual(t, ev.State.CurrentIndex, 0)
		assert.LessOrEqual(t, ev.State.CurrentIndex, e.Len())
	}))
	e.Start()
	sched.runUntilIdle(t)
	assert.Equal(t, 6, lastVisited)
	assert.Equal(t, 1, currentCount(e))
}

func TestEngine_PauseDuringLegIsDeferred(t *testing.T) {
	sched := newManualScheduler()
	rec := &recorder{}
	e := New(chain(4), sched, Options{}, rec)
	e.Start()
	sched.tick()
	sched.tick()

	e.RequestPause()
	st := e.State()
	assert.Equal(t, PausePending, st.Phase)
	assert.True(t, st.PausePending)
	assert.True(t, st.IsPlaying)
	assert.Equal(t, 1, st.CurrentIndex)

	sched.runUntilIdle(t)
	st = e.State()
	assert.Equal(t, Paused, st.Phase)
	assert.False(t, st.PausePending)
	assert.False(t, st.IsPlaying)
	assert.Equal(t, 2, st.CurrentIndex)
	assert.Equal(t, []bool{true, true, false, false}, visitedFlags(e))
	assert.Equal(t, []EventKind{EventStart, EventPauseRequested, EventArrival, EventPause}, rec.kinds())

	e.Resume()
	assert.Equal(t, Playing, e.State().Phase)
	sched.runUntilIdle(t)
	assert.Equal(t, Complete, e.State().Phase)
	assert.Equal(t, 4, e.State().CurrentIndex)
}

func TestEngine_PauseDuringFinalLegCompletes(t *testing.T) {
	sched := newManualScheduler()
	rec := &recorder{}
	e := New(chain(2), sched, Options{}, rec)
	e.Start()
	sched.tick()

	e.RequestPause()
	require.Equal(t, PausePending, e.State().Phase)

	sched.runUntilIdle(t)
	st := e.State()
	assert.Equal(t, Complete, st.Phase)
	assert.Equal(t, 2, st.CurrentIndex)
	assert.False(t, st.PausePending)
	assert.False(t, st.IsPlaying)
	assert.Equal(t, []EventKind{EventStart, EventPauseRequested, EventArrival, EventComplete}, rec.kinds())
}

func TestEngine_PauseBetweenLegsIsImmediate(t *testing.T) {
	sched := newManualScheduler()
	e := New(chain(4), sched, Options{Speed: 100})
	e.Start()
	sched.runUntil(t, func() bool { return e.State().CurrentIndex == 2 })
	require.Equal(t, Playing, e.State().Phase)

	e.RequestPause()
	assert.Equal(t, Paused, e.State().Phase)

	// the pending settle timer must not restart playback
	sched.runUntilIdle(t)
	assert.Equal(t, Paused, e.State().Phase)
	assert.Equal(t, 2, e.State().CurrentIndex)
}

func TestEngine_ResumeCancelsPendingPause(t *testing.T) {
	sched := newManualScheduler()
	e := New(chain(3), sched, Options{})
	e.Start()
	sched.tick()
	e.RequestPause()
	e.Resume()
	assert.Equal(t, Playing, e.State().Phase)
	assert.False(t, e.State().PausePending)

	sched.runUntilIdle(t)
	assert.Equal(t, Complete, e.State().Phase)
}

func TestEngine_PauseIgnoredWhenNotPlaying(t *testing.T) {
	e := New(chain(3), newManualScheduler(), Options{})
	e.RequestPause()
	assert.Equal(t, Idle, e.State().Phase)
}

func TestEngine_SeekSupersedesAnimation(t *testing.T) {
	sched := newManualScheduler()
	rec := &recorder{}
	e := New(chain(5), sched, Options{}, rec)
	e.Start()
	sched.tick()
	sched.tick()
	require.True(t, e.animating)

	e.Seek(0.6)
	after := e.Snapshot()
	seen := len(rec.events)

	sched.runUntilIdle(t)
	assert.Equal(t, after, e.Snapshot())
	assert.Len(t, rec.events, seen, "stale frames must not emit")
	assert.Equal(t, 3, after.State.CurrentIndex)
}

func TestEngine_ResumeAfterSeek(t *testing.T) {
	j := chain(10)
	sched := newManualScheduler()
	rec := &recorder{}
	e := New(j, sched, Options{Speed: 100}, rec)

	e.JumpTo(3)
	e.Resume()
	sched.runUntil(t, func() bool { return len(rec.arrivals()) == 1 })
	assert.Equal(t, 4, rec.arrivals()[0].WaypointIndex)
	assert.Equal(t, 5, e.State().CurrentIndex)

	sched.runUntilIdle(t)
	st := e.State()
	assert.Equal(t, Complete, st.Phase)
	assert.Equal(t, 10, st.CurrentIndex)
	assert.Equal(t, stats.NewCalculator().Sum(j.Waypoints, 9), st.Cumulative)
}

func TestEngine_ResumeFromLastWaypointCompletes(t *testing.T) {
	e := New(chain(4), newManualScheduler(), Options{})
	e.Seek(1)
	e.Resume()
	assert.Equal(t, Complete, e.State().Phase)
	assert.Equal(t, 4, e.State().CurrentIndex)
}

func TestEngine_ResumeWhenCompleteRestarts(t *testing.T) {
	sched := newManualScheduler()
	e := New(chain(3), sched, Options{Speed: 100})
	e.Start()
	sched.runUntilIdle(t)
	require.Equal(t, Complete, e.State().Phase)

	e.Resume()
	st := e.State()
	assert.Equal(t, Playing, st.Phase)
	assert.Equal(t, 1, st.CurrentIndex)
	assert.Equal(t, stats.Totals{}, st.Cumulative)
	assert.Equal(t, []bool{true, false, false}, visitedFlags(e))
	assert.Equal(t, 100, st.SpeedMultiplier)
}

func TestEngine_ResumeFromIdleStarts(t *testing.T) {
	e := New(chain(3), newManualScheduler(), Options{})
	e.Resume()
	assert.Equal(t, Playing, e.State().Phase)
}

func TestEngine_Reset(t *testing.T) {
	sched := newManualScheduler()
	e := New(chain(4), sched, Options{})
	e.Start()
	sched.tick()
	e.Reset()

	st := e.State()
	assert.Equal(t, Idle, st.Phase)
	assert.Equal(t, 0, st.CurrentIndex)
	assert.Equal(t, 0, currentCount(e))
	assert.Equal(t, []bool{false, false, false, false}, visitedFlags(e))

	sched.runUntilIdle(t)
	assert.Equal(t, Idle, e.State().Phase)
}

func TestEngine_SetSpeed(t *testing.T) {
	sched := newManualScheduler()
	rec := &recorder{}
	e := New(chain(3), sched, Options{}, rec)

	assert.ErrorIs(t, e.SetSpeed(7), ErrUnsupportedSpeed)
	assert.Equal(t, 1, e.State().SpeedMultiplier)

	e.Start()
	sched.tick()
	require.NoError(t, e.SetSpeed(100))
	assert.Equal(t, 100, e.State().SpeedMultiplier)

	sched.runUntilIdle(t)
	arrivals := rec.arrivals()
	require.Len(t, arrivals, 2)
	assert.Equal(t, MaxLegDuration, arrivals[0].LegDuration, "in-flight leg keeps its timing")
	assert.Equal(t, MaxLegDuration/100, arrivals[1].LegDuration)
}

func TestEngine_LegDurationClamp(t *testing.T) {
	e := New(chain(2), newManualScheduler(), Options{PathPoints: 4})
	assert.Equal(t, MinLegDuration, e.legDuration(5))

	e = New(chain(2), newManualScheduler(), Options{PathPoints: 40})
	assert.Equal(t, 820*time.Millisecond, e.legDuration(41))

	require.NoError(t, e.SetSpeed(10))
	assert.Equal(t, 82*time.Millisecond, e.legDuration(41))
}

func TestEngine_FrameEvents(t *testing.T) {
	sched := newManualScheduler()
	rec := &recorder{}
	j := chain(2)
	e := New(j, sched, Options{}, rec)
	e.Start()
	sched.runUntilIdle(t)

	leg := stats.NewCalculator().Leg(j.Waypoints[0], j.Waypoints[1])
	last := -1.0
	frames := 0
	for _, ev := range rec.events {
		if ev.Kind != EventFrame {
			continue
		}
		frames++
		assert.Equal(t, 1, ev.WaypointIndex)
		assert.GreaterOrEqual(t, ev.Progress, last)
		last = ev.Progress
		assert.GreaterOrEqual(t, ev.Live.DistanceKm, 0.0)
		assert.LessOrEqual(t, ev.Live.DistanceKm, leg.DistanceKm+1e-9)
		require.NotEmpty(t, ev.Partial)
		seg := ev.Partial[len(ev.Partial)-1]
		assert.Equal(t, ev.Position, seg[len(seg)-1])
	}
	assert.Equal(t, 1.0, last)
	assert.Greater(t, frames, 100, "2s leg at 16ms frames")
}

func TestEngine_HopToDisconnectedOrigin(t *testing.T) {
	j := gapped(t)
	require.True(t, j.Waypoints[2].IsDisconnected)

	sched := newManualScheduler()
	rec := &recorder{}
	e := New(j, sched, Options{Speed: 100}, rec)
	e.Start()
	sched.runUntilIdle(t)

	arrivals := rec.arrivals()
	require.Len(t, arrivals, 3)
	assert.False(t, arrivals[0].Hop)
	assert.True(t, arrivals[1].Hop)
	assert.Equal(t, arrivals[0].State.Cumulative, arrivals[1].State.Cumulative)
	assert.False(t, arrivals[2].Hop)

	for _, ev := range rec.events {
		if ev.Kind == EventFrame {
			assert.NotEqual(t, 2, ev.WaypointIndex, "no animation into a disconnected origin")
		}
	}

	// the train leg's explicit duration is authoritative
	calc := stats.NewCalculator()
	first := calc.Leg(j.Waypoints[0], j.Waypoints[1])
	assert.InDelta(t, first.TimeHours+3, e.State().Cumulative.TimeHours, 1e-9)
}

func TestEngine_Trail(t *testing.T) {
	e := New(gapped(t), newManualScheduler(), Options{PathPoints: 10})
	assert.Empty(t, e.Trail())

	e.JumpTo(1)
	trail := e.Trail()
	require.Len(t, trail, 1)
	assert.Len(t, trail[0], 11)

	e.JumpTo(2)
	assert.Len(t, e.Trail(), 1, "hop adds nothing")

	e.JumpTo(3)
	assert.Len(t, e.Trail(), 2)
}

func TestEngine_TrailSplitsAtDateLine(t *testing.T) {
	j := sequence(t, airports, journey.Leg{Date: start, OriginCode: "NRT", DestinationCode: "SFO", Mode: journey.ModeFlight})
	e := New(j, newManualScheduler(), Options{})
	e.JumpTo(1)
	assert.Len(t, e.Trail(), 2)
}

func TestEngine_SnapshotIsCopy(t *testing.T) {
	e := New(chain(3), newManualScheduler(), Options{})
	e.JumpTo(1)
	snap := e.Snapshot()
	snap.Waypoints[2].Visited = true
	snap.State.CurrentIndex = 42
	assert.Equal(t, []bool{true, true, false}, visitedFlags(e))
	assert.Equal(t, 1, e.State().CurrentIndex)
}

func TestEaseInOut(t *testing.T) {
	assert.Equal(t, 0.0, EaseInOut(0))
	assert.Equal(t, 0.125, EaseInOut(0.25))
	assert.Equal(t, 0.5, EaseInOut(0.5))
	assert.Equal(t, 0.875, EaseInOut(0.75))
	assert.Equal(t, 1.0, EaseInOut(1))
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "pause_pending", PausePending.String())
	b, err := Complete.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "complete", string(b))
	assert.True(t, ValidSpeed(20))
	assert.False(t, ValidSpeed(2))
}
