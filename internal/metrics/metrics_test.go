package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journey-player/internal/journey"
	"journey-player/internal/playback"
	"journey-player/internal/stats"
)

func TestNewCollector_Initial(t *testing.T) {
	c := NewCollector(10)
	assert.Equal(t, 10.0, testutil.ToFloat64(c.SpeedMultiplier))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.State.WithLabelValues("idle")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.State.WithLabelValues("playing")))
}

func TestCollector_ObserveJourney(t *testing.T) {
	c := NewCollector(1)
	c.ObserveJourney(&journey.Journey{
		Waypoints: make([]journey.Waypoint, 4),
		Warnings: []journey.Warning{
			{Kind: journey.WarnUnresolvedLocation},
			{Kind: journey.WarnUnresolvedLocation},
			{Kind: journey.WarnDroppedLeg},
		},
	})
	c.ObserveJourney(nil)

	assert.Equal(t, 4.0, testutil.ToFloat64(c.Waypoints))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.SequencerWarnings.WithLabelValues(string(journey.WarnUnresolvedLocation))))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.SequencerWarnings.WithLabelValues(string(journey.WarnDroppedLeg))))
}

func TestCollector_Observe(t *testing.T) {
	c := NewCollector(1)
	playing := playback.State{Phase: playback.Playing, CurrentIndex: 2, IsPlaying: true, SpeedMultiplier: 20,
		Cumulative: stats.Totals{DistanceKm: 5570, CO2Kg: 1392.5}}

	c.Observe(playback.Event{Kind: playback.EventFrame, State: playing})
	c.Observe(playback.Event{Kind: playback.EventFrame, State: playing})
	c.Observe(playback.Event{Kind: playback.EventArrival, State: playing, LegDuration: 2 * time.Second})
	c.Observe(playback.Event{Kind: playback.EventArrival, State: playing, Hop: true})

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Frames))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.LegsAnimated))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Hops))
	assert.Equal(t, 1, testutil.CollectAndCount(c.LegAnimation))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.CurrentIndex))
	assert.Equal(t, 5570.0, testutil.ToFloat64(c.CumulativeDistance))
	assert.Equal(t, 1392.5, testutil.ToFloat64(c.CumulativeCO2))
	assert.Equal(t, 20.0, testutil.ToFloat64(c.SpeedMultiplier))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.State.WithLabelValues("playing")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.State.WithLabelValues("idle")))

	c.Observe(playback.Event{Kind: playback.EventSeek, State: playback.State{Phase: playback.Paused, CurrentIndex: 1}})
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Seeks))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.State.WithLabelValues("paused")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.State.WithLabelValues("playing")))
}

func TestCollector_PublisherMetrics(t *testing.T) {
	c := NewCollector(1)
	c.NATSSetConnected(true)
	c.NATSPublishedInc()
	c.NATSPublishErrInc()
	c.PublishObserve(time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.NATSConnected))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.NATSPublished))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.NATSPublishErrs))

	c.NATSSetConnected(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.NATSConnected))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector(1)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "journey_player_speed_multiplier 1"))
	assert.Contains(t, body, `journey_player_state{state="idle"} 1`)
}
