package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"journey-player/internal/journey"
	"journey-player/internal/playback"
)

var phases = []playback.Phase{playback.Idle, playback.Playing, playback.PausePending, playback.Paused, playback.Complete}

type Collector struct {
	reg *prometheus.Registry

	Waypoints    prometheus.Gauge
	CurrentIndex prometheus.Gauge
	State        *prometheus.GaugeVec // state label: one of the playback phases, 1 for the active one

	LegsAnimated prometheus.Counter
	Hops         prometheus.Counter
	Seeks        prometheus.Counter
	Frames       prometheus.Counter

	CumulativeDistance prometheus.Gauge
	CumulativeCO2      prometheus.Gauge

	LegAnimation prometheus.Histogram

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
	PublishDuration prometheus.Histogram

	SpeedMultiplier prometheus.Gauge

	SequencerWarnings *prometheus.CounterVec // kind label
}

func NewCollector(speedMultiplier int) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Waypoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "journey_player_waypoints",
			Help: "Number of waypoints in the loaded journey.",
		}),
		CurrentIndex: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "journey_player_current_index",
			Help: "Playback current index.",
		}),
		State: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "journey_player_state",
			Help: "1 for the active playback state, 0 otherwise.",
		}, []string{"state"}),
		LegsAnimated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "journey_player_legs_animated_total",
			Help: "Total legs animated to arrival.",
		}),
		Hops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "journey_player_hops_total",
			Help: "Total arrivals at disconnected waypoints without animation.",
		}),
		Seeks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "journey_player_seeks_total",
			Help: "Total seeks and jumps.",
		}),
		Frames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "journey_player_frames_total",
			Help: "Total animation frames rendered.",
		}),
		CumulativeDistance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "journey_player_cumulative_distance_km",
			Help: "Cumulative distance travelled in km.",
		}),
		CumulativeCO2: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "journey_player_cumulative_co2_kg",
			Help: "Cumulative CO2 emitted in kg.",
		}),
		LegAnimation: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "journey_player_leg_animation_seconds",
			Help:    "Planned animation duration of each animated leg.",
			Buckets: prometheus.LinearBuckets(0.25, 0.25, 8),
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "journey_player_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "journey_player_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "journey_player_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "journey_player_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		SpeedMultiplier: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "journey_player_speed_multiplier",
			Help: "Current speed multiplier.",
		}),
		SequencerWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "journey_player_sequencer_warnings_total",
			Help: "Data-quality warnings raised while building the journey.",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		c.Waypoints, c.CurrentIndex, c.State,
		c.LegsAnimated, c.Hops, c.Seeks, c.Frames,
		c.CumulativeDistance, c.CumulativeCO2, c.LegAnimation,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected, c.PublishDuration,
		c.SpeedMultiplier, c.SequencerWarnings,
	)

	c.SpeedMultiplier.Set(float64(speedMultiplier))
	c.setPhase(playback.Idle)

	return c
}

// ObserveJourney records the loaded journey's size and warnings.
func (c *Collector) ObserveJourney(j *journey.Journey) {
	if j == nil {
		return
	}
	c.Waypoints.Set(float64(len(j.Waypoints)))
	for _, w := range j.Warnings {
		c.SequencerWarnings.WithLabelValues(string(w.Kind)).Inc()
	}
}

// Observe implements playback.Observer.
func (c *Collector) Observe(ev playback.Event) {
	switch ev.Kind {
	case playback.EventFrame:
		c.Frames.Inc()
		return
	case playback.EventArrival:
		if ev.Hop {
			c.Hops.Inc()
		} else if ev.LegDuration > 0 {
			c.LegsAnimated.Inc()
			c.LegAnimation.Observe(ev.LegDuration.Seconds())
		}
	case playback.EventSeek:
		c.Seeks.Inc()
	}
	c.CurrentIndex.Set(float64(ev.State.CurrentIndex))
	c.CumulativeDistance.Set(ev.State.Cumulative.DistanceKm)
	c.CumulativeCO2.Set(ev.State.Cumulative.CO2Kg)
	c.SpeedMultiplier.Set(float64(ev.State.SpeedMultiplier))
	c.setPhase(ev.State.Phase)
}

func (c *Collector) setPhase(active playback.Phase) {
	for _, p := range phases {
		v := 0.0
		if p == active {
			v = 1
		}
		c.State.WithLabelValues(p.String()).Set(v)
	}
}

func (c *Collector) NATSPublishedInc()  { c.NATSPublished.Inc() }
func (c *Collector) NATSPublishErrInc() { c.NATSPublishErrs.Inc() }
func (c *Collector) PublishObserve(d time.Duration) {
	c.PublishDuration.Observe(d.Seconds())
}
func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
	} else {
		c.NATSConnected.Set(0)
	}
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string, log zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server error")
		}
	}()
	log.Info().Str("addr", addr).Msg("metrics listening")
	return srv
}
