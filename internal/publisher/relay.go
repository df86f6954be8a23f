package publisher

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"journey-player/internal/geodesy"
	"journey-player/internal/journey"
	"journey-player/internal/playback"
	"journey-player/internal/stats"
)

// Sink publishes a value on a subject. NATSPublisher is the production sink.
type Sink interface {
	Publish(subject string, v any) error
}

type WaypointMessage struct {
	Index        int       `json:"index"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	Country      string    `json:"country,omitempty"`
	Lat          float64   `json:"lat"`
	Lon          float64   `json:"lon"`
	Date         time.Time `json:"date"`
	Disconnected bool      `json:"disconnected"`
}

type TotalsMessage struct {
	DistanceKm float64 `json:"distanceKm"`
	TimeHours  float64 `json:"timeHours"`
	CO2Kg      float64 `json:"co2Kg"`
	Cost       float64 `json:"cost"`
	Currency   string  `json:"currency"`
}

// FrameMessage is an in-flight indicator position.
type FrameMessage struct {
	RunID         string          `json:"runId"`
	Journey       string          `json:"journey"`
	Timestamp     time.Time       `json:"timestamp"`
	WaypointIndex int             `json:"waypointIndex"`
	Progress      float64         `json:"progress"`
	Lat           float64         `json:"lat"`
	Lon           float64         `json:"lon"`
	Bearing       float64         `json:"bearing"`
	X             float64         `json:"x"`
	Y             float64         `json:"y"`
	Live          TotalsMessage   `json:"live"`
	Partial       json.RawMessage `json:"partial,omitempty"`
}

// EventMessage reports a playback transition with the trail drawn so far.
type EventMessage struct {
	RunID         string           `json:"runId"`
	Journey       string           `json:"journey"`
	Kind          string           `json:"kind"`
	Timestamp     time.Time        `json:"timestamp"`
	State         playback.State   `json:"state"`
	WaypointIndex int              `json:"waypointIndex"`
	Waypoint      *WaypointMessage `json:"waypoint,omitempty"`
	Hop           bool             `json:"hop,omitempty"`
	LegDurationMs int64            `json:"legDurationMs,omitempty"`
	Totals        TotalsMessage    `json:"totals"`
	Trail         json.RawMessage  `json:"trail,omitempty"`
}

type RelayOptions struct {
	Prefix  string
	Journey string
	RunID   uuid.UUID
	// FrameInterval is the minimum spacing between published frames.
	FrameInterval time.Duration
	// CostRate converts base-currency cost into Currency.
	CostRate float64
	Currency string
	// Trail returns the completed trail; called on the scheduler goroutine.
	Trail  func() [][]geodesy.Point
	Logger zerolog.Logger
}

// Relay is a playback.Observer that forwards frames and transitions to a Sink.
type Relay struct {
	sink   Sink
	opts   RelayOptions
	runID  string
	frames string
	events string

	lastFrame time.Time
}

func NewRelay(sink Sink, opts RelayOptions) *Relay {
	if opts.RunID == uuid.Nil {
		opts.RunID = uuid.New()
	}
	if opts.CostRate <= 0 {
		opts.CostRate = 1
	}
	frames, events, _ := Subjects(opts.Prefix, opts.Journey)
	return &Relay{
		sink:   sink,
		opts:   opts,
		runID:  opts.RunID.String(),
		frames: frames,
		events: events,
	}
}

func (r *Relay) RunID() string { return r.runID }

func (r *Relay) Observe(ev playback.Event) {
	if ev.Kind == playback.EventFrame {
		if !r.lastFrame.IsZero() && ev.At.Sub(r.lastFrame) < r.opts.FrameInterval {
			return
		}
		r.lastFrame = ev.At
		r.publish(r.frames, r.frameMessage(ev))
		return
	}
	// The next leg always gets its first frame published.
	r.lastFrame = time.Time{}
	r.publish(r.events, r.eventMessage(ev))
}

func (r *Relay) publish(subject string, v any) {
	if err := r.sink.Publish(subject, v); err != nil {
		r.opts.Logger.Warn().Err(err).Str("subject", subject).Msg("publish failed")
	}
}

func (r *Relay) frameMessage(ev playback.Event) FrameMessage {
	x, y := geodesy.WebMercator(ev.Position)
	return FrameMessage{
		RunID:         r.runID,
		Journey:       r.opts.Journey,
		Timestamp:     ev.At,
		WaypointIndex: ev.WaypointIndex,
		Progress:      ev.Progress,
		Lat:           ev.Position.Lat,
		Lon:           ev.Position.Lon,
		Bearing:       ev.Bearing,
		X:             x,
		Y:             y,
		Live:          r.totals(ev.Live),
		Partial:       r.geoJSON(ev.Partial),
	}
}

func (r *Relay) eventMessage(ev playback.Event) EventMessage {
	msg := EventMessage{
		RunID:         r.runID,
		Journey:       r.opts.Journey,
		Kind:          string(ev.Kind),
		Timestamp:     ev.At,
		State:         ev.State,
		WaypointIndex: ev.WaypointIndex,
		Hop:           ev.Hop,
		LegDurationMs: ev.LegDuration.Milliseconds(),
		Totals:        r.totals(ev.State.Cumulative),
	}
	if ev.WaypointIndex >= 0 {
		wp := waypointMessage(ev.Waypoint)
		msg.Waypoint = &wp
	}
	switch ev.Kind {
	case playback.EventStart, playback.EventArrival, playback.EventSeek, playback.EventComplete, playback.EventReset:
		if r.opts.Trail != nil {
			msg.Trail = r.geoJSON(r.opts.Trail())
		}
	}
	return msg
}

func (r *Relay) totals(t stats.Totals) TotalsMessage {
	return TotalsMessage{
		DistanceKm: t.DistanceKm,
		TimeHours:  t.TimeHours,
		CO2Kg:      t.CO2Kg,
		Cost:       t.CostBase * r.opts.CostRate,
		Currency:   r.opts.Currency,
	}
}

func (r *Relay) geoJSON(segments [][]geodesy.Point) json.RawMessage {
	if len(segments) == 0 {
		return nil
	}
	g := geodesy.TrailGeometry(segments)
	if g.IsEmpty() {
		return nil
	}
	b, err := g.MarshalJSON()
	if err != nil {
		r.opts.Logger.Debug().Err(err).Msg("trail geometry encode failed")
		return nil
	}
	return b
}

func waypointMessage(wp journey.Waypoint) WaypointMessage {
	return WaypointMessage{
		Index:        wp.SequenceIndex,
		Code:         wp.LocationCode,
		Name:         wp.DisplayName,
		Country:      wp.Country,
		Lat:          wp.Latitude,
		Lon:          wp.Longitude,
		Date:         wp.Date,
		Disconnected: wp.IsDisconnected,
	}
}
