package publisher

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

type NATSPublisher struct {
	nc          *nats.Conn
	logSubjects bool
	metrics     PublisherMetrics
	log         zerolog.Logger
}

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

func NewNATSPublisher(url string, logSubjects bool, m PublisherMetrics, log zerolog.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("journey-player"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Info().Msg("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Info().Msg("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return &NATSPublisher{nc: nc, logSubjects: logSubjects, metrics: m, log: log}, nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}

// Publish marshals v as JSON and publishes it on subject.
func (p *NATSPublisher) Publish(subject string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if p.logSubjects {
		p.log.Debug().Str("subject", subject).Int("bytes", len(b)).Msg("nats publish")
	}
	start := time.Now()
	err = p.nc.Publish(subject, b)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	return err
}

// SubscribeControl delivers parsed commands from subject to handle. Requests
// with a reply subject get a ControlReply.
func (p *NATSPublisher) SubscribeControl(subject string, handle func(Command) error) (*nats.Subscription, error) {
	return p.nc.Subscribe(subject, func(msg *nats.Msg) {
		cmd, err := ParseCommand(msg.Data)
		if err == nil {
			err = handle(cmd)
		}
		if err != nil {
			p.log.Warn().Err(err).Str("payload", string(msg.Data)).Msg("control command rejected")
		} else {
			p.log.Info().Str("action", string(cmd.Action)).Float64("value", cmd.Value).Msg("control command applied")
		}
		if msg.Reply == "" {
			return
		}
		reply := ControlReply{OK: err == nil}
		if err != nil {
			reply.Error = err.Error()
		}
		b, _ := json.Marshal(reply)
		if rerr := msg.Respond(b); rerr != nil {
			p.log.Warn().Err(rerr).Msg("control reply failed")
		}
	})
}

// Subjects returns the frame, event and control subjects for a journey.
func Subjects(prefix, journey string) (frames, events, control string) {
	base := subjectToken(prefix) + "." + subjectToken(journey)
	return base + ".frames", base + ".events", base + ".control"
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
