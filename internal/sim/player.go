// Package sim runs one journey replay: the engine, the loop that drives it,
// and the commands that reach it from other goroutines.
package sim

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"journey-player/internal/journey"
	"journey-player/internal/playback"
	"journey-player/internal/publisher"
)

type Options struct {
	FrameInterval  time.Duration
	Engine         playback.Options
	Autoplay       bool
	ExitOnComplete bool
	Logger         zerolog.Logger
}

type Player struct {
	loop   *playback.Loop
	engine *playback.Engine
	log    zerolog.Logger

	autoplay       bool
	exitOnComplete bool
	empty          bool

	// stop ends Run; set by Run and only used on the loop goroutine.
	stop context.CancelFunc
}

func NewPlayer(j *journey.Journey, opts Options, observers ...playback.Observer) *Player {
	p := &Player{
		loop:           playback.NewLoop(opts.FrameInterval, opts.Logger),
		log:            opts.Logger,
		autoplay:       opts.Autoplay,
		exitOnComplete: opts.ExitOnComplete,
		empty:          j.Empty(),
	}
	observers = append(observers, playback.ObserverFunc(p.observe))
	p.engine = playback.New(j, p.loop, opts.Engine, observers...)
	return p
}

// Engine must only be used from inside Do or an observer.
func (p *Player) Engine() *playback.Engine { return p.engine }

// Run drives playback until ctx is cancelled or, with ExitOnComplete, the
// journey completes. Cancellation is not reported as an error.
func (p *Player) Run(ctx context.Context) error {
	if p.exitOnComplete && p.empty {
		p.log.Warn().Msg("journey has no waypoints, nothing to play")
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	p.stop = cancel

	if p.autoplay {
		p.engine.Start()
	}
	p.log.Info().Int("waypoints", p.engine.Len()).Bool("autoplay", p.autoplay).Msg("player started")

	err := p.loop.Run(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	p.log.Info().Stringer("state", p.engine.State().Phase).Msg("player stopped")
	return err
}

// Do runs fn against the engine on the loop goroutine.
func (p *Player) Do(ctx context.Context, fn func(e *playback.Engine)) error {
	return p.loop.Do(ctx, func() { fn(p.engine) })
}

// Apply executes a control command on the loop goroutine.
func (p *Player) Apply(ctx context.Context, cmd publisher.Command) error {
	var applyErr error
	if err := p.Do(ctx, func(e *playback.Engine) { applyErr = cmd.Apply(e) }); err != nil {
		return err
	}
	return applyErr
}

// State returns the engine state read on the loop goroutine.
func (p *Player) State(ctx context.Context) (playback.State, error) {
	var st playback.State
	err := p.Do(ctx, func(e *playback.Engine) { st = e.State() })
	return st, err
}

func (p *Player) observe(ev playback.Event) {
	switch ev.Kind {
	case playback.EventArrival:
		p.log.Debug().
			Int("index", ev.WaypointIndex).
			Str("code", ev.Waypoint.LocationCode).
			Bool("hop", ev.Hop).
			Msg("arrived")
	case playback.EventComplete:
		if p.exitOnComplete && p.stop != nil {
			p.stop()
		}
	}
}
