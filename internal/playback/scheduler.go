package playback

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/rs/zerolog"
)

// Scheduler is the rendering clock the engine runs on. Callbacks are invoked
// one at a time on a single goroutine; there is no way to cancel them, so the
// engine discards stale ones itself.
type Scheduler interface {
	Now() time.Time
	// RequestFrame runs fn on the next display refresh.
	RequestFrame(fn func(now time.Time))
	// AfterFunc runs fn once d has elapsed.
	AfterFunc(d time.Duration, fn func())
}

type timer struct {
	due time.Time
	seq uint64
	fn  func()
}

// Loop is a ticker-driven Scheduler. Everything it runs, including work
// posted with Do, happens on the goroutine that called Run.
type Loop struct {
	interval time.Duration
	log      zerolog.Logger

	frames []func(time.Time)
	timers []timer
	seq    uint64
	cmds   chan func()
}

func NewLoop(interval time.Duration, log zerolog.Logger) *Loop {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &Loop{
		interval: interval,
		log:      log,
		cmds:     make(chan func()),
	}
}

func (l *Loop) Now() time.Time { return time.Now() }

func (l *Loop) RequestFrame(fn func(now time.Time)) {
	l.frames = append(l.frames, fn)
}

func (l *Loop) AfterFunc(d time.Duration, fn func()) {
	l.seq++
	l.timers = append(l.timers, timer{due: time.Now().Add(d), seq: l.seq, fn: fn})
}

// Do runs fn on the loop goroutine and waits until it has returned.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case l.cmds <- func() { fn(); close(done) }:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives timers and frames until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	tick := time.NewTicker(l.interval)
	defer tick.Stop()
	l.log.Debug().Dur("interval", l.interval).Msg("loop started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.cmds:
			fn()
		case now := <-tick.C:
			l.step(now)
		}
	}
}

func (l *Loop) step(now time.Time) {
	var due []timer
	l.timers = slices.DeleteFunc(l.timers, func(t timer) bool {
		if t.due.After(now) {
			return false
		}
		due = append(due, t)
		return true
	})
	slices.SortFunc(due, func(a, b timer) int {
		if c := a.due.Compare(b.due); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	for _, t := range due {
		t.fn()
	}

	frames := l.frames
	l.frames = nil
	for _, fn := range frames {
		fn(now)
	}
}
