package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"journey-player/internal/config"
	"journey-player/internal/currency"
	"journey-player/internal/db"
	"journey-player/internal/geodesy"
	"journey-player/internal/journey"
	"journey-player/internal/logging"
	"journey-player/internal/metrics"
	"journey-player/internal/playback"
	"journey-player/internal/publisher"
	"journey-player/internal/sim"
	"journey-player/internal/stats"
)

func main() {
	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("config error")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dsn := cfg.DatabaseURL
	if cfg.JourneyDatabase != "" {
		dsn, err = db.WithDBName(dsn, cfg.JourneyDatabase)
		if err != nil {
			log.Fatal().Err(err).Msg("compose DSN")
		}
	}
	sqlDB, err := db.Open(dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("db open error")
	}
	defer sqlDB.Close()
	if err := db.Ping(ctx, sqlDB); err != nil {
		log.Fatal().Err(err).Msg("db ping error")
	}

	ref, err := db.ResolveJourney(ctx, sqlDB, cfg.Journey)
	if err != nil {
		log.Fatal().Err(err).Str("journey", cfg.Journey).Msg("resolve journey")
	}
	log = log.With().Str("journey", ref.Name).Logger()

	legs, err := db.FetchLegs(ctx, sqlDB, ref.ID)
	if err != nil {
		log.Fatal().Err(err).Msg("fetch legs")
	}

	resolver, err := journey.NewCachedResolver(db.NewGazetteer(sqlDB), cfg.ResolverCacheSize)
	if err != nil {
		log.Fatal().Err(err).Msg("location cache")
	}
	j := journey.NewSequencer(resolver, log.With().Str("component", "sequencer").Logger()).Build(ctx, legs)

	calc := stats.NewCalculator(cfg.DurationModes...)
	conv := currency.NewConverter(db.NewRateStore(sqlDB), cfg.BaseCurrency, cfg.DisplayCurrency, log)
	costRate, displayCurrency := displayRate(ctx, conv, log)
	logSummary(ctx, log, j, calc, conv, displayCurrency)

	// Metrics are always collected; the server only runs with METRICS_ADDR
	mcol := metrics.NewCollector(cfg.SpeedMultiplier)
	mcol.ObserveJourney(j)

	pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.LogNATSSubjects, mcol, log.With().Str("component", "nats").Logger())
	if err != nil {
		log.Fatal().Err(err).Str("url", cfg.NATSURL).Msg("nats error")
	}
	defer pub.Close()

	var player *sim.Player
	relay := publisher.NewRelay(pub, publisher.RelayOptions{
		Prefix:        cfg.NATSSubjectPrefix,
		Journey:       ref.Name,
		FrameInterval: cfg.PublishInterval,
		CostRate:      costRate,
		Currency:      displayCurrency,
		Trail:         func() [][]geodesy.Point { return player.Engine().Trail() },
		Logger:        log,
	})
	log = log.With().Str("run_id", relay.RunID()).Logger()

	player = sim.NewPlayer(j, sim.Options{
		FrameInterval: cfg.FrameInterval,
		Engine: playback.Options{
			PathPoints:  cfg.PathPoints,
			PointStep:   cfg.PointStep,
			SettleDelay: cfg.SettleDelay,
			Speed:       cfg.SpeedMultiplier,
			Calculator:  calc,
			Logger:      log.With().Str("component", "playback").Logger(),
		},
		Autoplay:       cfg.Autoplay,
		ExitOnComplete: cfg.ExitOnComplete,
		Logger:         log,
	}, mcol, relay)

	_, _, controlSubject := publisher.Subjects(cfg.NATSSubjectPrefix, ref.Name)
	sub, err := pub.SubscribeControl(controlSubject, func(cmd publisher.Command) error {
		cctx, ccancel := context.WithTimeout(ctx, 2*time.Second)
		defer ccancel()
		return player.Apply(cctx, cmd)
	})
	if err != nil {
		log.Fatal().Err(err).Str("subject", controlSubject).Msg("control subscription")
	}
	defer sub.Unsubscribe()
	log.Info().Str("subject", controlSubject).Msg("listening for control commands")

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer stop()
		return player.Run(gctx)
	})
	if cfg.MetricsAddr != "" {
		srv := mcol.Serve(cfg.MetricsAddr, log)
		g.Go(func() error {
			<-gctx.Done()
			// Shutdown with timeout
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("shutdown with error")
	}
	log.Info().Msg("shutdown complete")
}

// displayRate resolves the base->display rate once. An unknown currency
// falls back to showing costs in the base currency.
func displayRate(ctx context.Context, conv *currency.Converter, log zerolog.Logger) (float64, string) {
	rate, err := conv.Rate(ctx, conv.Base(), conv.Display())
	if err != nil {
		log.Warn().Err(err).Str("base", conv.Base()).Str("display", conv.Display()).Msg("no exchange rate, showing base currency")
		return 1, conv.Base()
	}
	return rate, conv.Display()
}

func logSummary(ctx context.Context, log zerolog.Logger, j *journey.Journey, calc stats.Calculator, conv *currency.Converter, cur string) {
	if j.Empty() {
		log.Warn().Int("legs", len(j.Legs)).Msg("journey has no playable waypoints")
		return
	}
	s := j.Summary()
	total := calc.Sum(j.Waypoints, len(j.Waypoints)-1)
	// On a missing rate ToDisplay leaves the amount in base currency, matching cur.
	cost, _ := conv.ToDisplay(ctx, total.CostBase)
	ev := log.Info().
		Int("legs", s.Legs).
		Int("waypoints", s.Waypoints).
		Int("dropped_legs", s.DroppedLegs).
		Strs("countries", s.Countries).
		Float64("distance_km", total.DistanceKm).
		Float64("time_hours", total.TimeHours).
		Float64("co2_kg", total.CO2Kg).
		Float64("cost", cost).
		Str("currency", cur)
	if !s.FirstDate.IsZero() {
		ev = ev.Time("first_date", s.FirstDate).Time("last_date", s.LastDate)
	}
	ev.Msg("journey loaded")
}
