package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"journey-player/internal/journey"
	"journey-player/internal/playback"
)

type Config struct {
	DatabaseURL       string
	JourneyDatabase   string
	Journey           string
	NATSURL           string
	NATSSubjectPrefix string
	LogNATSSubjects   bool
	FrameInterval     time.Duration
	PublishInterval   time.Duration
	SpeedMultiplier   int
	PathPoints        int
	PointStep         time.Duration
	SettleDelay       time.Duration
	DurationModes     []journey.Mode
	BaseCurrency      string
	DisplayCurrency   string
	ResolverCacheSize int
	Autoplay          bool
	ExitOnComplete    bool
	MetricsAddr       string
	LogLevel          string
	LogFormat         string
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	// Database URL: prefer DATABASE_URL / PG_DSN, else build from PG* vars
	dsn := firstNonEmpty(
		os.Getenv("DATABASE_URL"),
		os.Getenv("PG_DSN"),
	)
	if dsn == "" {
		host := getenvDefault("PGHOST", "127.0.0.1")
		port := getenvDefault("PGPORT", "5432")
		user := getenvDefault("PGUSER", "postgres")
		pass := os.Getenv("PGPASSWORD")
		db := os.Getenv("PGDATABASE")
		if db == "" {
			return nil, errors.New("PGDATABASE or DATABASE_URL must be set")
		}
		sslmode := getenvDefault("PGSSLMODE", "disable")
		if pass != "" {
			cfg.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode)
		} else {
			cfg.DatabaseURL = fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode)
		}
	} else {
		cfg.DatabaseURL = dsn
	}

	// Optional database holding the journey tables when it differs from the DSN's.
	cfg.JourneyDatabase = strings.TrimSpace(os.Getenv("JOURNEY_DATABASE"))

	cfg.Journey = strings.TrimSpace(os.Getenv("JOURNEY"))
	if cfg.Journey == "" {
		return nil, errors.New("JOURNEY must be set")
	}

	cfg.NATSURL = getenvDefault("NATS_URL", "nats://127.0.0.1:4222")
	cfg.NATSSubjectPrefix = getenvDefault("NATS_SUBJECT_PREFIX", "journeys")
	cfg.LogNATSSubjects = getenvBool("LOG_NATS_SUBJECTS", false)

	var err error
	if cfg.FrameInterval, err = getenvMillis("FRAME_INTERVAL_MS", 16, false); err != nil {
		return nil, err
	}
	if cfg.PublishInterval, err = getenvMillis("PUBLISH_INTERVAL_MS", 100, true); err != nil {
		return nil, err
	}
	if cfg.PointStep, err = getenvMillis("MS_PER_PATH_POINT", 20, false); err != nil {
		return nil, err
	}
	if cfg.SettleDelay, err = getenvMillis("SETTLE_DELAY_MS", 300, true); err != nil {
		return nil, err
	}

	// Speed multiplier: only the playback speeds are accepted
	cfg.SpeedMultiplier = 1
	if v := os.Getenv("SPEED_MULTIPLIER"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || !playback.ValidSpeed(n) {
			return nil, fmt.Errorf("invalid SPEED_MULTIPLIER: %q (want one of %v)", v, playback.Speeds)
		}
		cfg.SpeedMultiplier = n
	}

	if cfg.PathPoints, err = getenvPositiveInt("PATH_POINTS", 100); err != nil {
		return nil, err
	}
	if cfg.ResolverCacheSize, err = getenvPositiveInt("RESOLVER_CACHE_SIZE", 1024); err != nil {
		return nil, err
	}

	// Modes whose explicit duration wins over the cruise-speed estimate.
	// Empty means every overland mode.
	if v := os.Getenv("DURATION_MODES"); v != "" {
		for _, part := range strings.Split(v, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			m := journey.ParseMode(part)
			if m == journey.ModeUnknown {
				return nil, fmt.Errorf("invalid DURATION_MODES: unknown mode %q", part)
			}
			if !slices.Contains(cfg.DurationModes, m) {
				cfg.DurationModes = append(cfg.DurationModes, m)
			}
		}
	}

	cfg.BaseCurrency = strings.ToUpper(getenvDefault("BASE_CURRENCY", "EUR"))
	cfg.DisplayCurrency = strings.ToUpper(getenvDefault("DISPLAY_CURRENCY", cfg.BaseCurrency))

	cfg.Autoplay = getenvBool("AUTOPLAY", true)
	cfg.ExitOnComplete = getenvBool("EXIT_ON_COMPLETE", false)

	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.LogFormat = getenvDefault("LOG_FORMAT", "json")

	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvBool(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func getenvMillis(k string, def int, allowZero bool) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return time.Duration(def) * time.Millisecond, nil
	}
	ms, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || ms < 0 || (ms == 0 && !allowZero) {
		return 0, fmt.Errorf("invalid %s: %q", k, v)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func getenvPositiveInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", k, v)
	}
	return n, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
