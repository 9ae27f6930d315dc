package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/12008yz/chibox-reveal/internal/models"
	"github.com/12008yz/chibox-reveal/internal/reveal"
)

type Config struct {
	Env  string
	Port string

	RedisURL  string
	RedisPass string
	RedisDB   int

	JWTSecret string

	PlatformBaseURL string
	PlatformAPIKey  string

	// DailyCaseID is the one case template subject to exclusion filtering
	// and the strike-through sequence.
	DailyCaseID string

	RevealTiming reveal.Timing
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:             envOr("ENV", "development"),
		Port:            envOr("PORT", "8080"),
		RedisURL:        envOr("REDIS_URL", "localhost:6379"),
		RedisPass:       os.Getenv("REDIS_PASSWORD"),
		JWTSecret:       envOr("JWT_SECRET", "dev-secret"),
		PlatformBaseURL: envOr("PLATFORM_BASE_URL", "http://localhost:9000"),
		PlatformAPIKey:  os.Getenv("PLATFORM_API_KEY"),
		DailyCaseID:     envOr("DAILY_CASE_ID", models.DefaultDailyCaseID),
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
		cfg.RedisDB = db
	}

	timing, err := revealTimingFromEnv()
	if err != nil {
		return nil, err
	}
	cfg.RevealTiming = timing

	return cfg, nil
}

// revealTimingFromEnv starts from the product-tuned defaults and lets each
// constant be overridden in milliseconds. The numbers are feel tuning, not
// derived requirements, so they stay adjustable without a rebuild.
func revealTimingFromEnv() (reveal.Timing, error) {
	t := reveal.DefaultTiming()

	overrides := []struct {
		key string
		dst *time.Duration
	}{
		{"REVEAL_STARTUP_DELAY_MS", &t.StartupDelay},
		{"REVEAL_FAST_STEP_MS", &t.FastStep},
		{"REVEAL_SLOWDOWN_STEP_MS", &t.SlowdownStep},
		{"REVEAL_SPARKS_DELAY_MS", &t.SparksDelay},
		{"REVEAL_STRIKE_DELAY_MS", &t.StrikeDelay},
		{"REVEAL_DWELL_NORMAL_MS", &t.DwellNormal},
		{"REVEAL_DWELL_DAILY_MS", &t.DwellDaily},
	}
	for _, o := range overrides {
		v := os.Getenv(o.key)
		if v == "" {
			continue
		}
		ms, err := strconv.Atoi(v)
		if err != nil || ms < 0 {
			return t, fmt.Errorf("invalid %s %q", o.key, v)
		}
		*o.dst = time.Duration(ms) * time.Millisecond
	}

	if v := os.Getenv("REVEAL_SLOWDOWN_WINDOW"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return t, fmt.Errorf("invalid REVEAL_SLOWDOWN_WINDOW %q", v)
		}
		t.SlowdownWindow = n
	}

	return t, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
