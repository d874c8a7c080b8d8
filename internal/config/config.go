package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"

	"neurostate/internal/pattern"
	"neurostate/internal/service"
	"neurostate/internal/signals"
)

// Config centraliza la configuración del motor y del host HTTP.
type Config struct {
	HTTPPort      string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL   string `env:"DATABASE_URL"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	JWTSecret     string `env:"JWT_SECRET"`
	JWTIssuer     string `env:"JWT_ISSUER" envDefault:"neurostate"`

	AssessRateWindow time.Duration `env:"ASSESS_RATE_WINDOW" envDefault:"1m"`
	AssessRateMax    int           `env:"ASSESS_RATE_MAX" envDefault:"30"`

	WindowMaxEntries   int           `env:"WINDOW_MAX_ENTRIES" envDefault:"200"`
	WindowSpan         time.Duration `env:"WINDOW_SPAN" envDefault:"36h"`
	HistoryMax         int           `env:"HISTORY_MAX" envDefault:"120"`
	ActionsMax         int           `env:"ACTIONS_MAX" envDefault:"200"`
	MaxUsers           int           `env:"MAX_USERS" envDefault:"10000"`
	MinObservations    int           `env:"MIN_OBSERVATIONS" envDefault:"3"`
	CycleCooldown      time.Duration `env:"CYCLE_COOLDOWN" envDefault:"72h"`
	CycleEvidenceMax   int           `env:"CYCLE_EVIDENCE_MAX" envDefault:"20"`
	StrictInvariants   bool          `env:"STRICT_INVARIANTS" envDefault:"false"`
	LocalTimezone      string        `env:"LOCAL_TIMEZONE" envDefault:"UTC"`
	AfternoonStartHour int           `env:"AFTERNOON_START_HOUR" envDefault:"12"`
	ProfilePresetsPath string        `env:"PROFILE_PRESETS_PATH"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	if cfg.AfternoonStartHour < 1 || cfg.AfternoonStartHour > 23 {
		return nil, fmt.Errorf("AFTERNOON_START_HOUR %d: must be between 1 and 23", cfg.AfternoonStartHour)
	}
	return &cfg, nil
}

func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.LocalTimezone)
	if err != nil {
		return nil, fmt.Errorf("LOCAL_TIMEZONE %q: %w", c.LocalTimezone, err)
	}
	return loc, nil
}

// Engine traduce la configuración al formato del servicio.
func (c *Config) Engine() (service.Config, error) {
	loc, err := c.Location()
	if err != nil {
		return service.Config{}, err
	}
	return service.Config{
		Signals: signals.Config{
			MaxEntries: c.WindowMaxEntries,
			Span:       c.WindowSpan,
			MaxUsers:   c.MaxUsers,
			Location:   loc,
		},
		HistoryMax:      c.HistoryMax,
		ActionsMax:      c.ActionsMax,
		MinObservations: c.MinObservations,
		Cycles: pattern.TrackerConfig{
			Cooldown:    c.CycleCooldown,
			EvidenceMax: c.CycleEvidenceMax,
		},
		StrictInvariants:   c.StrictInvariants,
		AfternoonStartHour: c.AfternoonStartHour,
	}, nil
}
