package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"secaware-training-service/internal/app"
	"secaware-training-service/internal/domain"
)

type Config struct {
	Server struct {
		Port            string `yaml:"port"`
		ReadTimeout     string `yaml:"read_timeout"`
		WriteTimeout    string `yaml:"write_timeout"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Items struct {
		CacheTTL string `yaml:"cache_ttl"`
	} `yaml:"items"`
	Training    Training `yaml:"training"`
	Leaderboard struct {
		DefaultLimit int `yaml:"default_limit"`
		MaxLimit     int `yaml:"max_limit"`
	} `yaml:"leaderboard"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
}

// Training holds per-game-type session settings keyed by game type.
type Training struct {
	TimeLimits        map[string]string `yaml:"time_limits"`
	SampleSizes       map[string]int    `yaml:"sample_sizes"`
	MaxSampleSize     int               `yaml:"max_sample_size"`
	EnforceTimeLimits bool              `yaml:"enforce_time_limits"`
	TimeTolerance     string            `yaml:"time_tolerance"`
	SessionTTL        string            `yaml:"session_ttl"`
}

// Load reads YAML config from path and applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Postgres.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
}

// TrainingOptions overlays the configured values on the defaults.
// Unknown game types in the maps are ignored.
func (t Training) TrainingOptions() app.TrainingOptions {
	opts := app.DefaultTrainingOptions()
	for raw, limit := range t.TimeLimits {
		kind, err := domain.ParseKind(raw)
		if err != nil {
			continue
		}
		opts.TimeBudgets[kind] = TTLDuration(limit, opts.TimeBudgets[kind])
	}
	for raw, n := range t.SampleSizes {
		kind, err := domain.ParseKind(raw)
		if err != nil || n <= 0 {
			continue
		}
		opts.SampleSizes[kind] = n
	}
	if t.MaxSampleSize > 0 {
		opts.MaxSampleSize = t.MaxSampleSize
	}
	opts.EnforceTimeLimits = t.EnforceTimeLimits
	opts.TimeTolerance = TTLDuration(t.TimeTolerance, opts.TimeTolerance)
	return opts
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
