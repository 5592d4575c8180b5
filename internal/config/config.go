package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/meeting-correlator/internal/models"
)

// Config captures the settings required to boot the correlator.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
	Correlation CorrelationConfig `yaml:"correlation"`
	Lexicon     LexiconConfig     `yaml:"lexicon"`
	Cache       CacheConfig       `yaml:"cache"`
	Limits      LimitsConfig      `yaml:"limits"`
}

// ServerConfig controls gRPC listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
	// MaxMessageBytes caps request and response size; 0 uses the server default.
	MaxMessageBytes int `yaml:"maxMessageBytes"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// CorrelationConfig tunes the matchers and fusion.
type CorrelationConfig struct {
	Strategy      string  `yaml:"strategy"`
	MinConfidence float64 `yaml:"minConfidence"`
	// Workers bounds scoring concurrency; 0 uses GOMAXPROCS.
	Workers int `yaml:"workers"`
	// ReferenceTimezone interprets zone-less timestamps.
	ReferenceTimezone    string                   `yaml:"referenceTimezone"`
	Horizon              time.Duration            `yaml:"horizon"`
	TemporalBands        DurationBands            `yaml:"temporalBands"`
	OverlapBands         ScoreBands               `yaml:"overlapBands"`
	ContentBands         ScoreBands               `yaml:"contentBands"`
	ParticipantThreshold float64                  `yaml:"participantThreshold"`
	Weights              map[string]WeightProfile `yaml:"weights"`
}

// DurationBands are inclusive delta cutoffs per confidence band.
type DurationBands struct {
	Perfect time.Duration `yaml:"perfect"`
	High    time.Duration `yaml:"high"`
	Medium  time.Duration `yaml:"medium"`
	Low     time.Duration `yaml:"low"`
}

// ScoreBands are minimum scores per confidence band.
type ScoreBands struct {
	Perfect float64 `yaml:"perfect"`
	High    float64 `yaml:"high"`
	Medium  float64 `yaml:"medium"`
	Low     float64 `yaml:"low"`
}

// WeightProfile is one strategy's fusion weights.
type WeightProfile struct {
	Temporal    float64 `yaml:"temporal"`
	Participant float64 `yaml:"participant"`
	Content     float64 `yaml:"content"`
}

// LexiconConfig points at an optional heuristic table override.
type LexiconConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig controls Redis-backed caching of correlation results.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	ResultTTL    time.Duration `yaml:"resultTTL"`
	KeyPrefix    string        `yaml:"keyPrefix"`
}

// LimitsConfig throttles incoming Correlate calls. Rate 0 disables limiting.
type LimitsConfig struct {
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("MEETING_CORRELATOR_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50051",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
			MaxMessageBytes: 16 << 20,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Correlation: CorrelationConfig{
			Strategy:          "adaptive",
			MinConfidence:     0.6,
			ReferenceTimezone: "UTC",
			Horizon:           24 * time.Hour,
			TemporalBands: DurationBands{
				Perfect: 2 * time.Minute,
				High:    5 * time.Minute,
				Medium:  15 * time.Minute,
				Low:     30 * time.Minute,
			},
			OverlapBands:         ScoreBands{Perfect: 1.0, High: 0.8, Medium: 0.6, Low: 0.4},
			ContentBands:         ScoreBands{Perfect: 0.95, High: 0.8, Medium: 0.6, Low: 0.4},
			ParticipantThreshold: 0.6,
			Weights: map[string]WeightProfile{
				"temporal-first":    {Temporal: 0.5, Participant: 0.3, Content: 0.2},
				"participant-first": {Temporal: 0.2, Participant: 0.5, Content: 0.3},
				"content-first":     {Temporal: 0.2, Participant: 0.3, Content: 0.5},
				"balanced":          {Temporal: 0.34, Participant: 0.33, Content: 0.33},
			},
		},
		Cache: CacheConfig{
			Enabled:      false,
			ResultTTL:    10 * time.Minute,
			KeyPrefix:    "meeting-correlator:run:",
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
		},
		Limits: LimitsConfig{Rate: 20, Burst: 40},
	}
}

// Validate rejects correlation settings the engine cannot run with.
func (c *Config) Validate() error {
	corr := c.Correlation
	if _, err := models.ParseStrategy(corr.Strategy); err != nil {
		return fmt.Errorf("correlation.strategy: %w", err)
	}
	if !(corr.MinConfidence >= 0 && corr.MinConfidence <= 1) {
		return fmt.Errorf("correlation.minConfidence %.3f outside [0,1]", corr.MinConfidence)
	}
	if corr.Workers < 0 {
		return fmt.Errorf("correlation.workers must not be negative")
	}
	if _, err := time.LoadLocation(corr.ReferenceTimezone); err != nil {
		return fmt.Errorf("correlation.referenceTimezone: %w", err)
	}
	b := corr.TemporalBands
	if !(b.Perfect <= b.High && b.High <= b.Medium && b.Medium <= b.Low) {
		return fmt.Errorf("correlation.temporalBands must widen from perfect to low")
	}
	for name, bands := range map[string]ScoreBands{"overlapBands": corr.OverlapBands, "contentBands": corr.ContentBands} {
		if !(bands.Perfect >= bands.High && bands.High >= bands.Medium && bands.Medium >= bands.Low && bands.Low >= 0) {
			return fmt.Errorf("correlation.%s must descend from perfect to low", name)
		}
	}
	if !(corr.ParticipantThreshold >= 0 && corr.ParticipantThreshold <= 1) {
		return fmt.Errorf("correlation.participantThreshold %.3f outside [0,1]", corr.ParticipantThreshold)
	}
	for name, w := range corr.Weights {
		s, err := models.ParseStrategy(name)
		if err != nil || s == models.StrategyAdaptive {
			return fmt.Errorf("correlation.weights: %q is not a weighted strategy", name)
		}
		if !(w.Temporal >= 0 && w.Participant >= 0 && w.Content >= 0) {
			return fmt.Errorf("correlation.weights.%s must be non-negative", name)
		}
		if sum := w.Temporal + w.Participant + w.Content; !(math.Abs(sum-1) <= 1e-6) {
			return fmt.Errorf("correlation.weights.%s sums to %.6f, want 1.0", name, sum)
		}
	}
	if c.Server.MaxMessageBytes < 0 {
		return fmt.Errorf("server.maxMessageBytes must not be negative")
	}
	if c.Cache.Enabled && c.Cache.Addr == "" {
		return fmt.Errorf("cache.addr is required when cache is enabled")
	}
	if !(c.Limits.Rate >= 0) || c.Limits.Burst < 0 {
		return fmt.Errorf("limits must not be negative")
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MEETING_CORRELATOR_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("MEETING_CORRELATOR_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("MEETING_CORRELATOR_MAX_MESSAGE_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MaxMessageBytes = n
		}
	}
	if v := os.Getenv("MEETING_CORRELATOR_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MEETING_CORRELATOR_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("MEETING_CORRELATOR_STRATEGY"); v != "" {
		cfg.Correlation.Strategy = v
	}
	if v := os.Getenv("MEETING_CORRELATOR_MIN_CONFIDENCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Correlation.MinConfidence = f
		}
	}
	if v := os.Getenv("MEETING_CORRELATOR_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Correlation.Workers = n
		}
	}
	if v := os.Getenv("MEETING_CORRELATOR_REFERENCE_TIMEZONE"); v != "" {
		cfg.Correlation.ReferenceTimezone = v
	}
	if v := os.Getenv("MEETING_CORRELATOR_LEXICON_PATH"); v != "" {
		cfg.Lexicon.Path = v
	}
	if v := os.Getenv("MEETING_CORRELATOR_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("MEETING_CORRELATOR_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("MEETING_CORRELATOR_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("MEETING_CORRELATOR_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("MEETING_CORRELATOR_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("MEETING_CORRELATOR_CACHE_TLS"); strings.EqualFold(v, "true") || strings.EqualFold(v, "1") {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("MEETING_CORRELATOR_CACHE_DIAL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.DialTimeout = d
		}
	}
	if v := os.Getenv("MEETING_CORRELATOR_CACHE_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.ReadTimeout = d
		}
	}
	if v := os.Getenv("MEETING_CORRELATOR_CACHE_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.WriteTimeout = d
		}
	}
	if v := os.Getenv("MEETING_CORRELATOR_CACHE_MAX_RETRIES"); v != "" {
		if retry, err := strconv.Atoi(v); err == nil {
			cfg.Cache.MaxRetries = retry
		}
	}
	if v := os.Getenv("MEETING_CORRELATOR_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.ResultTTL = d
		}
	}
	if v := os.Getenv("MEETING_CORRELATOR_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Limits.Rate = f
		}
	}
	if v := os.Getenv("MEETING_CORRELATOR_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Limits.Burst = n
		}
	}
}
