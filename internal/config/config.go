// Package config loads runtime settings from LOOM_-prefixed environment
// variables, with sane defaults for everything but the oracle API key.
package config

import (
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// #region types
type Config struct {
	DB       DBConfig       `koanf:"db"`
	Debug    bool           `koanf:"debug"`
	Oracle   OracleConfig   `koanf:"oracle"`
	Engine   EngineConfig   `koanf:"engine"`
	Detector DetectorConfig `koanf:"detector"`
}

type DBConfig struct {
	Path string `koanf:"path"`
}

type OracleConfig struct {
	APIKey      string  `koanf:"api_key"`
	Model       string  `koanf:"model"`
	Temperature float64 `koanf:"temperature"`
}

type EngineConfig struct {
	NoveltyWindow   int `koanf:"novelty_window"`
	RepeatWindowHrs int `koanf:"repeat_window_hrs"`
	DormancyStreak  int `koanf:"dormancy_streak"`
}

type DetectorConfig struct {
	HistoryLimit      int     `koanf:"history_limit"`
	StrengthThreshold float64 `koanf:"strength_threshold"`
	TimeoutSecs       int     `koanf:"timeout_secs"`
	EvidenceLimit     int     `koanf:"evidence_limit"`
}

// #endregion types

// #region load

// Load reads LOOM_* environment variables. The first underscore after
// the prefix separates the section from the leaf, so LOOM_ORACLE_API_KEY
// maps to oracle.api_key.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(env.Provider("LOOM_", ".", envToKey), nil); err != nil {
		return nil, err
	}

	setDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envToKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, "LOOM_"))
	parts := strings.SplitN(s, "_", 2)
	if len(parts) == 1 {
		return parts[0]
	}
	return parts[0] + "." + parts[1]
}

func setDefaults(k *koanf.Koanf) {
	defaults := map[string]interface{}{
		"db.path":                     "loomgate.db",
		"oracle.model":                "gemini-2.5-flash",
		"oracle.temperature":          0.2,
		"engine.novelty_window":       5,
		"engine.repeat_window_hrs":    48,
		"engine.dormancy_streak":      6,
		"detector.history_limit":      10,
		"detector.strength_threshold": 0.6,
		"detector.timeout_secs":       8,
		"detector.evidence_limit":     3,
	}
	for key, val := range defaults {
		if !k.Exists(key) {
			k.Set(key, val)
		}
	}
}

// #endregion load
