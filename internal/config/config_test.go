package config

import "testing"

func TestDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DB.Path != "loomgate.db" {
		t.Errorf("db path = %q, want loomgate.db", cfg.DB.Path)
	}
	if cfg.Oracle.Model != "gemini-2.5-flash" {
		t.Errorf("oracle model = %q", cfg.Oracle.Model)
	}
	if cfg.Engine.NoveltyWindow != 5 || cfg.Engine.RepeatWindowHrs != 48 || cfg.Engine.DormancyStreak != 6 {
		t.Errorf("engine defaults = %+v", cfg.Engine)
	}
	if cfg.Detector.StrengthThreshold != 0.6 {
		t.Errorf("strength threshold = %v", cfg.Detector.StrengthThreshold)
	}
	if cfg.Detector.EvidenceLimit != 3 {
		t.Errorf("evidence limit = %d, want 3", cfg.Detector.EvidenceLimit)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LOOM_DB_PATH", "/tmp/other.db")
	t.Setenv("LOOM_ORACLE_API_KEY", "test-key")
	t.Setenv("LOOM_ENGINE_DORMANCY_STREAK", "9")
	t.Setenv("LOOM_DEBUG", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DB.Path != "/tmp/other.db" {
		t.Errorf("db path = %q", cfg.DB.Path)
	}
	if cfg.Oracle.APIKey != "test-key" {
		t.Errorf("api key = %q", cfg.Oracle.APIKey)
	}
	if cfg.Engine.DormancyStreak != 9 {
		t.Errorf("dormancy streak = %d", cfg.Engine.DormancyStreak)
	}
	if !cfg.Debug {
		t.Error("debug not set")
	}
}

func TestEnvToKey(t *testing.T) {
	cases := map[string]string{
		"LOOM_DEBUG":                       "debug",
		"LOOM_DB_PATH":                     "db.path",
		"LOOM_ORACLE_API_KEY":              "oracle.api_key",
		"LOOM_DETECTOR_STRENGTH_THRESHOLD": "detector.strength_threshold",
	}
	for in, want := range cases {
		if got := envToKey(in); got != want {
			t.Errorf("envToKey(%q) = %q, want %q", in, got, want)
		}
	}
}
