package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Blank values read as unset, shielding the test from the ambient env.
	for _, key := range []string{"PORT", "MAX_ENCODES", "GENERATION_TIMEOUT", "DATABASE_URL"} {
		t.Setenv(key, "")
	}
	cfg := Load()

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.MaxEncodes != 2 {
		t.Errorf("MaxEncodes = %d, want 2", cfg.MaxEncodes)
	}
	if cfg.EncodeTimeout != 300*time.Second {
		t.Errorf("EncodeTimeout = %v, want 5m", cfg.EncodeTimeout)
	}
	if cfg.TargetWidth != 1280 || cfg.TargetHeight != 720 || cfg.TargetFPS != 30 {
		t.Errorf("target format = %dx%d@%d", cfg.TargetWidth, cfg.TargetHeight, cfg.TargetFPS)
	}
	if cfg.PixelFormat != "yuv420p" || cfg.VideoCodec != "libx264" {
		t.Errorf("codec settings = %s/%s", cfg.VideoCodec, cfg.PixelFormat)
	}
	if cfg.CatalogFromDB() {
		t.Error("CatalogFromDB true without DATABASE_URL")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_ENCODES", "4")
	t.Setenv("GENERATION_TIMEOUT", "60")
	t.Setenv("DATABASE_URL", "postgres://coach@localhost/coach")
	t.Setenv("TARGET_FPS", "not-a-number")

	cfg := Load()
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.MaxEncodes != 4 {
		t.Errorf("MaxEncodes = %d, want 4", cfg.MaxEncodes)
	}
	if cfg.EncodeTimeout != time.Minute {
		t.Errorf("EncodeTimeout = %v, want 1m", cfg.EncodeTimeout)
	}
	if !cfg.CatalogFromDB() {
		t.Error("CatalogFromDB false with DATABASE_URL set")
	}
	// Unparseable values fall back to the default.
	if cfg.TargetFPS != 30 {
		t.Errorf("TargetFPS = %d, want 30", cfg.TargetFPS)
	}
}
