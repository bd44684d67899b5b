package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port          int
	DatabaseURL   string
	RedisAddr     string
	ExercisesFile string
	DataDir       string
	ClipCacheDir  string
	ScratchDir    string
	RestImage     string
	FFmpegPath    string
	FFprobePath   string
	EncodeTimeout time.Duration
	MaxEncodes    int
	JobTTL        time.Duration
	ClipCacheAge  time.Duration

	// Canonical output format every segment is normalized to before
	// concatenation. Mismatched inputs are coerced to this.
	TargetWidth  int
	TargetHeight int
	TargetFPS    int
	PixelFormat  string
	VideoCodec   string
	Preset       string
	CRF          int
}

func Load() *Config {
	return &Config{
		Port:          envInt("PORT", 8080),
		DatabaseURL:   env("DATABASE_URL", ""),
		RedisAddr:     env("REDIS_ADDR", "localhost:6379"),
		ExercisesFile: env("EXERCISES_FILE", "exercises.json"),
		DataDir:       env("DATA_DIR", "/data"),
		ClipCacheDir:  env("CLIP_CACHE_DIR", "/tmp/exercise_videos"),
		ScratchDir:    env("SCRATCH_DIR", "/tmp/coach_jobs"),
		RestImage:     env("REST_IMAGE", "sport_room.png"),
		FFmpegPath:    env("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:   env("FFPROBE_PATH", "ffprobe"),
		EncodeTimeout: time.Duration(envInt("GENERATION_TIMEOUT", 300)) * time.Second,
		MaxEncodes:    envInt("MAX_ENCODES", 2),
		JobTTL:        time.Duration(envInt("JOB_TTL", 900)) * time.Second,
		ClipCacheAge:  time.Duration(envInt("CLIP_CACHE_MAX_AGE_HOURS", 24)) * time.Hour,
		TargetWidth:   envInt("TARGET_WIDTH", 1280),
		TargetHeight:  envInt("TARGET_HEIGHT", 720),
		TargetFPS:     envInt("TARGET_FPS", 30),
		PixelFormat:   env("PIXEL_FORMAT", "yuv420p"),
		VideoCodec:    env("VIDEO_CODEC", "libx264"),
		Preset:        env("VIDEO_PRESET", "ultrafast"),
		CRF:           envInt("VIDEO_CRF", 23),
	}
}

// CatalogFromDB reports whether the exercise catalog should be read from
// Postgres rather than the bundled JSON file.
func (c *Config) CatalogFromDB() bool {
	return c.DatabaseURL != ""
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
