package models

import (
	"time"

	"github.com/google/uuid"
)

// ──────────────────── Enums ────────────────────

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

type Intensity string

const (
	IntensityLowImpact Intensity = "low_impact"
	IntensityMedium    Intensity = "medium_intensity"
	IntensityHigh      Intensity = "high_intensity"
)

type AccessTier string

const (
	TierFree    AccessTier = "free"
	TierPremium AccessTier = "premium"
)

// ──────────────────── Exercise ────────────────────

// Exercise is one row of the exercise catalog. The catalog is owned by an
// external system (Supabase in production, a JSON file in development);
// this service only reads it.
type Exercise struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	Name            string     `json:"name" db:"name"`
	Description     string     `json:"description,omitempty" db:"description"`
	Icon            string     `json:"icon,omitempty" db:"icon"`
	VideoURL        string     `json:"video_url" db:"video_url"`
	ThumbnailURL    string     `json:"thumbnail_url,omitempty" db:"thumbnail_url"`
	DefaultDuration int        `json:"default_duration" db:"default_duration"`
	Difficulty      Difficulty `json:"difficulty" db:"difficulty"`
	HasJump         bool       `json:"has_jump" db:"has_jump"`
	AccessTier      AccessTier `json:"access_tier" db:"access_tier"`
	CreatedAt       *time.Time `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// ──────────────────── Workout configuration ────────────────────

// Intervals holds the work/rest interval lengths in seconds.
type Intervals struct {
	WorkTime int `json:"work_time"`
	RestTime int `json:"rest_time"`
}

// WorkoutConfig is the client-supplied generation configuration. NoJump is
// applied by the upstream exercise selection; it is carried here only so the
// request payload round-trips unchanged.
type WorkoutConfig struct {
	Intensity        Intensity `json:"intensity"`
	Intervals        Intervals `json:"intervals"`
	NoJump           bool      `json:"no_jump"`
	IncludeWarmUp    bool      `json:"include_warm_up"`
	IncludeCoolDown  bool      `json:"include_cool_down"`
	ShowTimer        bool      `json:"show_timer"`
	ShowProgressBar  bool      `json:"show_progress_bar"`
	ShowExerciseName bool      `json:"show_exercise_name"`
	TargetDuration   int       `json:"target_duration,omitempty"`
}

// DefaultWorkoutConfig mirrors the defaults the clients rely on.
func DefaultWorkoutConfig() WorkoutConfig {
	return WorkoutConfig{
		Intensity:        IntensityMedium,
		Intervals:        Intervals{WorkTime: 40, RestTime: 20},
		IncludeWarmUp:    false,
		IncludeCoolDown:  false,
		ShowTimer:        true,
		ShowProgressBar:  true,
		ShowExerciseName: true,
	}
}
