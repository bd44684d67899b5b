package workout

import (
	"fmt"

	"github.com/JJublanc/virtual-ai-coach/internal/models"
)

type Kind string

const (
	KindWork Kind = "work"
	KindRest Kind = "rest"
)

// Clip is a resolved source video: a local path the encoder can read plus
// the intrinsic duration when the catalog was able to probe it (0 = unknown).
type Clip struct {
	ID       string  `json:"id"`
	Path     string  `json:"path"`
	Duration float64 `json:"duration,omitempty"`
}

// Segment is one timeline entry. Rest segments carry no clip; they are
// rendered from a static background later in the pipeline.
type Segment struct {
	Kind        Kind    `json:"kind"`
	Clip        *Clip   `json:"clip,omitempty"`
	Duration    float64 `json:"duration"`
	Speed       float64 `json:"speed"`
	Label       string  `json:"label,omitempty"`
	Description string  `json:"description,omitempty"`
}

// ExerciseEntry is one element of the ordered exercise list supplied by the
// upstream selection logic. Duration 0 means "use the configured work time".
type ExerciseEntry struct {
	ClipID      string `json:"clip_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Duration    int    `json:"duration,omitempty"`
}

// ClipResolver maps a clip id to a readable clip. Implemented by the catalog;
// a failed lookup surfaces as a ConfigurationError from Resolve.
type ClipResolver interface {
	ResolveClip(clipID string) (*Clip, error)
}

// ConfigurationError reports invalid generation input. It is always detected
// before any encoder process is spawned.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid workout configuration: %s: %v", e.Reason, e.Err)
	}
	return "invalid workout configuration: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Speed multipliers by intensity. These three values are a contract with the
// client-side progress math and must match the encoder's applied speed
// exactly.
var speedFactors = map[models.Intensity]float64{
	models.IntensityLowImpact: 0.8,
	models.IntensityMedium:    1.0,
	models.IntensityHigh:      1.2,
}

// SpeedFactor returns the playback-speed multiplier for an intensity.
func SpeedFactor(intensity models.Intensity) (float64, error) {
	f, ok := speedFactors[intensity]
	if !ok {
		return 0, &ConfigurationError{Reason: fmt.Sprintf("unknown intensity %q", intensity)}
	}
	return f, nil
}

// Resolve turns the ordered exercise list into the segment sequence for one
// workout video: a work segment per exercise with a rest segment between
// consecutive pairs, plus an optional leading warm-up rest and trailing
// cool-down rest. Segment duration is independent of speed; speed only
// changes how much of the source clip is consumed per output second.
func Resolve(entries []ExerciseEntry, cfg models.WorkoutConfig, clips ClipResolver) ([]Segment, error) {
	if len(entries) == 0 {
		return nil, &ConfigurationError{Reason: "empty exercise list"}
	}
	if cfg.Intervals.RestTime <= 0 {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("rest_time must be positive, got %d", cfg.Intervals.RestTime)}
	}

	speed, err := SpeedFactor(cfg.Intensity)
	if err != nil {
		return nil, err
	}

	rest := Segment{
		Kind:     KindRest,
		Duration: float64(cfg.Intervals.RestTime),
		Speed:    1.0,
		Label:    "Rest",
	}

	segments := make([]Segment, 0, 2*len(entries)+1)
	if cfg.IncludeWarmUp {
		segments = append(segments, rest)
	}

	for i, entry := range entries {
		duration := entry.Duration
		if duration == 0 {
			duration = cfg.Intervals.WorkTime
		}
		if duration <= 0 {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("exercise %q has non-positive duration %d", entry.Name, duration)}
		}

		clip, err := clips.ResolveClip(entry.ClipID)
		if err != nil {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("exercise %q", entry.Name), Err: err}
		}

		if i > 0 {
			segments = append(segments, rest)
		}
		segments = append(segments, Segment{
			Kind:        KindWork,
			Clip:        clip,
			Duration:    float64(duration),
			Speed:       speed,
			Label:       entry.Name,
			Description: entry.Description,
		})
	}

	if cfg.IncludeCoolDown {
		segments = append(segments, rest)
	}
	return segments, nil
}
