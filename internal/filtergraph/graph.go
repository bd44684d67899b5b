// Package filtergraph compiles a workout timeline into a declarative
// GraphSpec, the complete description of the video-processing graph for one
// request, and renders it into ffmpeg invocation arguments. The
// compiler performs no I/O and spawns no process, so the timing and ordering
// logic is testable without an encoder.
package filtergraph

import (
	"fmt"

	"github.com/JJublanc/virtual-ai-coach/internal/workout"
)

// CompilationError reports an internal invariant violation while building the
// graph. It indicates a programming error, not bad user input.
type CompilationError struct {
	Reason string
}

func (e *CompilationError) Error() string {
	return "filter graph compilation failed: " + e.Reason
}

// DisplayOptions are the overlay toggles from the workout configuration.
type DisplayOptions struct {
	ShowTimer        bool `json:"show_timer"`
	ShowProgressBar  bool `json:"show_progress_bar"`
	ShowExerciseName bool `json:"show_exercise_name"`
}

// OutputSpec is the canonical output format. Every segment is coerced to this
// frame rate / resolution / pixel format before concatenation; joining
// heterogeneous inputs without normalizing is a reliable source of corrupt
// output.
type OutputSpec struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	FPS         int    `json:"fps"`
	PixelFormat string `json:"pixel_format"`
	Codec       string `json:"codec"`
	Preset      string `json:"preset"`
	CRF         int    `json:"crf"`
}

// Input is one ffmpeg input. LoopImage marks a still image looped into a
// video stream (the rest-screen background).
type Input struct {
	Path      string `json:"path"`
	LoopImage bool   `json:"loop_image,omitempty"`
}

// SegmentOp is the processing chain for one timeline segment: time-scale by
// Speed, normalize, pad/trim to exactly Duration seconds of output.
type SegmentOp struct {
	Input    int     `json:"input"`
	Kind     string  `json:"kind"`
	Speed    float64 `json:"speed"`
	Duration float64 `json:"duration"`
	Start    float64 `json:"start"`
}

type OverlayKind string

const (
	OverlayTimer      OverlayKind = "timer"
	OverlayProgress   OverlayKind = "progress"
	OverlayLabel      OverlayKind = "label"
	OverlayRestBanner OverlayKind = "rest_banner"
)

// OverlaySpec is one visual overlay bound to a time range of the final
// timeline. Invariant: 0 <= Start < End <= total duration.
type OverlaySpec struct {
	Kind  OverlayKind `json:"kind"`
	Start float64     `json:"start"`
	End   float64     `json:"end"`
	Text  string      `json:"text,omitempty"`
}

// GraphSpec is the composed graph for one workout video. It is plain data:
// JSON-serializable (it travels in deferred-job payloads) and deterministic
// for a given timeline and options.
type GraphSpec struct {
	Inputs    []Input       `json:"inputs"`
	RestInput int           `json:"rest_input"`
	Segments  []SegmentOp   `json:"segments"`
	Overlays  []OverlaySpec `json:"overlays"`
	Output    OutputSpec    `json:"output"`
	Total     float64       `json:"total"`
}

// Compile translates a timeline into a GraphSpec. restImage is the background
// asset rest segments are rendered from; it is required only when the
// timeline contains rest segments.
func Compile(tl *workout.Timeline, opts DisplayOptions, out OutputSpec, restImage string) (*GraphSpec, error) {
	if err := checkOutput(out); err != nil {
		return nil, err
	}
	if len(tl.Segments) == 0 {
		return nil, &CompilationError{Reason: "timeline has no segments"}
	}

	spec := &GraphSpec{RestInput: -1, Output: out, Total: tl.Total}

	for i, seg := range tl.Segments {
		start := tl.Starts[i]
		switch seg.Kind {
		case workout.KindWork:
			if seg.Clip == nil || seg.Clip.Path == "" {
				return nil, &CompilationError{Reason: fmt.Sprintf("work segment %d has no source clip", i)}
			}
			spec.Inputs = append(spec.Inputs, Input{Path: seg.Clip.Path})
			spec.Segments = append(spec.Segments, SegmentOp{
				Input:    len(spec.Inputs) - 1,
				Kind:     string(seg.Kind),
				Speed:    seg.Speed,
				Duration: seg.Duration,
				Start:    start,
			})
		case workout.KindRest:
			if spec.RestInput < 0 {
				if restImage == "" {
					return nil, &CompilationError{Reason: "rest segments present but no rest background asset configured"}
				}
				spec.Inputs = append(spec.Inputs, Input{Path: restImage, LoopImage: true})
				spec.RestInput = len(spec.Inputs) - 1
			}
			spec.Segments = append(spec.Segments, SegmentOp{
				Input:    spec.RestInput,
				Kind:     string(seg.Kind),
				Speed:    1.0,
				Duration: seg.Duration,
				Start:    start,
			})
		default:
			return nil, &CompilationError{Reason: fmt.Sprintf("segment %d has unknown kind %q", i, seg.Kind)}
		}

		end := start + seg.Duration
		if opts.ShowTimer {
			spec.Overlays = append(spec.Overlays, OverlaySpec{
				Kind:  OverlayTimer,
				Start: start,
				End:   end,
			})
		}
		switch seg.Kind {
		case workout.KindWork:
			if opts.ShowExerciseName {
				spec.Overlays = append(spec.Overlays, OverlaySpec{
					Kind:  OverlayLabel,
					Start: start,
					End:   end,
					Text:  seg.Label,
				})
			}
		case workout.KindRest:
			spec.Overlays = append(spec.Overlays, OverlaySpec{
				Kind:  OverlayRestBanner,
				Start: start,
				End:   end,
				Text:  seg.Label,
			})
		}
	}

	if opts.ShowProgressBar {
		spec.Overlays = append(spec.Overlays, OverlaySpec{
			Kind:  OverlayProgress,
			Start: 0,
			End:   tl.Total,
		})
	}

	if err := checkOverlays(spec.Overlays, spec.Total); err != nil {
		return nil, err
	}
	return spec, nil
}

func checkOutput(out OutputSpec) error {
	switch {
	case out.Width <= 0 || out.Height <= 0:
		return &CompilationError{Reason: fmt.Sprintf("normalization resolution unset (%dx%d)", out.Width, out.Height)}
	case out.FPS <= 0:
		return &CompilationError{Reason: "normalization frame rate unset"}
	case out.PixelFormat == "":
		return &CompilationError{Reason: "normalization pixel format unset"}
	case out.Codec == "":
		return &CompilationError{Reason: "output codec unset"}
	}
	return nil
}

func checkOverlays(overlays []OverlaySpec, total float64) error {
	for _, ov := range overlays {
		if ov.Start < 0 || ov.End <= ov.Start || ov.End > total {
			return &CompilationError{
				Reason: fmt.Sprintf("%s overlay range [%.3f, %.3f] outside timeline [0, %.3f]", ov.Kind, ov.Start, ov.End, total),
			}
		}
	}
	return nil
}
