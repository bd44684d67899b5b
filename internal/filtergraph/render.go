package filtergraph

import (
	"fmt"
	"strconv"
	"strings"
)

// Rendered is the encoder invocation for one GraphSpec: the argv (minus the
// ffmpeg binary itself) and the filter_complex script content. The script is
// passed by file because a long workout produces a filter graph well past
// comfortable command-line length.
type Rendered struct {
	Args         []string
	FilterScript string
}

// Render turns a GraphSpec into ffmpeg arguments. scriptPath is where the
// process manager stages the filter script before launching the encoder.
// Output is written to stdout as fragmented MP4 (frag_keyframe+empty_moov)
// so the stream is playable from the first emitted bytes.
func Render(spec *GraphSpec, scriptPath string) (*Rendered, error) {
	if len(spec.Segments) == 0 {
		return nil, &CompilationError{Reason: "graph has no segments"}
	}
	if err := checkOutput(spec.Output); err != nil {
		return nil, err
	}
	if err := checkOverlays(spec.Overlays, spec.Total); err != nil {
		return nil, err
	}

	args := []string{"-nostdin", "-hide_banner", "-loglevel", "error"}
	for _, in := range spec.Inputs {
		if in.LoopImage {
			args = append(args, "-loop", "1", "-framerate", strconv.Itoa(spec.Output.FPS))
		}
		args = append(args, "-i", in.Path)
	}

	script := buildFilterScript(spec)

	args = append(args,
		"-filter_complex_script", scriptPath,
		"-map", "[vout]",
		"-c:v", spec.Output.Codec,
		"-preset", spec.Output.Preset,
		"-crf", strconv.Itoa(spec.Output.CRF),
		"-r", strconv.Itoa(spec.Output.FPS),
		"-pix_fmt", spec.Output.PixelFormat,
		"-an",
		"-movflags", "frag_keyframe+empty_moov",
		"-f", "mp4",
		"pipe:1",
	)

	return &Rendered{Args: args, FilterScript: script}, nil
}

func buildFilterScript(spec *GraphSpec) string {
	var sb strings.Builder

	// The rest background is a single looped input; when more than one rest
	// segment consumes it the stream must be split first.
	restCount := 0
	for _, op := range spec.Segments {
		if op.Kind == "rest" {
			restCount++
		}
	}
	restLabel := func(n int) string { return fmt.Sprintf("[rest%d]", n) }
	if restCount > 1 {
		fmt.Fprintf(&sb, "[%d:v]split=%d", spec.RestInput, restCount)
		for i := 0; i < restCount; i++ {
			sb.WriteString(restLabel(i))
		}
		sb.WriteString(";\n")
	}

	restUsed := 0
	for i, op := range spec.Segments {
		var in string
		var chain []string
		switch op.Kind {
		case "rest":
			if restCount > 1 {
				in = restLabel(restUsed)
				restUsed++
			} else {
				in = fmt.Sprintf("[%d:v]", spec.RestInput)
			}
		default:
			in = fmt.Sprintf("[%d:v]", op.Input)
			if op.Speed != 1.0 {
				chain = append(chain, fmt.Sprintf("setpts=PTS/%s", formatFloat(op.Speed)))
			}
		}

		// setsar follows scale: concat refuses inputs whose sample aspect
		// ratios differ even when the pixel dimensions match.
		chain = append(chain,
			fmt.Sprintf("scale=%d:%d", spec.Output.Width, spec.Output.Height),
			"setsar=1",
			fmt.Sprintf("fps=%d", spec.Output.FPS),
			fmt.Sprintf("format=%s", spec.Output.PixelFormat),
		)
		if op.Kind == "work" {
			// Hold the last frame when the sped-up clip runs short of the
			// target duration, then trim: output is exactly Duration long
			// whatever the source length was.
			chain = append(chain, fmt.Sprintf("tpad=stop_mode=clone:stop_duration=%s", formatSeconds(op.Duration)))
		}
		chain = append(chain,
			fmt.Sprintf("trim=duration=%s", formatSeconds(op.Duration)),
			"setpts=PTS-STARTPTS",
		)

		fmt.Fprintf(&sb, "%s%s[seg%d];\n", in, strings.Join(chain, ","), i)
	}

	for i := range spec.Segments {
		fmt.Fprintf(&sb, "[seg%d]", i)
	}
	fmt.Fprintf(&sb, "concat=n=%d:v=1:a=0", len(spec.Segments))

	if len(spec.Overlays) == 0 {
		sb.WriteString("[vout];\n")
		return sb.String()
	}
	sb.WriteString("[vcat];\n")

	cur := "[vcat]"
	for i, ov := range spec.Overlays {
		out := fmt.Sprintf("[ov%d]", i)
		if i == len(spec.Overlays)-1 {
			out = "[vout]"
		}
		fmt.Fprintf(&sb, "%s%s%s;\n", cur, overlayFilter(ov, spec.Total), out)
		cur = out
	}
	return sb.String()
}

func overlayFilter(ov OverlaySpec, total float64) string {
	enable := fmt.Sprintf("enable='between(t,%s,%s)'", formatSeconds(ov.Start), formatSeconds(ov.End))
	switch ov.Kind {
	case OverlayTimer:
		// Seconds remaining in the current segment, recomputed per frame.
		text := fmt.Sprintf("%%{eif\\:ceil(%s-t)\\:d}", formatSeconds(ov.End))
		return "drawtext=text='" + text + "'" +
			":fontsize=96:fontcolor=white:borderw=3:bordercolor=black@0.6" +
			":x=(w-text_w)/2:y=48:" + enable
	case OverlayLabel:
		return "drawtext=text='" + escapeText(ov.Text) + "'" +
			":fontsize=44:fontcolor=white:box=1:boxcolor=black@0.4:boxborderw=12" +
			":x=(w-text_w)/2:y=h-text_h-64:" + enable
	case OverlayRestBanner:
		return "drawtext=text='" + escapeText(ov.Text) + "'" +
			":fontsize=72:fontcolor=white:box=1:boxcolor=black@0.5:boxborderw=24" +
			":x=(w-text_w)/2:y=(h-text_h)/2:" + enable
	case OverlayProgress:
		// Fill fraction is elapsed/total; monotonic because t is.
		return fmt.Sprintf("drawbox=x=0:y=ih-12:w=iw*t/%s:h=12:color=white@0.8:t=fill", formatSeconds(total))
	default:
		return "null"
	}
}

// escapeText escapes a literal string for use inside a single-quoted drawtext
// text option within a filter script.
func escapeText(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '\\', '\'', ':', ',', ';', '[', ']', '%', '=':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
