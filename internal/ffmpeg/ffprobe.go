package ffmpeg

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

type FFprobe struct{ Path string }

type ProbeResult struct {
	Format  FormatInfo   `json:"format"`
	Streams []StreamInfo `json:"streams"`
}

type FormatInfo struct {
	Filename string `json:"filename"`
	Duration string `json:"duration"`
	Size     string `json:"size"`
	Bitrate  string `json:"bit_rate"`
}

type StreamInfo struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	PixFmt     string `json:"pix_fmt"`
	RFrameRate string `json:"r_frame_rate"`
}

func NewFFprobe(path string) *FFprobe { return &FFprobe{Path: path} }

func (f *FFprobe) Probe(filePath string) (*ProbeResult, error) {
	cmd := exec.Command(f.Path, "-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", filePath)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}
	var result ProbeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	return &result, nil
}

func (r *ProbeResult) GetDurationSeconds() float64 {
	duration, _ := strconv.ParseFloat(r.Format.Duration, 64)
	return duration
}

func (r *ProbeResult) GetVideoCodec() string {
	for _, s := range r.Streams {
		if s.CodecType == "video" {
			return s.CodecName
		}
	}
	return ""
}

func (r *ProbeResult) GetWidth() int {
	for _, s := range r.Streams {
		if s.CodecType == "video" {
			return s.Width
		}
	}
	return 0
}

func (r *ProbeResult) GetHeight() int {
	for _, s := range r.Streams {
		if s.CodecType == "video" {
			return s.Height
		}
	}
	return 0
}

// GetFPS parses the r_frame_rate fraction of the first video stream
// (e.g. "30000/1001"). Returns 0 when unknown.
func (r *ProbeResult) GetFPS() float64 {
	for _, s := range r.Streams {
		if s.CodecType != "video" {
			continue
		}
		return parseFrameRate(s.RFrameRate)
	}
	return 0
}

func parseFrameRate(rate string) float64 {
	if rate == "" {
		return 0
	}
	if num, den, ok := strings.Cut(rate, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0
		}
		return n / d
	}
	f, _ := strconv.ParseFloat(rate, 64)
	return f
}
