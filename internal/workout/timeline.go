package workout

// Timeline is the fully-ordered, offset-resolved segment sequence for one
// workout video. Starts[i] is the absolute playback offset of Segments[i];
// the last start plus the last duration equals Total. Built once per request,
// immutable afterwards.
type Timeline struct {
	Segments []Segment `json:"segments"`
	Starts   []float64 `json:"starts"`
	Total    float64   `json:"total"`
}

// BuildTimeline computes cumulative start offsets over the segment list.
// The empty-segments check is defensive; Resolve never emits an empty list.
func BuildTimeline(segments []Segment) (*Timeline, error) {
	if len(segments) == 0 {
		return nil, &ConfigurationError{Reason: "no segments to schedule"}
	}

	starts := make([]float64, len(segments))
	var total float64
	for i, seg := range segments {
		starts[i] = total
		total += seg.Duration
	}
	return &Timeline{Segments: segments, Starts: starts, Total: total}, nil
}

// End returns the absolute offset at which segment i finishes.
func (t *Timeline) End(i int) float64 {
	return t.Starts[i] + t.Segments[i].Duration
}
