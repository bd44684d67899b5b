package catalog

import (
	"fmt"
	"log"
	"sync"

	"github.com/JJublanc/virtual-ai-coach/internal/ffmpeg"
	"github.com/JJublanc/virtual-ai-coach/internal/models"
	"github.com/JJublanc/virtual-ai-coach/internal/workout"
)

// Catalog resolves exercise names to local, probed source clips. It fronts a
// Source for definitions and a ClipCache for the media files, and memoizes
// probed durations per local path.
type Catalog struct {
	source Source
	cache  *ClipCache
	probe  *ffmpeg.FFprobe

	mu        sync.Mutex
	durations map[string]float64
}

func New(source Source, cache *ClipCache, probe *ffmpeg.FFprobe) *Catalog {
	return &Catalog{
		source:    source,
		cache:     cache,
		probe:     probe,
		durations: make(map[string]float64),
	}
}

// ListExercises returns the full catalog.
func (c *Catalog) ListExercises() ([]models.Exercise, error) {
	return c.source.ListExercises()
}

// GetExercise looks up one exercise by name (case-insensitive).
func (c *Catalog) GetExercise(name string) (*models.Exercise, error) {
	return c.source.GetExerciseByName(name)
}

// ResolveClip fetches the clip for the named exercise and probes its real
// duration. It satisfies workout.ClipResolver.
func (c *Catalog) ResolveClip(name string) (*workout.Clip, error) {
	exercise, err := c.source.GetExerciseByName(name)
	if err != nil {
		return nil, err
	}
	if exercise.VideoURL == "" {
		return nil, fmt.Errorf("exercise %q has no video source", name)
	}

	local, err := c.cache.Get(exercise.VideoURL)
	if err != nil {
		return nil, fmt.Errorf("resolve clip for %q: %w", name, err)
	}

	duration, err := c.clipDuration(local)
	if err != nil {
		return nil, fmt.Errorf("probe clip for %q: %w", name, err)
	}

	return &workout.Clip{
		ID:       exercise.ID.String(),
		Path:     local,
		Duration: duration,
	}, nil
}

func (c *Catalog) clipDuration(path string) (float64, error) {
	c.mu.Lock()
	if d, ok := c.durations[path]; ok {
		c.mu.Unlock()
		return d, nil
	}
	c.mu.Unlock()

	result, err := c.probe.Probe(path)
	if err != nil {
		return 0, err
	}
	if result.GetVideoCodec() == "" {
		return 0, fmt.Errorf("no video stream in %s", path)
	}
	d := result.GetDurationSeconds()
	if d <= 0 {
		return 0, fmt.Errorf("no duration reported for %s", path)
	}

	c.mu.Lock()
	c.durations[path] = d
	c.mu.Unlock()
	log.Printf("Catalog: probed %s (%s %dx%d @ %.3g fps, %.2fs)",
		path, result.GetVideoCodec(), result.GetWidth(), result.GetHeight(), result.GetFPS(), d)
	return d, nil
}
