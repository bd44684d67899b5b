package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/JJublanc/virtual-ai-coach/internal/catalog"
	"github.com/JJublanc/virtual-ai-coach/internal/encoder"
	"github.com/JJublanc/virtual-ai-coach/internal/filtergraph"
	"github.com/JJublanc/virtual-ai-coach/internal/httputil"
	"github.com/JJublanc/virtual-ai-coach/internal/jobs"
	"github.com/JJublanc/virtual-ai-coach/internal/models"
	"github.com/JJublanc/virtual-ai-coach/internal/registry"
	"github.com/JJublanc/virtual-ai-coach/internal/stream"
	"github.com/JJublanc/virtual-ai-coach/internal/workout"
)

// generateRequest is the body of both generation endpoints: the ordered
// exercise list plus an optional configuration (defaults apply when omitted).
type generateRequest struct {
	Exercises []workout.ExerciseEntry `json:"exercises"`
	Config    *models.WorkoutConfig   `json:"config,omitempty"`
}

// buildGraph runs the request through resolution, scheduling, and graph
// compilation. Both the inline and deferred paths go through here, so every
// configuration error is caught before an encoder slot is touched.
func (s *Server) buildGraph(req *generateRequest) (*filtergraph.GraphSpec, error) {
	cfg := models.DefaultWorkoutConfig()
	if req.Config != nil {
		cfg = *req.Config
	}

	entries := make([]workout.ExerciseEntry, len(req.Exercises))
	copy(entries, req.Exercises)
	for i := range entries {
		if entries[i].ClipID == "" {
			entries[i].ClipID = entries[i].Name
		}
	}

	segments, err := workout.Resolve(entries, cfg, s.catalog)
	if err != nil {
		return nil, err
	}
	tl, err := workout.BuildTimeline(segments)
	if err != nil {
		return nil, err
	}

	opts := filtergraph.DisplayOptions{
		ShowTimer:        cfg.ShowTimer,
		ShowProgressBar:  cfg.ShowProgressBar,
		ShowExerciseName: cfg.ShowExerciseName,
	}
	out := filtergraph.OutputSpec{
		Width:       s.config.TargetWidth,
		Height:      s.config.TargetHeight,
		FPS:         s.config.TargetFPS,
		PixelFormat: s.config.PixelFormat,
		Codec:       s.config.VideoCodec,
		Preset:      s.config.Preset,
		CRF:         s.config.CRF,
	}
	return filtergraph.Compile(tl, opts, out, s.config.RestImage)
}

// handleGenerateVideo encodes and streams in one request. The response is
// committed once the first video bytes go out, so all validation errors are
// mapped to statuses strictly before streaming begins.
func (s *Server) handleGenerateVideo(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	spec, err := s.buildGraph(&req)
	if err != nil {
		s.writeGenerationError(w, err)
		return
	}

	job, err := s.manager.Start(r.Context(), spec)
	if err != nil {
		s.writeGenerationError(w, err)
		return
	}

	streamErr := stream.ServeInline(w, r, job.Output)
	if streamErr != nil {
		// Client gone or mid-stream failure: kill the encoder, reap, done.
		// Headers are already out, so there is no error response to send.
		job.Cancel()
		job.Wait()
		if errors.Is(streamErr, stream.ErrInterrupted) {
			log.Printf("API: inline stream %s interrupted by client", job.ID)
		} else {
			log.Printf("API: inline stream %s failed: %v", job.ID, streamErr)
		}
		return
	}

	if err := job.Wait(); err != nil {
		log.Printf("API: inline stream %s ended with encoder error: %v", job.ID, err)
		// The 200 and part of the body are already out. Aborting the
		// connection is the only remaining way to keep a truncated stream
		// from looking like a complete video.
		panic(http.ErrAbortHandler)
	}
}

// handleCreateJob registers a deferred generation and enqueues it. The
// response carries the job id the client will poll and stream against.
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	spec, err := s.buildGraph(&req)
	if err != nil {
		s.writeGenerationError(w, err)
		return
	}

	if err := os.MkdirAll(s.config.ScratchDir, 0755); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	entry := s.registry.Create("", spec.Total)
	spoolPath := filepath.Join(s.config.ScratchDir, entry.ID+".spool.mp4")
	s.registry.SetSpool(entry.ID, spoolPath)

	// Touch the spool so the stream endpoint can tail it from the moment the
	// job exists, even before a worker picks it up.
	if f, err := os.Create(spoolPath); err == nil {
		f.Close()
	}

	payload := jobs.GeneratePayload{JobID: entry.ID, Graph: spec}
	if _, err := s.jobQueue.Enqueue(jobs.TaskGenerateVideo, payload); err != nil {
		s.registry.Finish(entry.ID, registry.StatusFailed, "enqueue failed")
		httputil.WriteError(w, http.StatusInternalServerError, "enqueue_failed", err.Error())
		return
	}

	log.Printf("API: job %s created (%.1fs of video)", entry.ID, spec.Total)
	httputil.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":   entry.ID,
		"status":   registry.StatusPending,
		"duration": spec.Total,
	})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	entry := s.registry.Get(r.PathValue("id"))
	if entry == nil {
		httputil.WriteError(w, http.StatusNotFound, "unknown_job", "no such job")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

// handleStreamJob streams a deferred job's output, tailing the spool file
// while the encoder is still writing it.
func (s *Server) handleStreamJob(w http.ResponseWriter, r *http.Request) {
	entry := s.registry.Get(r.PathValue("id"))
	if entry == nil {
		httputil.WriteError(w, http.StatusNotFound, "unknown_job", "no such job")
		return
	}

	switch entry.Status {
	case registry.StatusFailed:
		httputil.WriteError(w, http.StatusInternalServerError, "generation_failed", entry.Error)
		return
	case registry.StatusTimedOut:
		httputil.WriteError(w, http.StatusGatewayTimeout, "generation_timeout", entry.Error)
		return
	}

	err := stream.TailSpool(w, r, entry.SpoolPath, entry.Done)
	switch {
	case err == nil:
	case errors.Is(err, stream.ErrInterrupted):
		log.Printf("API: job stream %s interrupted by client", entry.ID)
	default:
		log.Printf("API: job stream %s failed: %v", entry.ID, err)
	}
}

// writeGenerationError maps pipeline errors onto response statuses. Anything
// user-caused is 4xx; saturation and deadline outcomes get their dedicated
// statuses so clients can retry sensibly.
func (s *Server) writeGenerationError(w http.ResponseWriter, err error) {
	var cfgErr *workout.ConfigurationError
	var compErr *filtergraph.CompilationError
	var encErr *encoder.EncodingError

	switch {
	case errors.Is(err, catalog.ErrNotFound):
		httputil.WriteError(w, http.StatusNotFound, "unknown_exercise", err.Error())
	case errors.As(err, &cfgErr):
		httputil.WriteError(w, http.StatusBadRequest, "invalid_configuration", err.Error())
	case errors.Is(err, encoder.ErrBusy):
		httputil.WriteRetryable(w, 5, "busy", "all encode slots are busy, retry shortly")
	case errors.Is(err, encoder.ErrTimedOut):
		httputil.WriteError(w, http.StatusGatewayTimeout, "generation_timeout", err.Error())
	case errors.As(err, &encErr):
		httputil.WriteError(w, http.StatusInternalServerError, "encoding_failed", fmt.Sprintf("encoder exit code %d", encErr.ExitCode))
	case errors.As(err, &compErr):
		httputil.WriteError(w, http.StatusInternalServerError, "compilation_failed", err.Error())
	case errors.Is(err, context.Canceled):
		// Client already gone; nothing useful to write.
	default:
		httputil.WriteError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}
