package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/hibiken/asynq"

	"github.com/JJublanc/virtual-ai-coach/internal/encoder"
	"github.com/JJublanc/virtual-ai-coach/internal/filtergraph"
	"github.com/JJublanc/virtual-ai-coach/internal/registry"
)

// GeneratePayload is the task body for a deferred generation. The graph is
// fully compiled at submission time; the worker only encodes.
type GeneratePayload struct {
	JobID string                 `json:"job_id"`
	Graph *filtergraph.GraphSpec `json:"graph"`
}

type GenerateHandler struct {
	manager  *encoder.Manager
	registry *registry.Registry
	notifier EventNotifier
}

func NewGenerateHandler(manager *encoder.Manager, reg *registry.Registry, notifier EventNotifier) *GenerateHandler {
	return &GenerateHandler{manager: manager, registry: reg, notifier: notifier}
}

// ProcessTask runs one deferred generation. Only the busy case returns an
// error (so asynq retries when a slot frees up); every other outcome is
// recorded in the registry as terminal and the task is consumed.
func (h *GenerateHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p GeneratePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	entry := h.registry.Get(p.JobID)
	if entry == nil {
		log.Printf("Job: %s expired before a worker picked it up, dropping", p.JobID)
		return nil
	}

	job, err := h.manager.Start(ctx, p.Graph)
	if err != nil {
		if errors.Is(err, encoder.ErrBusy) {
			return err
		}
		h.finish(p.JobID, registry.StatusFailed, err.Error())
		return nil
	}

	h.registry.SetRunning(p.JobID, job.Cancel)
	h.broadcast(p.JobID, registry.StatusRunning, "")

	spool, err := os.Create(entry.SpoolPath)
	if err != nil {
		job.Close()
		h.finish(p.JobID, registry.StatusFailed, fmt.Sprintf("create spool file: %v", err))
		return nil
	}

	_, copyErr := io.Copy(spool, job.Output)
	if closeErr := spool.Close(); copyErr == nil {
		copyErr = closeErr
	}
	waitErr := job.Wait()

	switch {
	case waitErr == nil && copyErr == nil:
		h.finish(p.JobID, registry.StatusDone, "")
	case errors.Is(waitErr, encoder.ErrTimedOut):
		h.finish(p.JobID, registry.StatusTimedOut, waitErr.Error())
	case waitErr != nil:
		h.finish(p.JobID, registry.StatusFailed, waitErr.Error())
	default:
		h.finish(p.JobID, registry.StatusFailed, fmt.Sprintf("write spool: %v", copyErr))
	}
	return nil
}

func (h *GenerateHandler) finish(jobID string, status registry.Status, errMsg string) {
	h.registry.Finish(jobID, status, errMsg)
	if errMsg != "" {
		log.Printf("Job: %s finished with status %s: %s", jobID, status, errMsg)
	} else {
		log.Printf("Job: %s finished with status %s", jobID, status)
	}
	h.broadcast(jobID, status, errMsg)
}

func (h *GenerateHandler) broadcast(jobID string, status registry.Status, errMsg string) {
	if h.notifier == nil {
		return
	}
	data := map[string]interface{}{
		"job_id": jobID,
		"status": string(status),
	}
	if errMsg != "" {
		data["error"] = errMsg
	}
	h.notifier.Broadcast("job:update", data)
}
