package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"github.com/JJublanc/virtual-ai-coach/internal/encoder"
	"github.com/JJublanc/virtual-ai-coach/internal/filtergraph"
	"github.com/JJublanc/virtual-ai-coach/internal/registry"
)

func fakeEncoder(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-encoder")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func testGraph() *filtergraph.GraphSpec {
	return &filtergraph.GraphSpec{
		Inputs:    []filtergraph.Input{{Path: "in.mp4"}},
		RestInput: -1,
		Segments:  []filtergraph.SegmentOp{{Input: 0, Kind: "work", Speed: 1.0, Duration: 10}},
		Output: filtergraph.OutputSpec{
			Width: 1280, Height: 720, FPS: 30,
			PixelFormat: "yuv420p", Codec: "libx264", Preset: "ultrafast", CRF: 23,
		},
		Total: 10,
	}
}

func generateTask(t *testing.T, jobID string) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(GeneratePayload{JobID: jobID, Graph: testGraph()})
	if err != nil {
		t.Fatal(err)
	}
	return asynq.NewTask(TaskGenerateVideo, data)
}

func TestProcessTaskSpoolsOutput(t *testing.T) {
	m := encoder.NewManager(fakeEncoder(t, `echo "video-bytes"`), t.TempDir(), 1, 5*time.Second)
	reg := registry.New(time.Hour)
	spool := filepath.Join(t.TempDir(), "job.spool.mp4")
	entry := reg.Create(spool, 10)

	h := NewGenerateHandler(m, reg, nil)
	if err := h.ProcessTask(context.Background(), generateTask(t, entry.ID)); err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}

	got := reg.Get(entry.ID)
	if got.Status != registry.StatusDone {
		t.Fatalf("status = %s (%s), want done", got.Status, got.Error)
	}
	select {
	case <-got.Done:
	default:
		t.Error("Done not closed")
	}

	data, err := os.ReadFile(spool)
	if err != nil {
		t.Fatalf("read spool: %v", err)
	}
	if string(data) != "video-bytes\n" {
		t.Errorf("spool = %q", data)
	}
}

func TestProcessTaskRecordsFailure(t *testing.T) {
	m := encoder.NewManager(fakeEncoder(t, `echo "bad input" >&2; exit 2`), t.TempDir(), 1, 5*time.Second)
	reg := registry.New(time.Hour)
	entry := reg.Create(filepath.Join(t.TempDir(), "job.spool.mp4"), 10)

	h := NewGenerateHandler(m, reg, nil)
	// Failures are terminal, not retryable: the task must be consumed.
	if err := h.ProcessTask(context.Background(), generateTask(t, entry.ID)); err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}

	got := reg.Get(entry.ID)
	if got.Status != registry.StatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.Error == "" {
		t.Error("failure recorded without a reason")
	}
}

func TestProcessTaskRecordsTimeout(t *testing.T) {
	m := encoder.NewManager(fakeEncoder(t, `sleep 30`), t.TempDir(), 1, 100*time.Millisecond)
	reg := registry.New(time.Hour)
	entry := reg.Create(filepath.Join(t.TempDir(), "job.spool.mp4"), 10)

	h := NewGenerateHandler(m, reg, nil)
	if err := h.ProcessTask(context.Background(), generateTask(t, entry.ID)); err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}

	if got := reg.Get(entry.ID); got.Status != registry.StatusTimedOut {
		t.Fatalf("status = %s, want timed_out", got.Status)
	}
}

func TestProcessTaskReturnsBusyForRetry(t *testing.T) {
	m := encoder.NewManager(fakeEncoder(t, `sleep 30`), t.TempDir(), 1, time.Minute)
	reg := registry.New(time.Hour)

	blocker, err := m.Start(context.Background(), testGraph())
	if err != nil {
		t.Fatalf("Start blocker: %v", err)
	}
	defer blocker.Close()

	entry := reg.Create(filepath.Join(t.TempDir(), "job.spool.mp4"), 10)
	h := NewGenerateHandler(m, reg, nil)

	if err := h.ProcessTask(context.Background(), generateTask(t, entry.ID)); !errors.Is(err, encoder.ErrBusy) {
		t.Fatalf("got %v, want ErrBusy", err)
	}
	// Still pending: a later retry can pick it up.
	if got := reg.Get(entry.ID); got.Status != registry.StatusPending {
		t.Errorf("status = %s, want pending", got.Status)
	}
}

func TestProcessTaskDropsExpiredJob(t *testing.T) {
	m := encoder.NewManager(fakeEncoder(t, `echo ok`), t.TempDir(), 1, 5*time.Second)
	reg := registry.New(time.Hour)

	h := NewGenerateHandler(m, reg, nil)
	if err := h.ProcessTask(context.Background(), generateTask(t, "gone")); err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}
}
