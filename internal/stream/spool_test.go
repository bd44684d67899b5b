package stream

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestTailSpoolStreamsGrowingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.spool.mp4")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create spool: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer f.Close()
		for i := 0; i < 5; i++ {
			f.Write(bytes.Repeat([]byte{byte('a' + i)}, 1000))
			f.Sync()
			time.Sleep(20 * time.Millisecond)
		}
		close(done)
	}()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/workouts/jobs/x/stream", nil)

	if err := TailSpool(rec, req, path, done); err != nil {
		t.Fatalf("TailSpool: %v", err)
	}
	if rec.Body.Len() != 5000 {
		t.Errorf("streamed %d bytes, want 5000", rec.Body.Len())
	}
}

func TestTailSpoolAlreadyFinished(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.spool.mp4")
	if err := os.WriteFile(path, []byte("complete-video"), 0644); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	close(done)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/workouts/jobs/x/stream", nil)

	if err := TailSpool(rec, req, path, done); err != nil {
		t.Fatalf("TailSpool: %v", err)
	}
	if rec.Body.String() != "complete-video" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestTailSpoolClientDisconnect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.spool.mp4")
	if err := os.WriteFile(path, []byte("partial"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/workouts/jobs/x/stream", nil).WithContext(ctx)

	// done never closes: the writer is still running when the client leaves.
	err := TailSpool(rec, req, path, make(chan struct{}))
	if !errors.Is(err, ErrInterrupted) {
		t.Fatalf("got %v, want ErrInterrupted", err)
	}
}

func TestTailSpoolMissingFile(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/workouts/jobs/x/stream", nil)

	if err := TailSpool(rec, req, filepath.Join(t.TempDir(), "nope"), make(chan struct{})); err == nil {
		t.Fatal("expected error for missing spool file")
	}
}
