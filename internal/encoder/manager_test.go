package encoder

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JJublanc/virtual-ai-coach/internal/filtergraph"
)

// fakeEncoder writes a shell script that stands in for the real encoder
// binary, so process supervision can be tested without ffmpeg installed.
func fakeEncoder(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-encoder")
	full := "#!/bin/sh\n" + script + "\n"
	if err := os.WriteFile(path, []byte(full), 0755); err != nil {
		t.Fatalf("write fake encoder: %v", err)
	}
	return path
}

func minimalSpec() *filtergraph.GraphSpec {
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

func TestStartSuccessAndCleanup(t *testing.T) {
	bin := fakeEncoder(t, `echo "video-bytes"`)
	m := NewManager(bin, t.TempDir(), 1, 5*time.Second)

	job, err := m.Start(context.Background(), minimalSpec())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	out, err := io.ReadAll(job.Output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(out) != "video-bytes\n" {
		t.Errorf("output = %q", out)
	}

	if err := job.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if _, err := os.Stat(job.ScratchDir()); !os.IsNotExist(err) {
		t.Errorf("scratch dir still present after Wait: %v", err)
	}
}

func TestStartStagesFilterScript(t *testing.T) {
	// The script's only argument use: verify the staged filter file exists
	// at the path given via -filter_complex_script.
	bin := fakeEncoder(t, `
while [ $# -gt 1 ]; do
  if [ "$1" = "-filter_complex_script" ]; then
    cat "$2"
    exit 0
  fi
  shift
done
exit 7`)
	m := NewManager(bin, t.TempDir(), 1, 5*time.Second)

	job, err := m.Start(context.Background(), minimalSpec())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	out, _ := io.ReadAll(job.Output)
	if err := job.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("filter script not staged before process start")
	}
}

func TestWaitReportsExitCodeAndStderr(t *testing.T) {
	bin := fakeEncoder(t, `echo "something went wrong" >&2; exit 3`)
	m := NewManager(bin, t.TempDir(), 1, 5*time.Second)

	job, err := m.Start(context.Background(), minimalSpec())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	io.Copy(io.Discard, job.Output)

	err = job.Wait()
	var encErr *EncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("got %v, want EncodingError", err)
	}
	if encErr.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", encErr.ExitCode)
	}
	if encErr.Detail != "something went wrong" {
		t.Errorf("Detail = %q", encErr.Detail)
	}
	if _, statErr := os.Stat(job.ScratchDir()); !os.IsNotExist(statErr) {
		t.Error("scratch dir still present after failure")
	}
}

func TestTimeoutKillsProcess(t *testing.T) {
	bin := fakeEncoder(t, `sleep 30`)
	m := NewManager(bin, t.TempDir(), 1, 100*time.Millisecond)

	job, err := m.Start(context.Background(), minimalSpec())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	io.Copy(io.Discard, job.Output)

	if err := job.Wait(); !errors.Is(err, ErrTimedOut) {
		t.Fatalf("got %v, want ErrTimedOut", err)
	}
	if _, statErr := os.Stat(job.ScratchDir()); !os.IsNotExist(statErr) {
		t.Error("scratch dir still present after timeout")
	}
}

func TestCancelKillsProcess(t *testing.T) {
	bin := fakeEncoder(t, `sleep 30`)
	m := NewManager(bin, t.TempDir(), 1, time.Minute)

	job, err := m.Start(context.Background(), minimalSpec())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		io.Copy(io.Discard, job.Output)
		done <- job.Wait()
	}()

	time.Sleep(50 * time.Millisecond)
	job.Cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("got %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after Cancel")
	}
	if _, statErr := os.Stat(job.ScratchDir()); !os.IsNotExist(statErr) {
		t.Error("scratch dir still present after cancel")
	}
}

func TestCancelKillsEncoderHelpers(t *testing.T) {
	// The helper inherits stdout; if only the direct child were killed the
	// pipe would stay open and Wait would block for the full 30s.
	bin := fakeEncoder(t, `sleep 30 &
wait`)
	m := NewManager(bin, t.TempDir(), 1, time.Minute)

	job, err := m.Start(context.Background(), minimalSpec())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		io.Copy(io.Discard, job.Output)
		done <- job.Wait()
	}()

	time.Sleep(50 * time.Millisecond)
	job.Cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("got %v, want context.Canceled", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Wait blocked on an orphaned helper process")
	}
}

func TestSlotsEnforceBusy(t *testing.T) {
	bin := fakeEncoder(t, `sleep 30`)
	m := NewManager(bin, t.TempDir(), 1, time.Minute)

	first, err := m.Start(context.Background(), minimalSpec())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := m.Start(context.Background(), minimalSpec()); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Start: got %v, want ErrBusy", err)
	}

	first.Close()

	// The slot must be free again after the first job is reaped.
	second, err := m.Start(context.Background(), minimalSpec())
	if err != nil {
		t.Fatalf("Start after release: %v", err)
	}
	second.Close()
}

func TestWaitIdempotent(t *testing.T) {
	bin := fakeEncoder(t, `exit 0`)
	m := NewManager(bin, t.TempDir(), 1, 5*time.Second)

	job, err := m.Start(context.Background(), minimalSpec())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	io.Copy(io.Discard, job.Output)

	first := job.Wait()
	second := job.Wait()
	if first != second {
		t.Errorf("Wait results differ: %v vs %v", first, second)
	}
}
