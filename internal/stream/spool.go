package stream

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const tailPoll = 200 * time.Millisecond

// TailSpool streams a spool file that may still be growing. It serves bytes
// as they appear and keeps reading past EOF until done is closed (the writer
// reached a terminal state) and the remainder has been drained. Returns
// ErrInterrupted if the client disconnects first.
func TailSpool(w http.ResponseWriter, r *http.Request, path string, done <-chan struct{}) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open spool: %w", err)
	}
	defer f.Close()

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Cache-Control", "no-store")

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, copyChunk)
	ctx := r.Context()
	finished := false

	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return ErrInterrupted
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr != nil && readErr != io.EOF {
			return readErr
		}
		if readErr == io.EOF {
			if finished {
				return nil
			}
			select {
			case <-done:
				// Writer finished; keep reading to drain anything written
				// between our EOF and the close, then stop at the next EOF.
				finished = true
			case <-ctx.Done():
				return ErrInterrupted
			case <-time.After(tailPoll):
			}
		}
	}
}
