// Package stream moves encoded video from the encoder (or its spool file) to
// an HTTP response as it is produced. Delivery is chunked and flushed so
// playback can begin before encoding finishes.
package stream

import (
	"errors"
	"io"
	"net/http"
)

// ErrInterrupted reports that the client went away mid-stream. The encoder
// behind the reader should be cancelled when this is returned.
var ErrInterrupted = errors.New("stream: client disconnected")

const copyChunk = 64 * 1024

// ServeInline copies src to the response, flushing after every chunk. The
// Content-Type is set for fragmented MP4; no Content-Length is written
// because the final size is unknown while encoding is still in flight.
// Returns ErrInterrupted if the client disconnects before src is drained.
func ServeInline(w http.ResponseWriter, r *http.Request, src io.Reader) error {
	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Cache-Control", "no-store")

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, copyChunk)
	ctx := r.Context()

	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return ErrInterrupted
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return readErr
		}
		select {
		case <-ctx.Done():
			return ErrInterrupted
		default:
		}
	}
}
