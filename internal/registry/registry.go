// Package registry tracks deferred generation jobs: identity, lifecycle
// state, and the spool file the encoder output lands in. Entries are held in
// memory and expire after a TTL; the registry is the lookup path between
// "start a job" and "stream its result".
package registry

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusDone     Status = "done"
	StatusFailed   Status = "failed"
	StatusTimedOut Status = "timed_out"
)

// Job is one registered generation. Done is closed when the job reaches a
// terminal state; readers tailing the spool file use it to learn that no more
// bytes are coming.
type Job struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	SpoolPath string    `json:"-"`
	Error     string    `json:"error,omitempty"`
	Duration  float64   `json:"duration"`
	CreatedAt time.Time `json:"created_at"`

	Done   chan struct{} `json:"-"`
	cancel context.CancelFunc
}

type Registry struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func New(ttl time.Duration) *Registry {
	return &Registry{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

// Create registers a new pending job and returns it. The spool path is where
// the worker will write the encoded stream.
func (r *Registry) Create(spoolPath string, duration float64) *Job {
	job := &Job{
		ID:        uuid.New().String(),
		Status:    StatusPending,
		SpoolPath: spoolPath,
		Duration:  duration,
		CreatedAt: time.Now(),
		Done:      make(chan struct{}),
	}
	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()
	return job
}

// Get returns a snapshot copy of the job, or nil if unknown or expired.
func (r *Registry) Get(id string) *Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil
	}
	snapshot := *job
	return &snapshot
}

// SetSpool records the spool file path once the caller has derived it from
// the job id.
func (r *Registry) SetSpool(id, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[id]; ok {
		job.SpoolPath = path
	}
}

// SetRunning marks the job active and records its cancel function so expiry
// can kill a still-running encode.
func (r *Registry) SetRunning(id string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[id]; ok {
		job.Status = StatusRunning
		job.cancel = cancel
	}
}

// Finish moves the job to a terminal state and wakes any spool readers.
func (r *Registry) Finish(id string, status Status, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return
	}
	if job.Status == StatusDone || job.Status == StatusFailed || job.Status == StatusTimedOut {
		return
	}
	job.Status = status
	job.Error = errMsg
	job.cancel = nil
	close(job.Done)
}

// CleanupExpired drops entries older than the TTL, cancelling any still
// running and removing their spool files. Returns the number removed.
func (r *Registry) CleanupExpired() int {
	cutoff := time.Now().Add(-r.ttl)

	r.mu.Lock()
	var expired []*Job
	for id, job := range r.jobs {
		if job.CreatedAt.Before(cutoff) {
			expired = append(expired, job)
			delete(r.jobs, id)
		}
	}
	r.mu.Unlock()

	for _, job := range expired {
		if job.cancel != nil {
			job.cancel()
		}
		if job.SpoolPath != "" {
			if err := os.Remove(job.SpoolPath); err != nil && !os.IsNotExist(err) {
				log.Printf("Registry: failed to remove spool file for job %s: %v", job.ID, err)
			}
		}
	}
	if len(expired) > 0 {
		log.Printf("Registry: expired %d job(s)", len(expired))
	}
	return len(expired)
}

// Count returns the number of live entries.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}
