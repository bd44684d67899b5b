// Package scheduler runs the periodic housekeeping passes: expiring deferred
// jobs past their TTL and aging out cached clip downloads.
package scheduler

import (
	"log"
	"time"

	"github.com/JJublanc/virtual-ai-coach/internal/catalog"
	"github.com/JJublanc/virtual-ai-coach/internal/registry"
)

type Scheduler struct {
	registry  *registry.Registry
	clipCache *catalog.ClipCache
	clipAge   time.Duration
	interval  time.Duration
	stop      chan struct{}
}

func New(reg *registry.Registry, cache *catalog.ClipCache, clipAge time.Duration) *Scheduler {
	return &Scheduler{
		registry:  reg,
		clipCache: cache,
		clipAge:   clipAge,
		interval:  60 * time.Second,
		stop:      make(chan struct{}),
	}
}

// Start begins the ticker loop.
func (s *Scheduler) Start() {
	go s.run()
	log.Println("[scheduler] cleanup loop started (60s interval)")
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	close(s.stop)
}

func (s *Scheduler) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stop:
			log.Println("[scheduler] cleanup loop stopped")
			return
		}
	}
}

func (s *Scheduler) sweep() {
	s.registry.CleanupExpired()
	s.clipCache.CleanupOld(s.clipAge)
}
