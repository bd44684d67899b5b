package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/JJublanc/virtual-ai-coach/internal/api"
	"github.com/JJublanc/virtual-ai-coach/internal/catalog"
	"github.com/JJublanc/virtual-ai-coach/internal/config"
	"github.com/JJublanc/virtual-ai-coach/internal/db"
	"github.com/JJublanc/virtual-ai-coach/internal/encoder"
	"github.com/JJublanc/virtual-ai-coach/internal/ffmpeg"
	"github.com/JJublanc/virtual-ai-coach/internal/jobs"
	"github.com/JJublanc/virtual-ai-coach/internal/registry"
	"github.com/JJublanc/virtual-ai-coach/internal/scheduler"
	"github.com/JJublanc/virtual-ai-coach/internal/version"
)

func main() {
	ver := version.Load()
	log.Printf("Virtual AI Coach %s starting...", ver.Version)

	cfg := config.Load()

	var source catalog.Source
	if cfg.CatalogFromDB() {
		database, err := db.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		defer database.Close()

		if err := db.Migrate(database, "migrations"); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
		source = catalog.NewRepository(database.DB)
		log.Println("exercise catalog: postgres")
	} else {
		source = catalog.NewFileSource(cfg.ExercisesFile)
		log.Printf("exercise catalog: %s", cfg.ExercisesFile)
	}

	clipCache := catalog.NewClipCache(cfg.ClipCacheDir)
	probe := ffmpeg.NewFFprobe(cfg.FFprobePath)
	cat := catalog.New(source, clipCache, probe)

	manager := encoder.NewManager(cfg.FFmpegPath, cfg.ScratchDir, cfg.MaxEncodes, cfg.EncodeTimeout)
	reg := registry.New(cfg.JobTTL)

	jobQueue := jobs.NewQueue(cfg.RedisAddr, cfg.MaxEncodes)
	srv := api.NewServer(cfg, cat, manager, reg, jobQueue)

	jobQueue.RegisterHandler(jobs.TaskGenerateVideo, jobs.NewGenerateHandler(manager, reg, srv.Notifier()))
	if err := jobQueue.Start(context.Background()); err != nil {
		log.Fatalf("job queue failed to start: %v", err)
	}
	defer jobQueue.Stop()

	sched := scheduler.New(reg, clipCache, cfg.ClipCacheAge)
	sched.Start()
	defer sched.Stop()

	httpServer := &http.Server{
		Addr:        ":" + strconv.Itoa(cfg.Port),
		Handler:     srv,
		ReadTimeout: 15 * time.Second,
		// Responses stream video for minutes; the per-job deadline bounds
		// the work instead of a write timeout.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("listening on :%d", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	httpServer.Shutdown(ctx)
}
