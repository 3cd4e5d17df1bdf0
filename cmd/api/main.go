package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bobarin/storyboard/internal/api"
	"github.com/bobarin/storyboard/internal/config"
	"github.com/bobarin/storyboard/internal/db"
	"github.com/bobarin/storyboard/internal/models"
	"github.com/bobarin/storyboard/internal/orchestrator"
	"github.com/bobarin/storyboard/internal/queue"
	"github.com/bobarin/storyboard/internal/services"
	"github.com/bobarin/storyboard/internal/storage"
	"github.com/bobarin/storyboard/internal/store"
	"github.com/bobarin/storyboard/internal/worker"
	"github.com/bobarin/storyboard/internal/workspace"
)

func main() {
	log.Println("Starting Storyboard API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	// Job queue: Redis when configured, otherwise in-process
	var broker queue.Broker
	var redisQueue *queue.Queue
	if cfg.RedisURL != "" {
		redisQueue, err = queue.New(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to queue: %v", err)
		}
		broker = redisQueue
		log.Println("Connected to Redis queue")
	} else {
		broker = queue.NewMemory()
		log.Println("Using in-process job queue")
	}
	defer broker.Close()

	// State backend
	var database *db.DB
	var backend store.Backend
	switch cfg.StateBackend {
	case config.StatePostgres:
		database, err = db.New(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()
		backend = database
		log.Println("Connected to database")
	case config.StateRedis:
		backend = store.NewRedis(redisQueue.Client())
		log.Println("Persisting state in Redis")
	default:
		backend = store.NewMemory()
		log.Println("WARNING: STATE_BACKEND=memory, state is lost on restart")
	}

	ws := workspace.Open(ctx, store.New(backend))

	// Initialize services
	styles, err := services.LoadStyleCatalogue(cfg.DirectorStylesFile)
	if err != nil {
		log.Fatalf("Failed to load director styles: %v", err)
	}

	geminiSvc, err := services.NewGeminiService(ctx, cfg.GeminiKey, cfg.GeminiTextModel, styles)
	if err != nil {
		log.Fatalf("Failed to initialize Gemini: %v", err)
	}

	var textSvc orchestrator.TextAssistant = geminiSvc
	if cfg.TextProvider == config.TextProviderOpenAI {
		textSvc = services.NewOpenAIService(cfg.OpenAIKey, cfg.OpenAIModel)
		log.Printf("Text provider: OpenAI (model: %s)", cfg.OpenAIModel)
	} else {
		log.Printf("Text provider: Gemini (model: %s)", cfg.GeminiTextModel)
	}

	veoSvc, err := services.NewVeoService(ctx, cfg.GeminiKey, cfg.VeoModel)
	if err != nil {
		log.Fatalf("Failed to initialize Veo: %v", err)
	}

	// ElevenLabs preferred, translate-TTS as keyless fallback
	var ttsSvc services.TTSService
	if cfg.ElevenLabsKey != "" {
		ttsSvc = services.NewElevenLabsService(cfg.ElevenLabsKey, cfg.ElevenLabsVoiceID)
		log.Printf("TTS provider: ElevenLabs (voice: %s)", cfg.ElevenLabsVoiceID)
	} else {
		ttsSvc = services.NewTranslateTTS()
		log.Println("TTS provider: translate-TTS")
	}

	// Initialize media storage
	var media storage.MediaStore
	mediaDir := ""
	switch cfg.MediaBackend {
	case config.MediaSupabase:
		media = storage.NewSupabase(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket)
		log.Println("Initialized Supabase storage")
	case config.MediaMinIO:
		media, err = storage.NewMinIO(ctx, cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOBucket, cfg.MinIOUseSSL)
		if err != nil {
			log.Fatalf("Failed to initialize MinIO storage: %v", err)
		}
		log.Printf("Initialized MinIO storage (bucket: %s)", cfg.MinIOBucket)
	default:
		local, err := storage.NewLocal(cfg.MediaDir, cfg.MediaBaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize local storage: %v", err)
		}
		media = local
		mediaDir = local.Dir()
		log.Printf("Initialized local storage at %s", mediaDir)
	}

	orch := orchestrator.New(ws, orchestrator.Backends{
		Script: geminiSvc,
		Text:   textSvc,
		Chat:   geminiSvc,
		Video:  veoSvc,
		Speech: ttsSvc,
		Media:  media,
	}, orchestrator.Options{
		PollInterval: cfg.VideoPollInterval,
		MaxPolls:     cfg.VideoMaxPolls,
		AspectRatio:  models.AspectRatio(cfg.VideoAspectRatio),
	})

	// In-process jobs do not survive a restart
	if redisQueue == nil {
		orch.ResetInterruptedMedia(ctx)
	}

	// The job log lives in Postgres; interfaces stay nil without it.
	var jobStore api.JobStore
	var jobLog worker.JobLog
	if database != nil {
		jobStore = database
		jobLog = database
	}

	// Create API handler
	handler := api.NewHandler(orch, broker, jobStore, styles)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
		MediaDir:           mediaDir,
		MediaPath:          cfg.MediaBaseURL,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set, API is unprotected (dev mode)")
	}

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	// Start worker in background
	w := worker.New(broker, orch, jobLog)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if err := w.Start(workerCtx, cfg.MaxConcurrentJobs); err != nil {
			log.Printf("Worker stopped: %v", err)
		}
	}()

	// Start server in goroutine
	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// Shutdown worker
	workerCancel()
	<-workerDone
	orch.WaitTitles()

	log.Println("Server exited")
}
