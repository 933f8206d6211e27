package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kubiknyc/SuperSiteHero-sub015/internal/client"
	"github.com/kubiknyc/SuperSiteHero-sub015/internal/config"
	"github.com/kubiknyc/SuperSiteHero-sub015/internal/database"
	"github.com/kubiknyc/SuperSiteHero-sub015/internal/handler"
	"github.com/kubiknyc/SuperSiteHero-sub015/internal/logger"
	"github.com/kubiknyc/SuperSiteHero-sub015/internal/middleware"
	"github.com/kubiknyc/SuperSiteHero-sub015/internal/repository"
	"github.com/kubiknyc/SuperSiteHero-sub015/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       cfg.Service.LogLevel,
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
	})

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("environment", cfg.Service.Environment).
		Msg("Starting Workflow Engine")

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(ctx, database.Config{
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		User:        cfg.Database.User,
		Password:    cfg.Database.Password,
		Database:    cfg.Database.Database,
		SSLMode:     cfg.Database.SSLMode,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		MaxConnTime: cfg.Database.MaxConnTime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	// Initialize repositories
	sequenceRepo := repository.NewSequenceRepository(db)
	revisionRepo := repository.NewRevisionRepository(db)
	itemRepo := repository.NewWorkflowItemRepository(db, sequenceRepo, revisionRepo)
	auditRepo := repository.NewAuditRepository(db)

	// Initialize event publisher (optional; skipped when no NATS URL is set)
	var events service.EventPublisher
	if cfg.NATS.URL != "" {
		publisher, err := client.NewEventPublisher(cfg.NATS.URL, log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to NATS")
		}
		defer publisher.Close()
		events = publisher
		log.Info().Str("nats_url", cfg.NATS.URL).Msg("Event publisher initialized")
	} else {
		log.Info().Msg("No NATS URL configured, transition events disabled")
	}

	// Authority table: configured levels override the defaults role by role
	table := service.DefaultAuthorityTable()
	for _, level := range cfg.Authority {
		table[level.Role] = service.AuthorityLevel{
			Role:                    level.Role,
			MaxAutoApprove:          level.MaxAutoApprove,
			SecondApprovalThreshold: level.SecondApprovalThreshold,
		}
	}
	authority := service.NewAuthorityResolver(table)

	// Initialize services
	workflowService := service.NewWorkflowService(itemRepo, revisionRepo, sequenceRepo, auditRepo, events, authority, log)

	// Setup HTTP routes
	httpHandler := handler.NewHTTPHandler(workflowService, log)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Item routes
	mux.HandleFunc("/api/v1/items", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			httpHandler.ListItems(w, r)
		case http.MethodPost:
			httpHandler.CreateItem(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/items/get", httpHandler.GetItem)
	mux.HandleFunc("/api/v1/items/transition", httpHandler.Transition)
	mux.HandleFunc("/api/v1/items/ball-in-court", httpHandler.UpdateBallInCourt)
	mux.HandleFunc("/api/v1/items/escalate", httpHandler.RequestEscalation)
	mux.HandleFunc("/api/v1/items/link", httpHandler.LinkItems)
	mux.HandleFunc("/api/v1/items/void-revision", httpHandler.VoidRevision)
	mux.HandleFunc("/api/v1/items/revisions", httpHandler.GetRevisions)
	mux.HandleFunc("/api/v1/items/audit", httpHandler.GetAuditTrail)
	mux.HandleFunc("/api/v1/items/pending", httpHandler.GetPending)
	mux.HandleFunc("/api/v1/items/next-number", httpHandler.GetNextNumber)
	mux.HandleFunc("/api/v1/projects/rollup", httpHandler.GetRollup)

	// Apply middleware
	var h http.Handler = mux
	h = middleware.RequestID(h)
	h = middleware.Logger(&log.Logger)(h)
	h = middleware.Recovery(&log.Logger)(h)
	h = middleware.CORS([]string{"*"})(h)
	h = middleware.Timeout(30 * time.Second)(h)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
