// cmd/memberdesk/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kelseyhightower/envconfig"

	"memberdesk/internal/csvcodec"
	platformotel "memberdesk/internal/platform/otel"
	"memberdesk/internal/regflow"
	"memberdesk/internal/roster"
	"memberdesk/internal/session"
	"memberdesk/internal/watch"
	"memberdesk/pkg/kvstore"
)

// Config is read from the environment with the MEMBERDESK_ prefix.
type Config struct {
	Addr         string        `envconfig:"ADDR" default:":8080"`
	DataDir      string        `envconfig:"DATA_DIR" default:"./data"`
	OTELEndpoint string        `envconfig:"OTEL_ENDPOINT"`
	ShutdownWait time.Duration `envconfig:"SHUTDOWN_WAIT" default:"10s"`
}

func main() {
	var cfg Config
	if err := envconfig.Process("memberdesk", &cfg); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := platformotel.Setup(ctx, "memberdesk", cfg.OTELEndpoint)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}
	defer shutdownTracing(context.Background())

	store, err := kvstore.Open(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to open store at %s: %v", cfg.DataDir, err)
	}
	defer store.Close()

	rosterSvc, err := roster.NewService(ctx, store)
	if err != nil {
		log.Fatalf("Failed to start roster service: %v", err)
	}
	sessionSvc, err := session.NewService(ctx, store)
	if err != nil {
		log.Fatalf("Failed to start session service: %v", err)
	}
	regflowSvc, err := regflow.NewService(ctx, store, rosterSvc)
	if err != nil {
		log.Fatalf("Failed to start registration service: %v", err)
	}
	tracker := watch.NewTracker(store, regflowSvc)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Route("/api/v1", func(r chi.Router) {
		r.Mount("/members", roster.NewHandler(rosterSvc).Routes())
		r.Mount("/csv", csvcodec.NewHandler(rosterSvc).Routes())
		r.Mount("/registrations", regflow.NewHandler(regflowSvc, sessionSvc, tracker).Routes())
		r.Mount("/auth", session.NewHandler(sessionSvc).Routes())
	})

	server := &http.Server{Addr: cfg.Addr, Handler: router}

	go func() {
		fmt.Printf("🚀 Starting MemberDesk on %s\n", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownWait)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
