package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/hhusein-alt/BookShelvz-sub001/internal/config"
	"github.com/hhusein-alt/BookShelvz-sub001/internal/eventbus"
	"github.com/hhusein-alt/BookShelvz-sub001/internal/logging"
	"github.com/hhusein-alt/BookShelvz-sub001/internal/realtime"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load(config.LoadOptions{Path: os.Getenv("BOOKSHELVZ_CONFIG")})
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Logging)

	bus := eventbus.NewInMemoryBus(256)
	busCtx, busCancel := context.WithCancel(context.Background())
	defer busCancel()
	bus.Start(busCtx)
	defer bus.Stop()

	bus.Subscribe(eventbus.EventConnectionClosed, func(event *eventbus.Event) {
		logger.Debug("lifecycle event", "type", string(event.Type), "client_id", event.Data["client_id"])
	})

	rt := realtime.NewServer(cfg.Realtime, logger, bus)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get(cfg.Realtime.Path, rt.ServeHTTP)
	r.Get("/health", healthHandler)
	r.Get("/stats", statsHandler(rt))

	server := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     r,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-quit:
	}

	logger.Info("server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rt.Close()
	return server.Shutdown(ctx)
}

// requestLogger stashes a request-scoped logger in the context so handlers
// downstream tag their output with the request id.
func requestLogger(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLogger := logger.WithFields(map[string]any{
				"request_id": middleware.GetReqID(r.Context()),
			})
			next.ServeHTTP(w, r.WithContext(logging.WithLogger(r.Context(), reqLogger)))
		})
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func statsHandler(rt *realtime.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, connections := rt.Stats()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"rooms": rooms, "connections": connections})
	}
}
