package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/ticket-arcade/raffle-indexer/internal/api/docs"
	"github.com/ticket-arcade/raffle-indexer/internal/logger"
	"github.com/ticket-arcade/raffle-indexer/internal/store"
)

// Ensure docs are initialized
var _ = docs.SwaggerInfo

const shutdownCtxTimeout = 10 * time.Second

// Server is the read API HTTP server. It shares only the database connection
// pool with the indexer loop and treats every row as read-only.
type Server struct {
	server *http.Server
	log    *logger.Logger
}

// NewServer creates the API server.
func NewServer(bindAddr string, st *store.Store, explorerBaseURL string, log *logger.Logger) *Server {
	handler := NewHandler(st, explorerBaseURL, log)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handler.Health)
	mux.HandleFunc("GET /v1/raffles", handler.ListRaffles)
	mux.HandleFunc("GET /v1/raffles/{id}", handler.GetRaffle)
	mux.HandleFunc("GET /v1/raffles/{id}/purchases", handler.ListPurchases)
	mux.HandleFunc("GET /v1/raffles/{id}/proof", handler.GetProof)
	mux.HandleFunc("GET /v1/randomness/requests", handler.ListRandomnessRequests)
	mux.HandleFunc("GET /v1/randomness/fulfillments", handler.ListRandomnessFulfillments)

	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.DeepLinking(true),
	))

	var h http.Handler = mux
	h = CORSMiddleware([]string{"*"})(h)
	h = LoggingMiddleware(log.WithComponent("api"))(h)
	h = RecoveryMiddleware(log.WithComponent("api"))(h)

	return &Server{
		server: &http.Server{
			Addr:         bindAddr,
			Handler:      h,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		log: log.WithComponent("api"),
	}
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("read API listening on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("API server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownCtxTimeout)
	defer cancel()

	s.log.Info("shutting down API server")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("API server shutdown error: %w", err)
	}
	return nil
}
