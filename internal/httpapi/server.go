// Package httpapi exposes the bridge's HTTP surface: the subscription API
// used by the downstream runtime and the Slack events webhook.
package httpapi

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relaygate/slackbridge/internal/config"
	"github.com/relaygate/slackbridge/internal/subscription"
)

// SubscriptionService is the façade the HTTP layer drives.
type SubscriptionService interface {
	AddMessageListener(ctx context.Context, appID, subscriptionID, channelName, pattern string) error
	RemoveMessageListener(subscriptionID string) bool
	AddMentionListener(ctx context.Context, appID, subscriptionID, pattern string) error
	RemoveMentionListener(subscriptionID string) bool
	RemoveEvent(eventID string) bool
	SendMessage(ctx context.Context, appID, channelName, text string) error
	Reply(ctx context.Context, appID, eventID, text string) error
	HandleEvent(ctx context.Context, ev subscription.Event)
}

// Server hosts the subscription API and the Slack webhook.
type Server struct {
	cfg        *config.Config
	service    SubscriptionService
	limiter    *RateLimiter
	logger     *log.Logger
	httpServer *http.Server

	shutdownOnce sync.Once
}

// NewServer builds the HTTP server around the subscription service. limiter
// may be nil to disable webhook rate limiting.
func NewServer(cfg *config.Config, service SubscriptionService, limiter *RateLimiter, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(os.Stdout, "httpapi ", log.LstdFlags)
	}
	return &Server{
		cfg:     cfg,
		service: service,
		limiter: limiter,
		logger:  logger,
	}
}

// Run starts the server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	mux := s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.HTTPHost, s.cfg.HTTPPort),
		Handler:      s.loggingMiddleware(mux),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Printf("Starting bridge server at http://%s:%d", s.cfg.HTTPHost, s.cfg.HTTPPort)
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		return s.shutdown()
	case err := <-errChan:
		return err
	}
}

// shutdown performs graceful shutdown
func (s *Server) shutdown() error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.logger.Println("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}
	})
	return shutdownErr
}

// setupRoutes configures HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Subscription API
	mux.HandleFunc("POST /hears", s.handleHears)
	mux.HandleFunc("POST /unhears", s.handleUnhears)
	mux.HandleFunc("POST /receives", s.handleReceives)
	mux.HandleFunc("POST /unreceives", s.handleUnreceives)
	mux.HandleFunc("POST /hears/reply", s.handleReply)
	mux.HandleFunc("POST /receives/reply", s.handleReply)
	mux.HandleFunc("POST /hears/close", s.handleClose)
	mux.HandleFunc("POST /receives/close", s.handleClose)
	mux.HandleFunc("POST /send", s.handleSend)

	// Slack Events API webhook
	mux.HandleFunc("POST /slack/events", s.handleSlackEvents)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}

// loggingMiddleware logs each request with a generated request ID.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()

		s.logger.Printf("request_id=%s %s %s", requestID, r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
		s.logger.Printf("request_id=%s %s %s completed in %v", requestID, r.Method, r.URL.Path, time.Since(start))
	})
}
