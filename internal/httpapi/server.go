package httpapi

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"supporttriage/internal/corpus"
	"supporttriage/internal/domain"
)

// Submitter is satisfied by *intake.Intake.
type Submitter interface {
	Submit(ctx context.Context, ticket domain.Ticket) (string, domain.ClassificationResult, error)
}

// Server serves the triage HTTP API.
type Server struct {
	intake         Submitter
	corpus         *corpus.Holder
	db             *sql.DB
	feedbackWindow int
}

func NewServer(intake Submitter, holder *corpus.Holder, db *sql.DB, feedbackWindow int) *Server {
	if feedbackWindow <= 0 {
		feedbackWindow = 20
	}
	return &Server{intake: intake, corpus: holder, db: db, feedbackWindow: feedbackWindow}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), requestLogger(), cors())

	r.GET("/health", s.health)

	api := r.Group("/api")
	api.GET("/clients", s.listClients)
	api.GET("/ans", s.slaMatrix)
	api.POST("/tickets", s.classifyTicket)
	api.POST("/feedback", s.createFeedback)
	api.GET("/feedback", s.listFeedback)
	api.GET("/stats", s.stats)
	return r
}

// ListenAndServe runs the API on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		slog.Info("http api shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetString("request_id"))
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
