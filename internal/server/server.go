// Package server exposes the folder gate and the key unwrap path over HTTP.
//
// Authentication happens upstream: the verified user id arrives in the X-User-ID header
// and folder tokens in X-Folder-Token.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/idelchi/cloak/internal/logic"
)

const (
	// HeaderUserID carries the verified identity of the caller.
	HeaderUserID = "X-User-ID"
	// HeaderFolderToken carries a folder access token.
	HeaderFolderToken = "X-Folder-Token"

	shutdownTimeout = 10 * time.Second
)

// Server serves the HTTP gate.
type Server struct {
	app      *logic.App
	logger   logrus.FieldLogger
	engine   *gin.Engine
	attempts *clientLimiter
}

// Option configures a Server.
type Option func(*Server)

// WithAttemptLimit sets the per-client rate of requests carrying a password.
func WithAttemptLimit(limit rate.Limit, burst int) Option {
	return func(s *Server) {
		s.attempts = newClientLimiter(limit, burst)
	}
}

// New creates a Server around app. The app must have an access service configured.
// The gin mode is left to the caller.
func New(app *logic.App, opts ...Option) (*Server, error) {
	if _, err := app.Access(); err != nil {
		return nil, err
	}

	s := &Server{
		app:      app,
		logger:   app.Logger,
		engine:   gin.New(),
		attempts: newClientLimiter(DefaultAttemptRate, DefaultAttemptBurst),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.engine.Use(gin.Recovery(), s.logRequests())
	s.routes()

	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)

	go func() {
		s.logger.WithField("addr", addr).Info("serving")

		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) routes() {
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := s.engine.Group("/v1")
	limited := s.attempts.middleware(s)

	v1.POST("/folders/:folder/unlock", limited, s.unlockFolder)
	v1.POST("/files/:file/key", limited, s.unwrapKey)
	v1.GET("/files/:file/blob", s.fileBlob)
	v1.DELETE("/files/:file", s.deleteFile)
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		entry := s.logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"remote":  c.ClientIP(),
		})

		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Error("request failed")

			return
		}

		entry.Debug("request")
	}
}
