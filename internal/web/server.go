// Package web serves a read-only JSON API over saved diagnoses.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/user/netdiag/internal/model"
	"github.com/user/netdiag/internal/probes"
	"github.com/user/netdiag/internal/prognosis"
	"github.com/user/netdiag/internal/util"
)

// History is the part of the history index the API reads.
type History interface {
	Recent(limit int, kind model.ProbeKind) ([]model.HistoryEntry, error)
	LabelCounts(since time.Time) (map[model.Label]int, error)
}

// ToolLister reports installed external tools.
type ToolLister interface {
	Tools() []probes.Tool
}

// Server is the web server.
type Server struct {
	engine *gin.Engine
	config *util.Config
	port   int
	srv    *http.Server
}

// NewServer creates a new web server. history and tools may be nil.
func NewServer(records prognosis.RecordSource, history History, tools ToolLister, cfg *util.Config) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false

	s := &Server{
		engine: engine,
		config: cfg,
		port:   cfg.WebPort,
	}

	h := NewHandlers(records, history, tools, cfg)
	h.register(engine)
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start starts the web server and blocks until ctx is done, SIGINT/SIGTERM
// arrives or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		if err := s.Stop(); err != nil {
			util.Warn("Web server shutdown: %v", err)
		}
	}()

	util.Info("Web server starting on port %d", s.port)

	if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the web server.
func (s *Server) Stop() error {
	if s.srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.srv.Shutdown(ctx)
}
