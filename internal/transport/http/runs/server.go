package runshttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"stratguard/internal/store"

	"github.com/gin-gonic/gin"
)

// RunReader is the read side of the result store.
type RunReader interface {
	ListRuns(ctx context.Context, limit int) ([]store.RunRecord, error)
	GetRun(ctx context.Context, runID string) (store.RunRecord, bool, error)
	LookaheadForRun(ctx context.Context, runID string) ([]store.LookaheadRecord, error)
}

// Server exposes recorded runs over HTTP.
type Server struct {
	addr    string
	results RunReader
	router  *gin.Engine
}

// Config describes the server dependencies. A nil Results answers 503.
type Config struct {
	Addr    string
	Results RunReader
}

func NewServer(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":9991"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	s := &Server{addr: cfg.Addr, results: cfg.Results, router: router}
	s.registerRoutes()
	return s
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Addr() string { return s.addr }

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	api := s.router.Group("/api/runs")
	api.GET("", s.handleRunList)
	api.GET("/:id", s.handleRunDetail)
	api.GET("/:id/lookahead", s.handleRunLookahead)
}

func (s *Server) handleRunList(c *gin.Context) {
	if s.results == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "result store disabled"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := s.results.ListRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleRunDetail(c *gin.Context) {
	if s.results == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "result store disabled"})
		return
	}
	run, ok, err := s.results.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run})
}

func (s *Server) handleRunLookahead(c *gin.Context) {
	if s.results == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "result store disabled"})
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, ok, err := s.results.GetRun(ctx, id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	} else if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	results, err := s.results.LookaheadForRun(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": id, "results": results})
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
