// Package statusfeed serves the bot's live status: a small JSON control API
// and a websocket stream of every bus event.
package statusfeed

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AbyssalKaz/Console101Farm/internal/database"
	"github.com/AbyssalKaz/Console101Farm/internal/engine"
	"github.com/AbyssalKaz/Console101Farm/internal/logging"
)

// Control actions accepted by POST /api/control/:action
const (
	ActionStart          = "start"
	ActionStop           = "stop"
	ActionPause          = "pause"
	ActionResume         = "resume"
	ActionToggleMovement = "toggle-movement"
	ActionTestCombo      = "test-combo"
)

// Controls is what the API drives
type Controls interface {
	Stats() engine.Stats
	StartEngine() error
	StopEngine()
	PauseEngine() error
	ResumeEngine() error
	ToggleMovement() bool
	TestCombo() error
}

// History is the optional read side of the history store
type History interface {
	GetRecentSessions(limit int) ([]*database.Session, error)
	GetRecentErrors(limit int) ([]*database.ErrorLog, error)
}

// Server is the status HTTP server
type Server struct {
	addr     string
	controls Controls
	history  History
	hub      *Hub
	logger   *logging.Logger
	router   *gin.Engine

	mu  sync.Mutex
	srv *http.Server
	ln  net.Listener
}

// NewServer builds the router. history may be nil.
func NewServer(addr string, controls Controls, history History, hub *Hub, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewLogger("StatusFeed")
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		addr:     addr,
		controls: controls,
		history:  history,
		hub:      hub,
		logger:   logger,
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.logRequests())

	api := router.Group("/api")
	{
		api.GET("/status", s.getStatus)
		api.POST("/control/:action", s.postControl)
		api.GET("/sessions", s.getSessions)
		api.GET("/errors", s.getErrors)
	}
	router.GET("/ws", gin.WrapH(hub))

	s.router = router
	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and serves in the background
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	srv := &http.Server{Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	s.srv, s.ln = srv, ln

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Status server stopped", err)
		}
	}()
	s.logger.InfoWithContext("Status server listening", map[string]interface{}{"addr": ln.Addr().String()})
	return nil
}

// Addr is the bound address once started, else the configured one
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Shutdown closes the websocket clients and stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()

	s.mu.Lock()
	srv := s.srv
	s.srv, s.ln = nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.DebugWithContext("HTTP request", map[string]interface{}{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start).String(),
		})
	}
}

func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.controls.Stats())
}

func (s *Server) postControl(c *gin.Context) {
	action := c.Param("action")

	var err error
	switch action {
	case ActionStart:
		err = s.controls.StartEngine()
	case ActionStop:
		s.controls.StopEngine()
	case ActionPause:
		err = s.controls.PauseEngine()
	case ActionResume:
		err = s.controls.ResumeEngine()
	case ActionToggleMovement:
		enabled := s.controls.ToggleMovement()
		c.JSON(http.StatusOK, gin.H{"movement_enabled": enabled})
		return
	case ActionTestCombo:
		err = s.controls.TestCombo()
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown action: " + action})
		return
	}

	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.controls.Stats())
}

// statusFor maps lifecycle errors to 409 and anything else to 500
func statusFor(err error) int {
	var te *engine.TransitionError
	switch {
	case errors.Is(err, engine.ErrAlreadyRunning), errors.Is(err, engine.ErrNotRunning),
		errors.Is(err, engine.ErrStopping), errors.As(err, &te):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) getSessions(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history store disabled"})
		return
	}
	sessions, err := s.history.GetRecentSessions(limitParam(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sessions)
}

func (s *Server) getErrors(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history store disabled"})
		return
	}
	errs, err := s.history.GetRecentErrors(limitParam(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, errs)
}

func limitParam(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		return 20
	}
	if limit > 500 {
		return 500
	}
	return limit
}
