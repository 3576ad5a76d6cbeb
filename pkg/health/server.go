// Package health serves liveness and readiness endpoints for the gateway.
package health

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
)

// Check reports why a dependency is not ready, or nil when it is.
type Check func() error

type Server struct {
	server  *http.Server
	started time.Time

	mu     sync.RWMutex
	checks map[string]Check
	order  []string
}

func NewServer(host string, port int) *Server {
	s := &Server{
		started: time.Now(),
		checks:  map[string]Check{},
	}
	s.server = &http.Server{
		Addr:              net.JoinHostPort(host, strconv.Itoa(port)),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// AddCheck registers a named readiness check. /ready answers 200 only when
// every check passes.
func (s *Server) AddCheck(name string, check Check) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.checks[name]; !ok {
		s.order = append(s.order, name)
	}
	s.checks[name] = check
}

func (s *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": time.Since(s.started).Round(time.Second).String(),
		})
	})
	router.GET("/ready", func(c *gin.Context) {
		failures := s.failing()
		if len(failures) > 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"checks": failures,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	return router
}

func (s *Server) failing() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	failures := map[string]string{}
	for _, name := range s.order {
		if err := s.checks[name](); err != nil {
			failures[name] = err.Error()
		}
	}
	return failures
}

// Start listens until Stop is called. It returns http.ErrServerClosed after a
// clean shutdown.
func (s *Server) Start() error {
	if err := s.server.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return fmt.Errorf("health server on %s: %w", s.server.Addr, err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.server.Addr
}
