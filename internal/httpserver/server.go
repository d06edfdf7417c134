package httpserver

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Probe is one dependency checked by /readyz.
type Probe struct {
	Name string
	Ping func(ctx context.Context) error
}

type Server struct {
	httpServer *http.Server
	logger     *log.Logger
}

// New builds a Server with the storefront routes. The service reports ready
// only while every probe answers.
func New(addr string, logger *log.Logger, probes []Probe, deps Deps, allowedOrigins []string) (*Server, error) {
	router, err := buildRouter(logger, probes, deps, allowedOrigins)
	if err != nil {
		return nil, err
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}, nil
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func readyHandler(probes []Probe) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(probes) == 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "no backing stores configured"})
			return
		}
		for _, p := range probes {
			ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
			err := p.Ping(ctx)
			cancel()
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": p.Name + " not reachable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}
