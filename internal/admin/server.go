package admin

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/mfeldt/regbank/internal/bank"
	"github.com/mfeldt/regbank/internal/binding"
	"github.com/mfeldt/regbank/internal/observability"
	"github.com/mfeldt/regbank/internal/points"
)

// Version is reported by the health endpoint.
const Version = "0.0.1"

// RegisterReader is the locked read path into the register banks, satisfied
// by server.Engine.
type RegisterReader interface {
	ReadHoldingRegisters(start uint16, count int) ([]uint16, error)
	ReadInputRegisters(start uint16, count int) ([]uint16, error)
}

// Registries exposes the per-bank binding registries for listing.
type Registries struct {
	Holding *binding.Registry
	Input   *binding.Registry
}

// Server is the read-only operator surface of a running regbankd.
type Server struct {
	ID       string
	Appeared time.Time

	reader RegisterReader
	regs   Registries
	pts    *points.Store
	router *gin.Engine
}

func New(id string, reader RegisterReader, regs Registries, pts *points.Store, corsOrigins []string) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.AdminMiddleware(id, log.Logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		ID:       id,
		Appeared: time.Now(),
		reader:   reader,
		regs:     regs,
		pts:      pts,
		router:   r,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"node":    s.ID,
			"version": Version,
		})
	})

	s.router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"uptime": time.Since(s.Appeared).String(),
			"node":   s.ID,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/points", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"points": s.pts.List(),
		})
	})

	s.router.GET("/bindings", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"holding": describeBindings(s.regs.Holding),
			"input":   describeBindings(s.regs.Input),
		})
	})

	s.router.GET("/registers/:bank", s.handleRegisterPeek)
}

type bindingInfo struct {
	Address uint16 `json:"address"`
	Width   int    `json:"width"`
}

func describeBindings(reg *binding.Registry) []bindingInfo {
	if reg == nil {
		return []bindingInfo{}
	}
	snap := reg.Snapshot()
	list := make([]bindingInfo, 0, len(snap))
	for _, b := range snap {
		list = append(list, bindingInfo{Address: b.Addr, Width: b.Width})
	}
	return list
}

func (s *Server) handleRegisterPeek(c *gin.Context) {
	start, err := parseUint16Query(c, "start", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	count, err := parseUint16Query(c, "count", 16)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var words []uint16
	switch c.Param("bank") {
	case "holding":
		words, err = s.reader.ReadHoldingRegisters(start, int(count))
	case "input":
		words, err = s.reader.ReadInputRegisters(start, int(count))
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown bank"})
		return
	}
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, bank.ErrOutOfRange) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bank":      c.Param("bank"),
		"start":     start,
		"registers": words,
	})
}

func parseUint16Query(c *gin.Context, key string, fallback uint16) (uint16, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseUint(raw, 0, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

// Serve runs the admin surface until ctx is done.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:5173"}
	}
	return origins
}
