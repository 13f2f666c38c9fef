package observability

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mfeldt/regbank/internal/testutil/testlog"
)

func newTestRouter(logger zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AdminMiddleware("regbank-a", logger))
	r.GET("/registers/:bank", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"bank": c.Param("bank")})
	})
	return r
}

func TestAdminMiddlewareTagsNodeAndRouteTemplate(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	r := newTestRouter(zerolog.New(&buf))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/registers/holding", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
	line := buf.String()
	if !strings.Contains(line, `"node":"regbank-a"`) {
		t.Fatalf("node id missing from log: %s", line)
	}
	if !strings.Contains(line, `"path":"/registers/:bank"`) {
		t.Fatalf("expected route template as path label: %s", line)
	}
	if !strings.Contains(line, `"level":"info"`) {
		t.Fatalf("expected info level for 200: %s", line)
	}
}

func TestAdminMiddlewareWarnsOnClientErrors(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	r := newTestRouter(zerolog.New(&buf))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/no/such/route", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status: %d", w.Code)
	}
	line := buf.String()
	if !strings.Contains(line, `"level":"warn"`) {
		t.Fatalf("expected warn level for 404: %s", line)
	}
	if !strings.Contains(line, `"path":"/no/such/route"`) {
		t.Fatalf("expected raw path for unrouted request: %s", line)
	}
}
