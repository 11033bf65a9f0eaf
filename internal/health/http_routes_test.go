package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newHealthRouter(readiness *Readiness, checkers ...Checker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterHTTPRoutes(r, NewAggregator(0, checkers...), readiness)
	return r
}

func TestHealthRoutes_Live(t *testing.T) {
	r := newHealthRouter(nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"alive":true`)
}

func TestHealthRoutes_ReadyGate(t *testing.T) {
	readiness := New()
	r := newHealthRouter(readiness, &mockChecker{"db", StatusHealthy})

	// 启动门闩未齐
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "starting")

	// 置位后就绪
	readiness.SetDBReady(true)
	readiness.SetIngestReady(true)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthRoutes_ReadyUnhealthyChecker(t *testing.T) {
	r := newHealthRouter(nil, &mockChecker{"db", StatusUnhealthy})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthRoutes_Report(t *testing.T) {
	t.Run("降级仍返回200", func(t *testing.T) {
		r := newHealthRouter(nil,
			&mockChecker{"db", StatusHealthy},
			&mockChecker{"receivers", StatusDegraded},
		)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		var report HealthReport
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
		assert.Equal(t, StatusDegraded, report.Status)
		assert.Len(t, report.Checks, 2)
	})

	t.Run("不健康返回503", func(t *testing.T) {
		r := newHealthRouter(nil, &mockChecker{"db", StatusUnhealthy})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		var report HealthReport
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
		assert.Equal(t, StatusUnhealthy, report.Status)
	})
}
