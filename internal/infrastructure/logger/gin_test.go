package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func httpLog(t *testing.T, recorded *observer.ObservedLogs) observer.LoggedEntry {
	t.Helper()
	entries := recorded.FilterMessage("HTTP Request").All()
	require.Len(t, entries, 1)
	return entries[0]
}

func serve(router *gin.Engine, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestGinMiddleware_LevelFollowsStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		status int
		level  zapcore.Level
	}{
		{http.StatusOK, zapcore.InfoLevel},
		{http.StatusNotFound, zapcore.WarnLevel},
		{http.StatusInternalServerError, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			l, recorded := observed()
			router := gin.New()
			router.Use(GinMiddleware(l))
			router.GET("/admin/books/sale/", func(c *gin.Context) { c.Status(tt.status) })

			w := serve(router, "/admin/books/sale/")
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.level, httpLog(t, recorded).Level)
		})
	}
}

func TestGinMiddleware_Fields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l, recorded := observed()

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(string(RequestIDKey), "req-123")
		c.Next()
	})
	router.Use(GinMiddleware(l))
	router.GET("/admin/:app/:model/", func(c *gin.Context) {
		assert.Equal(t, "req-123", GetRequestID(c.Request.Context()))
		GetGinLogger(c).Info("listing")
		c.Status(http.StatusOK)
	})

	serve(router, "/admin/books/sale/?o=-1")

	fields := httpLog(t, recorded).ContextMap()
	assert.Equal(t, "req-123", fields["request_id"])
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/admin/books/sale/", fields["path"])
	assert.Equal(t, "/admin/:app/:model/", fields["route"])
	assert.Equal(t, "o=-1", fields["query"])
	assert.Contains(t, fields, "latency")
	assert.Contains(t, fields, "client_ip")

	handlerLogs := recorded.FilterMessage("listing").All()
	require.Len(t, handlerLogs, 1)
	assert.Equal(t, "req-123", handlerLogs[0].ContextMap()["request_id"])
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l, recorded := observed()

	router := gin.New()
	router.Use(Recovery(l))
	router.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := serve(router, "/panic")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	entries := recorded.FilterMessage("Panic recovered").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "boom", entries[0].ContextMap()["error"])
}

func TestGetGinLogger_NotSet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.NotNil(t, GetGinLogger(c))

	c.Set(ginLoggerKey, "not a logger")
	assert.False(t, GetGinLogger(c).Core().Enabled(zap.ErrorLevel))
}
