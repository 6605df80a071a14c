package main

import (
	"context"
	"net/http"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xerocraft/backend/internal/infrastructure/config"
	"github.com/xerocraft/backend/internal/infrastructure/persistence"
	"github.com/xerocraft/backend/internal/infrastructure/telemetry"
	"github.com/xerocraft/backend/tests/testutil"
)

func testConfig(t *testing.T, autoMigrate bool) *config.Config {
	t.Helper()
	return &config.Config{
		App: config.AppConfig{Name: "xerocraft-test", Env: "test", Port: "0", TimeZone: "America/Chicago"},
		Database: config.DatabaseConfig{
			Driver:       config.DriverSQLite,
			Path:         filepath.Join(t.TempDir(), "xerocraft.db"),
			MaxOpenConns: 1,
			MaxIdleConns: 1,
		},
		HTTP: config.HTTPConfig{
			WriteTimeout:     5 * time.Second,
			CORSAllowOrigins: []string{"https://xerocraft.org"},
			CORSAllowMethods: []string{"GET", "POST", "OPTIONS"},
			CORSAllowHeaders: []string{"Content-Type"},
		},
		Ledger: config.LedgerConfig{AutoMigrate: autoMigrate},
	}
}

func openDB(t *testing.T, cfg *config.Config) *persistence.Database {
	t.Helper()
	db, err := persistence.NewDatabase(&cfg.Database)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func disabledTelemetry(t *testing.T) *telemetry.Provider {
	t.Helper()
	tel, err := telemetry.Setup(context.Background(), config.TelemetryConfig{}, version, zap.NewNop())
	require.NoError(t, err)
	return tel
}

func TestNewApp_AutoMigrate(t *testing.T) {
	cfg := testConfig(t, true)
	engine, err := newApp(context.Background(), cfg, openDB(t, cfg), disabledTelemetry(t), zap.NewNop())
	require.NoError(t, err)

	w := testutil.Do(t, engine, testutil.Request{Path: "/health", Headers: map[string]string{"X-Request-ID": "health-1"}})
	data := testutil.AssertSuccessResponse(t, w).(map[string]any)
	assert.Equal(t, "ok", data["status"])
	assert.Equal(t, float64(0), data["pending_migrations"])
	assert.Equal(t, "health-1", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = testutil.Do(t, engine, testutil.Request{Path: "/admin/"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `href="/admin/books/sale/"`)

	w = testutil.Do(t, engine, testutil.Request{
		Method: http.MethodPost,
		Path:   "/admin/books/sale/add/",
		Form: url.Values{
			"sale_date":              {time.Now().In(cfg.App.Location()).Format("2006-01-02")},
			"payer_name":             {"Ada"},
			"payment_method":         {"$"},
			"total_paid_by_customer": {"10.00"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Regexp(t, `^/admin/books/sale/\d+/change/$`, w.Header().Get("Location"))
}

func TestNewApp_PendingMigrationsDegradeHealth(t *testing.T) {
	cfg := testConfig(t, false)
	core, recorded := observer.New(zapcore.WarnLevel)

	engine, err := newApp(context.Background(), cfg, openDB(t, cfg), disabledTelemetry(t), zap.New(core))
	require.NoError(t, err)
	assert.Len(t, recorded.FilterMessage("Unapplied migrations, run `migrate up`").All(), 1)

	w := testutil.Do(t, engine, testutil.Request{Path: "/health"})
	data := testutil.AssertSuccessResponse(t, w).(map[string]any)
	assert.Equal(t, "degraded", data["status"])
	assert.Greater(t, data["pending_migrations"], float64(0))

	w = testutil.Do(t, engine, testutil.Request{Path: "/admin/"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = testutil.Do(t, engine, testutil.Request{Path: "/admin/books/sale/"})
	testutil.AssertErrorResponse(t, w, "ERR_NOT_FOUND")
}

func TestNewApp_CORS(t *testing.T) {
	cfg := testConfig(t, true)
	engine, err := newApp(context.Background(), cfg, openDB(t, cfg), disabledTelemetry(t), zap.NewNop())
	require.NoError(t, err)

	w := testutil.Do(t, engine, testutil.Request{
		Method:  http.MethodOptions,
		Path:    "/admin/",
		Headers: map[string]string{"Origin": "https://xerocraft.org"},
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://xerocraft.org", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewApp_Swagger(t *testing.T) {
	t.Run("not routed unless enabled", func(t *testing.T) {
		cfg := testConfig(t, true)
		engine, err := newApp(context.Background(), cfg, openDB(t, cfg), disabledTelemetry(t), zap.NewNop())
		require.NoError(t, err)

		w := testutil.Do(t, engine, testutil.Request{Path: "/swagger/doc.json"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("serves the API description to allowed clients", func(t *testing.T) {
		cfg := testConfig(t, true)
		cfg.Swagger = config.SwaggerConfig{Enabled: true, AllowedIPs: []string{"192.0.2.0/24"}}
		engine, err := newApp(context.Background(), cfg, openDB(t, cfg), disabledTelemetry(t), zap.NewNop())
		require.NoError(t, err)

		w := testutil.Do(t, engine, testutil.Request{Path: "/swagger/doc.json"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"/admin/{app}/{model}/"`)
		assert.Contains(t, w.Body.String(), "Xerocraft Admin API")
	})

	t.Run("rejects other clients", func(t *testing.T) {
		cfg := testConfig(t, true)
		cfg.Swagger = config.SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.1"}}
		engine, err := newApp(context.Background(), cfg, openDB(t, cfg), disabledTelemetry(t), zap.NewNop())
		require.NoError(t, err)

		w := testutil.Do(t, engine, testutil.Request{Path: "/swagger/doc.json"})
		testutil.AssertErrorResponse(t, w, "ERR_FORBIDDEN")
	})
}
