package handler

import (
	"context"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xerocraft/backend/internal/infrastructure/logger"
	"github.com/xerocraft/backend/internal/infrastructure/persistence"
	"github.com/xerocraft/backend/internal/interfaces/http/dto"
	"github.com/xerocraft/backend/internal/interfaces/http/router"
)

// Database is the part of the connection the system routes look at.
type Database interface {
	Ping() error
	Stats() (persistence.ConnectionStats, error)
}

// PendingCounter reports how many ledger migrations are not applied yet.
type PendingCounter interface {
	Pending(ctx context.Context) (int, error)
}

// SystemHandler serves health and build information
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	db        Database
	ledger    PendingCounter
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(name, version string, db Database, ledger PendingCounter) *SystemHandler {
	return &SystemHandler{
		name:      name,
		version:   version,
		db:        db,
		ledger:    ledger,
		startTime: time.Now(),
	}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup, urls *router.URLs) {
	g := router.NewDomainGroup("system", "")
	g.GET("/health", h.Health).As("health")
	g.GET("/system/info", h.GetSystemInfo).As("system:info")
	g.GET("/system/ping", h.Ping).As("system:ping")
	g.RegisterRoutes(rg, urls)
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string                       `json:"name"`
	Version   string                       `json:"version"`
	GoVersion string                       `json:"go_version"`
	Uptime    string                       `json:"uptime"`
	Database  *persistence.ConnectionStats `json:"database,omitempty"`
}

// GetSystemInfo returns the service name, version, uptime and connection
// pool statistics
//
//	@Summary		System information
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	dto.Response{data=SystemInfoResponse}
//	@Router			/system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	resp := SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}
	if stats, err := h.db.Stats(); err != nil {
		logger.GetGinLogger(c).Warn("Connection pool statistics unavailable", zap.Error(err))
	} else {
		resp.Database = &stats
	}
	h.Success(c, resp)
}

// PingResponse represents the ping response
type PingResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Ping answers without touching the database
//
//	@Summary		Liveness check
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	dto.Response{data=PingResponse}
//	@Router			/system/ping [get]
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, PingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// HealthResponse reports the database and ledger
type HealthResponse struct {
	Status            string `json:"status"`
	Database          string `json:"database"`
	PendingMigrations int    `json:"pending_migrations"`
}

// Health answers 200 while the database is reachable. Unapplied migrations
// degrade the status but do not fail the check.
//
//	@Summary		Health check
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	dto.Response{data=HealthResponse}
//	@Failure		503	{object}	dto.Response{error=dto.ErrorInfo}
//	@Router			/health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	if err := h.db.Ping(); err != nil {
		logger.GetGinLogger(c).Warn("Health check failed", zap.Error(err))
		h.ErrorWithCode(c, dto.ErrCodeUnavailable, "Database is unreachable")
		return
	}

	pending, err := h.ledger.Pending(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := HealthResponse{Status: "ok", Database: "up", PendingMigrations: pending}
	if pending > 0 {
		resp.Status = "degraded"
	}
	h.Success(c, resp)
}
