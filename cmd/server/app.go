package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/xerocraft/backend/docs"
	"github.com/xerocraft/backend/internal/application/admin"
	"github.com/xerocraft/backend/internal/infrastructure/config"
	"github.com/xerocraft/backend/internal/infrastructure/logger"
	"github.com/xerocraft/backend/internal/infrastructure/migration"
	"github.com/xerocraft/backend/internal/infrastructure/persistence"
	"github.com/xerocraft/backend/internal/infrastructure/persistence/models"
	"github.com/xerocraft/backend/internal/infrastructure/telemetry"
	"github.com/xerocraft/backend/internal/interfaces/http/handler"
	"github.com/xerocraft/backend/internal/interfaces/http/middleware"
	"github.com/xerocraft/backend/internal/interfaces/http/router"
	"github.com/xerocraft/backend/internal/migrations"
)

const siteName = "Xerocraft"

// newApp builds the ledger executor, the admin site and the gin engine that
// serves them. Requests get server spans from tel when it exports them.
func newApp(ctx context.Context, cfg *config.Config, db *persistence.Database, tel *telemetry.Provider, log *zap.Logger) (*gin.Engine, error) {
	g, err := migrations.Graph()
	if err != nil {
		return nil, fmt.Errorf("build migration graph: %w", err)
	}
	exec, err := migration.NewExecutor(db.DB, g, log)
	if err != nil {
		return nil, err
	}

	if cfg.Ledger.AutoMigrate {
		if err := exec.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	} else if pending, err := exec.Pending(ctx); err != nil {
		return nil, err
	} else if pending > 0 {
		log.Warn("Unapplied migrations, run `migrate up`", zap.Int("pending", pending))
	}

	if err := telemetry.RegisterLedgerMetrics(tel.MeterProvider(), exec, log); err != nil {
		return nil, err
	}

	state, err := exec.State(ctx)
	if err != nil {
		return nil, err
	}
	// Models describe the latest schema; an older database only loses the
	// columns it does not have yet.
	if err := migration.CheckModels(state, models.All()...); err != nil {
		log.Warn("Models differ from the applied schema", zap.Error(err))
	}

	site, err := admin.NewSite(state)
	if err != nil {
		return nil, err
	}

	loc := cfg.App.Location()
	today := func() time.Time { return time.Now().In(loc) }
	if err := middleware.SetupValidator(today); err != nil {
		return nil, err
	}
	svc := admin.NewService(site, persistence.NewAdminRepository(db.DB), persistence.NewGormSaleRepository(db.DB), today, log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	tracing := gin.HandlersChain{middleware.TraceContext()}
	if tel.Enabled() {
		tracing = middleware.Tracing(cfg.Telemetry.ServiceName, tel.TracerProvider())
	}
	engine.Use(logger.Recovery(log), middleware.RequestID())
	engine.Use(tracing...)
	engine.Use(
		logger.GinMiddleware(log),
		middleware.Secure(),
		middleware.CORSWithConfig(middleware.CORSConfigFromHTTP(cfg.HTTP)),
		middleware.BodyLimit(middleware.DefaultBodyLimit),
		middleware.Timeout(cfg.HTTP.WriteTimeout),
	)

	r := router.NewRouter(engine)
	r.Register(handler.NewSystemHandler(cfg.App.Name, version, db, exec)).
		Register(handler.NewAdminHandler(svc, siteName))
	r.Setup()

	if cfg.Swagger.Enabled {
		engine.GET("/swagger/*any", middleware.SwaggerProtection(cfg.Swagger.AllowedIPs), ginSwagger.WrapHandler(swaggerFiles.Handler))
		log.Info("API documentation served at /swagger/index.html", zap.Strings("allowed_ips", cfg.Swagger.AllowedIPs))
	}

	log.Info("Routes registered", zap.Int("named", len(r.URLs().Names())), zap.Int("models", len(site.Models())))
	return engine, nil
}
