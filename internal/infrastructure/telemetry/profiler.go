package telemetry

import (
	"fmt"
	"os"
	"sync"

	otelpyroscope "github.com/grafana/otel-profiling-go"
	"github.com/grafana/pyroscope-go"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/xerocraft/backend/internal/infrastructure/config"
)

// Profiler pushes continuous profiles to Pyroscope.
type Profiler struct {
	cfg      config.ProfilingConfig
	profiler *pyroscope.Profiler
	logger   *zap.Logger

	mu      sync.Mutex
	stopped bool
}

// StartProfiler starts profiling under the application name app. A disabled
// config gives a profiler whose Stop does nothing.
func StartProfiler(cfg config.ProfilingConfig, app, version string, log *zap.Logger) (*Profiler, error) {
	p := &Profiler{cfg: cfg, logger: log}
	if !cfg.Enabled {
		log.Debug("Continuous profiling disabled")
		return p, nil
	}

	tags := map[string]string{"version": version}
	if host := os.Getenv("HOSTNAME"); host != "" {
		tags["hostname"] = host
	}
	pcfg := pyroscope.Config{
		ApplicationName: app,
		ServerAddress:   cfg.ServerAddress,
		Logger:          pyroscopeLogger{log.Named("pyroscope").Sugar()},
		Tags:            tags,
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	}
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPassword != "" {
		pcfg.BasicAuthUser = cfg.BasicAuthUser
		pcfg.BasicAuthPassword = cfg.BasicAuthPassword
	}

	profiler, err := pyroscope.Start(pcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to start Pyroscope profiler: %w", err)
	}
	p.profiler = profiler
	log.Info("Pyroscope profiler started", zap.String("server_address", cfg.ServerAddress))
	return p, nil
}

// Running reports whether profiles are being pushed.
func (p *Profiler) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.profiler != nil && !p.stopped
}

// SpanProfiles labels CPU samples with the active span id so a trace links
// to its profile. It acts only while the profiler runs with span profiles on
// and tel exports spans; the wrapped provider also becomes the otel global.
func (p *Profiler) SpanProfiles(tel *Provider) {
	if !p.cfg.SpanProfiles || !p.Running() || !tel.Enabled() {
		return
	}
	tel.profiled = otelpyroscope.NewTracerProvider(tel.tracer)
	otel.SetTracerProvider(tel.profiled)
	p.logger.Info("Span profiles enabled")
}

// Stop flushes pending profiles. Calling it again is a no-op.
func (p *Profiler) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped || p.profiler == nil {
		p.stopped = true
		return nil
	}
	p.stopped = true
	if err := p.profiler.Stop(); err != nil {
		return fmt.Errorf("failed to stop profiler: %w", err)
	}
	p.logger.Info("Pyroscope profiler stopped")
	return nil
}

type pyroscopeLogger struct {
	*zap.SugaredLogger
}
