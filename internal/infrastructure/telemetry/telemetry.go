// Package telemetry wires OpenTelemetry traces, metrics and logs for the admin
// server and the migrate command. Everything goes to one OTLP/gRPC collector;
// with telemetry disabled the providers are no-ops.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xerocraft/backend/internal/infrastructure/config"
)

const shutdownTimeout = 10 * time.Second

// exporters are the sinks behind the three providers. logs is nil when log
// export is off.
type exporters struct {
	spans   sdktrace.SpanExporter
	metrics sdkmetric.Reader
	logs    sdklog.Exporter
}

// Provider owns the trace, meter and logger providers of one process.
type Provider struct {
	cfg    config.TelemetryConfig
	logger *zap.Logger

	tracer *sdktrace.TracerProvider
	meter  *sdkmetric.MeterProvider
	logs   *sdklog.LoggerProvider

	profiled trace.TracerProvider // tracer wrapped for span profiles
}

// Setup builds the providers, installs them as the otel globals and sets the
// W3C trace context and baggage propagators.
func Setup(ctx context.Context, cfg config.TelemetryConfig, version string, log *zap.Logger) (*Provider, error) {
	if !cfg.Enabled {
		log.Info("Telemetry disabled, using no-op providers")
		return &Provider{cfg: cfg, logger: log}, nil
	}
	exp, err := otlpExporters(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return setup(cfg, version, exp, log)
}

func otlpExporters(ctx context.Context, cfg config.TelemetryConfig) (exporters, error) {
	traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.CollectorEndpoint)}
	metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint)}
	logOpts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
		logOpts = append(logOpts, otlploggrpc.WithInsecure())
	}

	spans, err := otlptracegrpc.New(ctx, traceOpts...)
	if err != nil {
		return exporters{}, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}
	metrics, err := otlpmetricgrpc.New(ctx, metricOpts...)
	if err != nil {
		return exporters{}, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}
	exp := exporters{
		spans:   spans,
		metrics: sdkmetric.NewPeriodicReader(metrics, sdkmetric.WithInterval(cfg.MetricsInterval)),
	}
	if cfg.LogsEnabled {
		logs, err := otlploggrpc.New(ctx, logOpts...)
		if err != nil {
			return exporters{}, fmt.Errorf("failed to create OTLP logs exporter: %w", err)
		}
		exp.logs = logs
	}
	return exp, nil
}

func setup(cfg config.TelemetryConfig, version string, exp exporters, log *zap.Logger) (*Provider, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	p := &Provider{cfg: cfg, logger: log}
	// A sampled caller keeps its decision; new traces are sampled by ratio.
	p.tracer = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp.spans),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplingRatio))),
	)
	p.meter = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exp.metrics),
	)
	if exp.logs != nil {
		p.logs = sdklog.NewLoggerProvider(
			sdklog.WithResource(res),
			sdklog.WithProcessor(sdklog.NewBatchProcessor(exp.logs)),
		)
		global.SetLoggerProvider(p.logs)
	}

	otel.SetTracerProvider(p.tracer)
	otel.SetMeterProvider(p.meter)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Info("OpenTelemetry initialized",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.Float64("sampling_ratio", cfg.SamplingRatio),
		zap.String("service_name", cfg.ServiceName),
		zap.Bool("logs", p.logs != nil),
	)
	return p, nil
}

// Enabled reports whether spans are exported.
func (p *Provider) Enabled() bool {
	return p.tracer != nil
}

// TracerProvider returns the SDK provider, or a no-op one when disabled.
func (p *Provider) TracerProvider() trace.TracerProvider {
	switch {
	case p.profiled != nil:
		return p.profiled
	case p.tracer == nil:
		return tracenoop.NewTracerProvider()
	}
	return p.tracer
}

// MeterProvider returns the SDK provider, or a no-op one when disabled.
func (p *Provider) MeterProvider() metric.MeterProvider {
	if p.meter == nil {
		return metricnoop.NewMeterProvider()
	}
	return p.meter
}

// ZapCore mirrors log entries to the collector. Tee it with the console core;
// it is a no-op core while log export is off.
func (p *Provider) ZapCore() zapcore.Core {
	if p.logs == nil {
		return zapcore.NewNopCore()
	}
	return otelzap.NewCore(p.cfg.ServiceName, otelzap.WithLoggerProvider(p.logs))
}

// ForceFlush exports everything buffered so far.
func (p *Provider) ForceFlush(ctx context.Context) error {
	var result error
	if p.tracer != nil {
		if err := p.tracer.ForceFlush(ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if p.meter != nil {
		if err := p.meter.ForceFlush(ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if p.logs != nil {
		if err := p.logs.ForceFlush(ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}

// Shutdown flushes and stops every provider. All three are attempted even
// when one fails.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var result error
	if err := p.tracer.Shutdown(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("tracer provider: %w", err))
	}
	if err := p.meter.Shutdown(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("meter provider: %w", err))
	}
	if p.logs != nil {
		if err := p.logs.Shutdown(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("logger provider: %w", err))
		}
	}
	if result != nil {
		p.logger.Error("Telemetry shutdown incomplete", zap.Error(result))
		return result
	}
	p.logger.Info("Telemetry shut down")
	return nil
}
