package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"wbbcli/internal/config"
	"wbbcli/pkg/contracts/domain"
)

const (
	ServiceVersion = config.AppVersion
	MeterName      = "wbbcli"
)

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	MetricExporter string // "prometheus", "none"
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
}

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// DefaultOTelConfig returns a default OpenTelemetry configuration
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &OTelConfig{
		ServiceName:    config.AppName,
		ServiceVersion: ServiceVersion,
		Environment:    env,
		TraceExporter:  "none",
		MetricExporter: "prometheus",
		EnableMetrics:  true,
		EnableTracing:  true,
		SampleRatio:    1.0,
	}
}

// OTelConfigFrom maps the telemetry section of the application config
func OTelConfigFrom(cfg config.TelemetryConfig) *OTelConfig {
	oc := DefaultOTelConfig()
	if cfg.ServiceName != "" {
		oc.ServiceName = cfg.ServiceName
	}
	oc.EnableTracing = cfg.Enabled
	oc.EnableMetrics = cfg.Enabled && cfg.MetricsEnabled
	if cfg.TraceToStdout {
		oc.TraceExporter = "stdout"
	}
	return oc
}

// InitializeOTel initializes the tracer and meter providers and installs them globally
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}
	if logger == nil {
		logger = GetLogger()
	}

	ctx := context.Background()

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	)

	providers := &OTelProviders{Logger: logger}

	if cfg.EnableTracing {
		if err := initializeTracing(cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if cfg.EnableMetrics {
		if err := initializeMetrics(cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "OpenTelemetry initialization complete",
		slog.String("service", cfg.ServiceName),
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	return providers, nil
}

func initializeTracing(cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	}

	switch cfg.TraceExporter {
	case "stdout":
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	case "none", "":
		// spans are still created so trace ids reach the logs
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	tp := sdktrace.NewTracerProvider(opts...)
	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetTracerProvider(tp)
	return nil
}

func initializeMetrics(cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.MetricExporter {
	case "prometheus":
		// private registry: InitializeOTel may run more than once per process
		registry := promclient.NewRegistry()
		exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
		if err != nil {
			return fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
		otel.SetMeterProvider(mp)
	case "none", "":
		return nil
	default:
		return fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}
	return nil
}

// BusinessMetrics holds all application-specific metrics
type BusinessMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Resampling metrics
	RunsTotal           metric.Int64Counter
	ActiveRuns          metric.Int64UpDownCounter
	FilesTotal          metric.Int64Counter
	FileDuration        metric.Float64Histogram
	EmptyWindowsTotal   metric.Int64Counter
	SkippedSecondsTotal metric.Float64Counter

	// WebSocket metrics
	WSConnections  metric.Int64UpDownCounter
	WSMessagesSent metric.Int64Counter
	WSDropped      metric.Int64Counter
}

// CreateBusinessMetrics creates application-specific metrics
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	m := &BusinessMetrics{}
	var err error

	if m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	); err != nil {
		return nil, err
	}
	if m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.HTTPActiveRequests, err = meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	); err != nil {
		return nil, err
	}

	if m.RunsTotal, err = meter.Int64Counter(
		"resample_runs_total",
		metric.WithDescription("Total number of batch resampling runs"),
	); err != nil {
		return nil, err
	}
	if m.ActiveRuns, err = meter.Int64UpDownCounter(
		"resample_active_runs",
		metric.WithDescription("Number of batch runs in progress"),
	); err != nil {
		return nil, err
	}
	if m.FilesTotal, err = meter.Int64Counter(
		"resample_files_total",
		metric.WithDescription("Recordings handled, by outcome status"),
	); err != nil {
		return nil, err
	}
	if m.FileDuration, err = meter.Float64Histogram(
		"resample_file_duration_seconds",
		metric.WithDescription("Time spent on one recording"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.EmptyWindowsTotal, err = meter.Int64Counter(
		"resample_empty_windows_total",
		metric.WithDescription("Grid points dropped because their window held no samples"),
	); err != nil {
		return nil, err
	}
	if m.SkippedSecondsTotal, err = meter.Float64Counter(
		"resample_skipped_seconds_total",
		metric.WithDescription("Signal time lost to empty windows"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.WSConnections, err = meter.Int64UpDownCounter(
		"ws_active_connections",
		metric.WithDescription("Number of connected WebSocket clients"),
	); err != nil {
		return nil, err
	}
	if m.WSMessagesSent, err = meter.Int64Counter(
		"ws_messages_sent_total",
		metric.WithDescription("Events queued to WebSocket clients"),
	); err != nil {
		return nil, err
	}
	if m.WSDropped, err = meter.Int64Counter(
		"ws_clients_dropped_total",
		metric.WithDescription("Clients disconnected because their send buffer was full"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordRun counts a started run; the returned func marks it finished
func (m *BusinessMetrics) RecordRun(ctx context.Context) func() {
	if m == nil {
		return func() {}
	}
	m.RunsTotal.Add(ctx, 1)
	m.ActiveRuns.Add(ctx, 1)
	return func() { m.ActiveRuns.Add(ctx, -1) }
}

// RecordOutcome records one per-file outcome
func (m *BusinessMetrics) RecordOutcome(ctx context.Context, o domain.Outcome, duration time.Duration) {
	if m == nil {
		return
	}
	status := metric.WithAttributes(attribute.String("status", string(o.Status)))
	m.FilesTotal.Add(ctx, 1, status)
	m.FileDuration.Record(ctx, duration.Seconds(), status)
	if o.EmptyWindows > 0 {
		m.EmptyWindowsTotal.Add(ctx, int64(o.EmptyWindows))
	}
	if o.SkippedTime > 0 {
		m.SkippedSecondsTotal.Add(ctx, o.SkippedTime)
	}
}

// StartHTTPRequest counts an in-flight request; the returned func records
// its completion.
func (m *BusinessMetrics) StartHTTPRequest(ctx context.Context) func(method, route string, status int, duration time.Duration) {
	if m == nil {
		return func(string, string, int, time.Duration) {}
	}
	m.HTTPActiveRequests.Add(ctx, 1)
	return func(method, route string, status int, duration time.Duration) {
		m.HTTPActiveRequests.Add(ctx, -1)
		attrs := metric.WithAttributes(
			attribute.String("method", method),
			attribute.String("route", route),
			attribute.Int("status_code", status),
		)
		m.HTTPRequestsTotal.Add(ctx, 1, attrs)
		m.HTTPRequestDuration.Record(ctx, duration.Seconds(), attrs)
	}
}

// RecordWSConnection adjusts the connected client gauge by delta
func (m *BusinessMetrics) RecordWSConnection(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.WSConnections.Add(ctx, delta)
}

// RecordWSBroadcast records one broadcast fan-out
func (m *BusinessMetrics) RecordWSBroadcast(ctx context.Context, delivered, dropped int) {
	if m == nil {
		return
	}
	m.WSMessagesSent.Add(ctx, int64(delivered))
	if dropped > 0 {
		m.WSDropped.Add(ctx, int64(dropped))
	}
}

// Shutdown gracefully shuts down OpenTelemetry providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}
	return nil
}

func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// TraceIDFromContext extracts trace ID from context for logging correlation
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
