// Package telemetry installs the trace provider and serves Prometheus
// metrics for a process.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// ErrUnknownExporter is returned for an unsupported trace exporter.
var ErrUnknownExporter = errors.New("unknown exporter")

// Config selects the exporters.
type Config struct {
	ServiceName string `yaml:"service_name" validate:"required"`
	// TraceExporter is "none", "stdout" (pretty JSON on stderr) or "file".
	TraceExporter string `yaml:"trace_exporter" validate:"oneof=none stdout file"`
	// TraceFile receives spans when TraceExporter is "file".
	TraceFile string `yaml:"trace_file" validate:"required_if=TraceExporter file"`
	// MetricsAddr serves /metrics when non-empty, e.g. ":9464".
	MetricsAddr string `yaml:"metrics_addr" validate:"omitempty,hostname_port"`
}

// DefaultConfig disables both exporters.
func DefaultConfig() Config {
	return Config{ServiceName: "seedsynth", TraceExporter: "none"}
}

// Telemetry owns the installed providers. Shutdown releases them.
type Telemetry struct {
	provider *sdktrace.TracerProvider
	server   *http.Server
	addr     string
	closers  []io.Closer
	logger   *zap.Logger
}

// Init installs a global tracer provider and starts the metrics endpoint
// as configured. The returned value must be shut down.
func Init(ctx context.Context, cfg Config, version string, logger *zap.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Telemetry{logger: logger}

	if cfg.TraceExporter != "" && cfg.TraceExporter != "none" {
		var w io.Writer = os.Stderr
		if cfg.TraceExporter == "file" {
			f, err := os.Create(cfg.TraceFile)
			if err != nil {
				return nil, fmt.Errorf("create trace file: %w", err)
			}
			t.closers = append(t.closers, f)
			w = f
		} else if cfg.TraceExporter != "stdout" {
			return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.TraceExporter)
		}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
		if err != nil {
			t.close()
			return nil, fmt.Errorf("create exporter: %w", err)
		}
		res := resource.NewWithAttributes("",
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", version),
		)
		t.provider = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
		)
		otel.SetTracerProvider(t.provider)
	}

	if cfg.MetricsAddr != "" {
		if err := t.serveMetrics(cfg.MetricsAddr); err != nil {
			_ = t.Shutdown(ctx)
			return nil, err
		}
	}
	return t, nil
}

func (t *Telemetry) serveMetrics(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	t.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	t.addr = ln.Addr().String()
	t.logger.Info("serving metrics", zap.String("addr", t.addr))
	go func() {
		if err := t.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	return nil
}

// MetricsAddr returns the address the metrics endpoint listens on, or ""
// when it is disabled.
func (t *Telemetry) MetricsAddr() string { return t.addr }

// Shutdown flushes spans and stops the metrics endpoint.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.provider != nil {
		if err := t.provider.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if t.server != nil {
		if err := t.server.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	errs = append(errs, t.close())
	return errors.Join(errs...)
}

func (t *Telemetry) close() error {
	var errs []error
	for _, c := range t.closers {
		errs = append(errs, c.Close())
	}
	t.closers = nil
	return errors.Join(errs...)
}
