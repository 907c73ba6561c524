// Package logger configures the application's logging and observability.
//
// It builds the zerolog root logger (console output in local env, JSON
// elsewhere) and, when a New Relic license key is configured, initializes
// the agent and forwards application logs through it.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/checkbill/receipts-api/internal/config"
	"github.com/newrelic/go-agent/v3/integrations/logcontext-v2/zerologWriter"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"
)

// LoggerService owns the optional New Relic application instance.
// When New Relic is disabled the service still exists but GetApplication
// returns nil; all call sites are nil-safe.
type LoggerService struct {
	nrApp *newrelic.Application
}

// GetApplication returns the New Relic application, or nil when disabled.
func (s *LoggerService) GetApplication() *newrelic.Application {
	if s == nil {
		return nil
	}
	return s.nrApp
}

// Shutdown flushes pending telemetry. Safe to call when New Relic is disabled.
func (s *LoggerService) Shutdown(timeout time.Duration) {
	if s == nil || s.nrApp == nil {
		return
	}
	s.nrApp.Shutdown(timeout)
}

// New builds the root logger and the logger service.
//
// Local env gets a human-friendly console writer. Other environments log
// JSON to stdout; when New Relic log forwarding is enabled the writer is
// wrapped so log lines are decorated with linking metadata and forwarded.
func New(cfg *config.Config) (*zerolog.Logger, *LoggerService, error) {
	level, err := zerolog.ParseLevel(cfg.Observability.GetLogLevel())
	if err != nil {
		return nil, nil, fmt.Errorf("parsing log level: %w", err)
	}

	service := &LoggerService{}

	if key := cfg.Observability.NewRelic.LicenseKey; key != "" {
		app, err := newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.Observability.ServiceName),
			newrelic.ConfigLicense(key),
			newrelic.ConfigAppLogForwardingEnabled(cfg.Observability.NewRelic.AppLogForwardingEnabled),
			newrelic.ConfigDistributedTracerEnabled(cfg.Observability.NewRelic.DistributedTracingEnabled),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("initializing new relic: %w", err)
		}
		service.nrApp = app
	}

	var out io.Writer = os.Stdout
	switch {
	case cfg.Primary.Env == "local" || cfg.Observability.Logging.Format == "console":
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	case service.nrApp != nil && cfg.Observability.NewRelic.AppLogForwardingEnabled:
		w := zerologWriter.New(os.Stdout, service.nrApp)
		out = &w
	}

	logger := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", cfg.Observability.ServiceName).
		Logger()

	return &logger, service, nil
}

// WithTraceContext returns a child logger carrying the transaction's trace
// and span IDs so log lines can be correlated with distributed traces.
func WithTraceContext(logger zerolog.Logger, txn *newrelic.Transaction) zerolog.Logger {
	if txn == nil {
		return logger
	}

	md := txn.GetTraceMetadata()
	builder := logger.With()
	if md.TraceID != "" {
		builder = builder.Str("trace.id", md.TraceID)
	}
	if md.SpanID != "" {
		builder = builder.Str("span.id", md.SpanID)
	}
	return builder.Logger()
}

// NewPgxLogger builds the logger used for SQL query logging in local env.
func NewPgxLogger(level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Str("component", "pgx").
		Logger()
}

// GetPgxTraceLogLevel maps the application log level onto pgx tracelog
// levels (tracelog.LogLevelTrace..LogLevelError as ints).
func GetPgxTraceLogLevel(level zerolog.Level) int {
	// tracelog levels: 6=trace 5=debug 4=info 3=warn 2=error 1=none.
	switch level {
	case zerolog.TraceLevel:
		return 6
	case zerolog.DebugLevel:
		return 5
	case zerolog.InfoLevel:
		return 4
	case zerolog.WarnLevel:
		return 3
	default:
		return 2
	}
}
