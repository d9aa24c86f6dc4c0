package telemetry

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTELHook adds trace and span IDs to every log entry carrying a context.
type OTELHook struct{}

func (h OTELHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return
	}

	e.Str("trace_id", span.SpanContext().TraceID().String())
	e.Str("span_id", span.SpanContext().SpanID().String())

	if level == zerolog.ErrorLevel {
		span.SetStatus(codes.Error, msg)
	}
}

// Logger wraps zerolog with OTEL trace correlation.
type Logger struct {
	zerolog.Logger
}

// NewLogger creates the service logger.
func NewLogger(service string) *Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	logger := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", service).
		Logger().
		Hook(OTELHook{})

	return &Logger{Logger: logger}
}

// WithContext returns a logger bound to ctx for trace propagation.
func (l *Logger) WithContext(ctx context.Context) *zerolog.Logger {
	logger := l.Logger.With().Ctx(ctx).Logger()
	return &logger
}

// LogScanStart logs the beginning of a repository scan.
func (l *Logger) LogScanStart(ctx context.Context, repositoryID, workdir string) {
	l.WithContext(ctx).Info().
		Str("repository_id", repositoryID).
		Str("workdir", workdir).
		Str("operation", "scan").
		Msg("starting scan")
}

// LogScanComplete logs one finished scan with its change counts.
func (l *Logger) LogScanComplete(ctx context.Context, repositoryID string, created, modified, deleted int, durationMs float64) {
	l.WithContext(ctx).Info().
		Str("repository_id", repositoryID).
		Int("created", created).
		Int("modified", modified).
		Int("deleted", deleted).
		Float64("duration_ms", durationMs).
		Str("operation", "scan").
		Msg("scan completed")
}

// LogStorageError logs a failed storage operation.
func (l *Logger) LogStorageError(ctx context.Context, operation string, err error) {
	l.WithContext(ctx).Error().
		Err(err).
		Str("operation", operation).
		Msg("storage operation failed")
}
