package core

import (
	"context"
	"time"
)

// Logger is the structured logging surface the service writes to. *slog.Logger
// satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Clock supplies timestamps for reports and audit entries.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// AuditStatus is the outcome recorded for an operation.
type AuditStatus string

const (
	AuditStatusSuccess   AuditStatus = "success"
	AuditStatusError     AuditStatus = "error"
	AuditStatusForbidden AuditStatus = "forbidden"
)

// AuditEntry is one attributed operation.
type AuditEntry struct {
	SessionID string
	Username  string
	Role      string
	Operation string
	EntityID  int64
	Status    AuditStatus
	Error     string
	Duration  time.Duration
	At        time.Time
}

// AuditRecorder receives an entry for every login attempt and session operation.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

// LoggerAuditRecorder writes audit entries as structured log lines.
type LoggerAuditRecorder struct {
	Logger Logger
}

// Record implements AuditRecorder.
func (r LoggerAuditRecorder) Record(_ context.Context, e AuditEntry) {
	if r.Logger == nil {
		return
	}
	args := []any{
		"session", e.SessionID,
		"user", e.Username,
		"role", e.Role,
		"operation", e.Operation,
		"status", string(e.Status),
		"duration", e.Duration,
	}
	if e.EntityID != 0 {
		args = append(args, "entity_id", e.EntityID)
	}
	switch e.Status {
	case AuditStatusSuccess:
		r.Logger.Info("audit", args...)
	default:
		r.Logger.Warn("audit", append(args, "error", e.Error)...)
	}
}

// MetricsRecorder observes operation outcomes and latency.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts a span per operation.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is ended with the operation's error, if any.
type TraceSpan interface {
	End(err error)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}
