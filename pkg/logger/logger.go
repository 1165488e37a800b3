package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const redactedValue = "[redacted]"

// sensitiveFields never reach the output in clear text. Email-like fields keep their
// first letter and domain so support can still correlate reports.
var sensitiveFields = map[string]bool{
	"password":       true,
	"new_password":   true,
	"access_token":   true,
	"refresh_token":  true,
	"token":          true,
	"authorization":  true,
	"email":          true,
	"customer_email": true,
	"identifier":     true,
}

// Options configures the structured logger.
type Options struct {
	ServiceName string
	// Env and Version are stamped on every entry when set.
	Env     string
	Version string
	Level   zerolog.Level
	// WarnStack adds a stack trace to warnings as well as errors.
	WarnStack bool
	// Format is "json" (default) or "console".
	Format string
	Output io.Writer
}

// Logger is a context-carrying zerolog wrapper. Fields attached with the With helpers
// travel with the request context into every later entry.
type Logger struct {
	base      *zerolog.Logger
	warnStack bool
}

type ctxKey struct{}

func New(opts Options) *Logger {
	if opts.Level == zerolog.NoLevel {
		opts.Level = zerolog.InfoLevel
	}

	output := opts.Output
	if output == nil {
		output = os.Stdout
	}
	if strings.EqualFold(strings.TrimSpace(opts.Format), "console") {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: "15:04:05"}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	builder := zerolog.New(output).With().Timestamp().Str("service", opts.ServiceName)
	if opts.Env != "" {
		builder = builder.Str("env", opts.Env)
	}
	if opts.Version != "" {
		builder = builder.Str("version", opts.Version)
	}
	base := builder.Logger().Level(opts.Level)

	return &Logger{base: &base, warnStack: opts.WarnStack}
}

// ParseLevel maps a config string to a level, defaulting to info.
func ParseLevel(value string) zerolog.Level {
	levelString := strings.ToLower(strings.TrimSpace(value))
	if levelString == "" {
		return zerolog.InfoLevel
	}
	if lvl, err := zerolog.ParseLevel(levelString); err == nil {
		return lvl
	}
	return zerolog.InfoLevel
}

func (l *Logger) fromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return l.base
	}
	if entry, ok := ctx.Value(ctxKey{}).(*zerolog.Logger); ok {
		return entry
	}
	return l.base
}

func (l *Logger) attach(ctx context.Context, entry zerolog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey{}, &entry)
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	entry := l.fromContext(ctx)
	return l.attach(ctx, entry.With().Interface(key, redact(key, value)).Logger())
}

func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	builder := l.fromContext(ctx).With()
	for k, v := range fields {
		builder = builder.Interface(k, redact(k, v))
	}
	return l.attach(ctx, builder.Logger())
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.WithField(ctx, "request_id", requestID)
}

func (l *Logger) WithUserID(ctx context.Context, userID string) context.Context {
	return l.WithField(ctx, "user_id", userID)
}

// WithVisitorID tags entries with the anonymous browser identifier.
func (l *Logger) WithVisitorID(ctx context.Context, visitorID string) context.Context {
	return l.WithField(ctx, "visitor_id", visitorID)
}

// WithCart tags entries with the visitor and the backend cart they are working on.
func (l *Logger) WithCart(ctx context.Context, visitorID, cartID string) context.Context {
	fields := map[string]any{"visitor_id": visitorID}
	if cartID != "" {
		fields["cart_id"] = cartID
	}
	return l.WithFields(ctx, fields)
}

// WithUpstream describes one backend call. A zero status means no response arrived.
func (l *Logger) WithUpstream(ctx context.Context, op, method, path string, status int) context.Context {
	fields := map[string]any{
		"backend_op":     op,
		"backend_method": method,
		"backend_path":   path,
	}
	if status > 0 {
		fields["backend_status"] = status
	}
	return l.WithFields(ctx, fields)
}

// WithError records err as a plain field for warnings, which carry no error slot.
func (l *Logger) WithError(ctx context.Context, err error) context.Context {
	if err == nil {
		return ctx
	}
	return l.WithField(ctx, "error", err.Error())
}

func (l *Logger) Debug(ctx context.Context, msg string) {
	l.fromContext(ctx).Debug().Msg(msg)
}

func (l *Logger) Info(ctx context.Context, msg string) {
	l.fromContext(ctx).Info().Msg(msg)
}

func (l *Logger) Warn(ctx context.Context, msg string) {
	event := l.fromContext(ctx).Warn()
	if l.warnStack {
		event = event.Str("stack", stackTrace())
	}
	event.Msg(msg)
}

func (l *Logger) Error(ctx context.Context, msg string, err error) {
	event := l.fromContext(ctx).Error()
	if err != nil {
		event = event.Err(err)
	}
	event.Str("stack", stackTrace()).Msg(msg)
}

func redact(key string, value any) any {
	name := strings.ToLower(strings.TrimSpace(key))
	if !sensitiveFields[name] {
		return value
	}
	s, ok := value.(string)
	if !ok || s == "" {
		return redactedValue
	}
	if strings.Contains(name, "email") || name == "identifier" {
		return maskEmail(s)
	}
	return redactedValue
}

func maskEmail(value string) string {
	at := strings.LastIndex(value, "@")
	if at <= 0 {
		return redactedValue
	}
	return value[:1] + "***" + value[at:]
}

func stackTrace() string {
	return strings.TrimSpace(string(debug.Stack()))
}
