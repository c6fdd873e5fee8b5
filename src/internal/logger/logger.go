package logger

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Fields map[string]any

var sensitiveKeys = map[string]struct{}{
	"apikey":        {},
	"xapikey":       {},
	"api_key":       {},
	"apikeyhash":    {},
	"authorization": {},
	"password":      {},
}

var base atomic.Pointer[zap.Logger]

func init() {
	l, err := build("info")
	if err != nil {
		l = zap.NewNop()
	}
	base.Store(l)
}

// Configure replaces the process logger with a JSON logger at the given level.
func Configure(level string) error {
	l, err := build(level)
	if err != nil {
		return err
	}
	SetLogger(l)
	return nil
}

func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	base.Store(l)
}

func Sync() {
	_ = base.Load().Sync()
}

func build(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	return cfg.Build(zap.AddCallerSkip(2))
}

func Info(message string, fields Fields) {
	write(nil, zapcore.InfoLevel, message, nil, fields)
}

func Warn(message string, fields Fields) {
	write(nil, zapcore.WarnLevel, message, nil, fields)
}

func Error(message string, err error, fields Fields) {
	write(nil, zapcore.ErrorLevel, message, err, fields)
}

// InfoContext is Info plus trace correlation when ctx carries a span.
func InfoContext(ctx context.Context, message string, fields Fields) {
	write(ctx, zapcore.InfoLevel, message, nil, fields)
}

func WarnContext(ctx context.Context, message string, fields Fields) {
	write(ctx, zapcore.WarnLevel, message, nil, fields)
}

func ErrorContext(ctx context.Context, message string, err error, fields Fields) {
	write(ctx, zapcore.ErrorLevel, message, err, fields)
}

func write(ctx context.Context, level zapcore.Level, message string, err error, fields Fields) {
	l := base.Load()
	if ce := l.Check(level, message); ce != nil {
		zapFields := toZapFields(fields)
		if err != nil {
			zapFields = append(zapFields, zap.String("error", err.Error()))
		}
		if ctx != nil {
			if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
				zapFields = append(zapFields,
					zap.String("trace_id", sc.TraceID().String()),
					zap.String("span_id", sc.SpanID().String()),
				)
			}
		}
		ce.Write(zapFields...)
	}
}

func toZapFields(fields Fields) []zap.Field {
	if len(fields) == 0 {
		return nil
	}

	sanitized, ok := SanitizePayload(fields).(map[string]any)
	if !ok {
		return []zap.Field{zap.Any("fields", sanitized)}
	}

	keys := make([]string, 0, len(sanitized))
	for k := range sanitized {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		out = append(out, zap.Any(k, sanitized[k]))
	}
	return out
}

func SanitizePayload(payload any) any {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "<unavailable>"
	}

	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return "<unavailable>"
	}

	return sanitizeValue(data)
}

func sanitizeValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, inner := range typed {
			if isSensitiveKey(key) {
				out[key] = "******"
				continue
			}
			out[key] = sanitizeValue(inner)
		}
		return out
	case []any:
		out := make([]any, 0, len(typed))
		for _, item := range typed {
			out = append(out, sanitizeValue(item))
		}
		return out
	default:
		return value
	}
}

func isSensitiveKey(key string) bool {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(key), "-", ""))
	_, ok := sensitiveKeys[normalized]
	return ok
}
