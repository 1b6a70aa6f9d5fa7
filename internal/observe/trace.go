package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/MrWong99/lingvox"

// Span attribute keys set by [StartOp] and [FinishOp].
const (
	attrKind   = attribute.Key("lingvox.kind")
	attrChatID = attribute.Key("lingvox.chat_id")
	attrStatus = attribute.Key("lingvox.status")
)

type chatKey struct{}

// Tracer returns the lingvox [trace.Tracer] from the global
// [trace.TracerProvider].
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartOp starts the span of one orchestrator call. The span is named
// "lingvox.<kind>". A non-empty chatID is attached to the span and to every
// logger obtained from the returned context through [Logger].
func StartOp(ctx context.Context, kind, chatID string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attrKind.String(kind)}
	if chatID != "" {
		attrs = append(attrs, attrChatID.String(chatID))
		ctx = context.WithValue(ctx, chatKey{}, chatID)
	}
	return Tracer().Start(ctx, "lingvox."+kind,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// FinishOp records status on the span in ctx and ends it. Any status other
// than "ok" and "empty" marks the span as failed.
func FinishOp(ctx context.Context, status string) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attrStatus.String(status))
	if status != "ok" && status != "empty" {
		span.SetStatus(codes.Error, status)
	}
	span.End()
}

// CorrelationID returns the trace ID of the span in ctx, or "".
func CorrelationID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// ChatID returns the chat ID attached by [StartOp], or "".
func ChatID(ctx context.Context) string {
	id, _ := ctx.Value(chatKey{}).(string)
	return id
}

// Logger returns the default [slog.Logger] enriched with trace_id and span_id
// when ctx carries a span, and with chat_id when [StartOp] attached one.
func Logger(ctx context.Context) *slog.Logger {
	l := slog.Default()
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		l = l.With(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	if id := ChatID(ctx); id != "" {
		l = l.With(slog.String("chat_id", id))
	}
	return l
}
