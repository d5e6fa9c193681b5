package api

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName   = "second-brain/api"
	syncSpanName = "api.request"
)

// syncRequestMetrics collects per-request timings on the heavy endpoints
// (backlog sync, board task listing) and emits one span plus one structured
// log line per request.
type syncRequestMetrics struct {
	logger       *log.Logger
	span         trace.Span
	start        time.Time
	authDuration time.Duration
	storeTime    time.Duration
	batchSize    int
	upserted     int
	errorStage   string
}

func newSyncRequestMetrics(ctx context.Context, logger *log.Logger) (*syncRequestMetrics, context.Context) {
	m := &syncRequestMetrics{
		logger: logger,
		start:  time.Now(),
	}
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, syncSpanName)
	m.span = span
	return m, spanCtx
}

func (m *syncRequestMetrics) ObserveAuth(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.authDuration = duration
}

func (m *syncRequestMetrics) ObserveStore(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.storeTime = duration
}

func (m *syncRequestMetrics) SetBatchSize(count int) {
	if count < 0 {
		count = 0
	}
	m.batchSize = count
}

func (m *syncRequestMetrics) SetUpserted(count int) {
	if count < 0 {
		count = 0
	}
	m.upserted = count
}

func (m *syncRequestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

func (m *syncRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}
	totalMillis := durationToMillis(time.Since(m.start))

	if m.span != nil {
		m.span.SetAttributes(
			attribute.Int("http.status_code", status),
			attribute.Float64("request.total_ms", totalMillis),
			attribute.Int("request.batch_size", m.batchSize),
			attribute.Int("request.upserted", m.upserted),
		)
		if m.errorStage != "" {
			m.span.SetAttributes(attribute.String("request.error_stage", m.errorStage))
		}
		if err != nil {
			m.span.RecordError(err)
			m.span.SetStatus(codes.Error, err.Error())
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	fields := log.Fields{
		"status":     status,
		"total_ms":   totalMillis,
		"batch_size": m.batchSize,
		"upserted":   m.upserted,
	}
	if m.authDuration > 0 {
		fields["auth_ms"] = durationToMillis(m.authDuration)
	}
	if m.storeTime > 0 {
		fields["store_ms"] = durationToMillis(m.storeTime)
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	if m.span != nil {
		if sc := m.span.SpanContext(); sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
		}
	}
	m.logger.WithFields(fields).Info("request.metrics")
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
