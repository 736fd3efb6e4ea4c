package middleware

import (
	"context"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/leeforge/globaltree/logging"
	"github.com/leeforge/globaltree/metrics"
)

const startTimeKey contextKey = "start_time"

// Metric names recorded by Access.
const (
	MetricRequests        = "diagnostics_requests_total"
	MetricRequestDuration = "diagnostics_request_duration_ms"
)

// Access stamps the request start time, then logs and counts the request
// once it completes. collector may be nil.
func Access(logger logging.Logger, collector *metrics.Collector) func(http.Handler) http.Handler {
	logger = logging.OrNop(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), startTimeKey, start)))

			took := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("took", took),
				zap.String("trace_id", GetTraceID(r.Context())),
			)
			if collector != nil {
				labels := map[string]string{"method": r.Method, "status": http.StatusText(status)}
				collector.IncCounter(MetricRequests, labels)
				collector.ObserveHistogram(MetricRequestDuration, float64(took.Milliseconds()), map[string]string{"method": r.Method})
			}
		})
	}
}

// Took returns the milliseconds elapsed since Access saw the request.
func Took(ctx context.Context) int64 {
	if start, ok := ctx.Value(startTimeKey).(time.Time); ok {
		return time.Since(start).Milliseconds()
	}
	return 0
}
