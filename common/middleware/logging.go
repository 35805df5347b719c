package middleware

import (
	"net/http"
	"time"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/common/httputil"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/common/logging"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Logging writes one access log line per request. Health and metrics
// probes log at debug.
func Logging(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			args := []any{
				"method", r.Method,
				"path", r.URL.Path,
				logging.FieldStatus, rec.status,
				logging.FieldDuration, time.Since(start).Milliseconds(),
				"request_id", GetRequestID(r.Context()),
				"client_ip", httputil.GetClientIP(r),
			}
			if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
				logger.DebugContext(r.Context(), "request", args...)
				return
			}
			logger.InfoContext(r.Context(), "request", args...)
		})
	}
}
