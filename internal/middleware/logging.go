package middleware

import (
	"log"
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/technosupport/society-watch/internal/metrics"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// RequestLogger logs one line per request with the chi request ID and
// feeds the HTTP counter. Wrap it outside the routes, inside RequestID.
func RequestLogger(m *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			reqID := chimw.GetReqID(r.Context())
			log.Printf("[http] %s %s %s status=%d dur=%s id=%s",
				r.RemoteAddr, r.Method, r.URL.Path, rec.status,
				time.Since(start).Round(time.Millisecond), reqID)

			if m != nil {
				m.HTTPRequests.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
			}
		})
	}
}
