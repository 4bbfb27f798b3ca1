package middleware

import (
	"net/http"
	"strconv"

	"github.com/alanyoungcy/kalshidash/internal/metrics"
)

// Metrics returns middleware that counts requests by method and status code.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)
			m.HTTPRequest(r.Method, strconv.Itoa(rw.statusCode))
		})
	}
}
