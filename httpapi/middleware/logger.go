package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger logs method, path, and latency for every request, the same shape
// as the teacher's walletserver middleware.Logger.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logrus.WithField("method", r.Method).WithField("path", r.RequestURI).
			WithField("duration", time.Since(start)).Info("handled request")
	})
}
