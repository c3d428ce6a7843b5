package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Log tags every request with a log_id and records its latency.
func Log(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			start  = time.Now()
			logID  = uuid.New()
			logger = log.With().Str("log_id", logID.String()).Logger()
			ctx    = logger.WithContext(r.Context())
		)

		next.ServeHTTP(w, r.WithContext(ctx))

		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("latency", time.Since(start)).
			Msg("request done")
	})
}
