package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/baharkarakas/franchise-backend/internal/logger"
)

const RequestIDHeader = "X-Request-Id"

// RequestID reuses a sane incoming X-Request-Id or generates one, echoes it
// in the response and attaches it to the context for logging.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}
