package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/taskmaster-io/backend/pkg/ctxutil"
)

const requestIDHeader = "X-Request-Id"

// RequestID tags every request with an ID for log correlation. An inbound
// X-Request-Id is trusted and propagated; otherwise one is generated. The ID
// is stored in the context and echoed back in the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ctxutil.WithRequestID(r.Context(), id)))
	})
}
