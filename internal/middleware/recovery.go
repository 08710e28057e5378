package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/josh-kwaku/splitledger/internal/handler"
	"github.com/josh-kwaku/splitledger/internal/logging"
	"github.com/josh-kwaku/splitledger/internal/metrics"
)

// Recovery answers a handler panic with a 500 envelope. http.ErrAbortHandler
// is re-raised so the server still aborts the connection.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			metrics.RecordPanic()
			logging.FromContext(r.Context()).Error("panic recovered",
				"error", rec,
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)
			handler.RespondAppError(w, handler.ErrInternalError, nil)
		}()
		next.ServeHTTP(w, r)
	})
}
