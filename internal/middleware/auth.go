package middleware

import (
	"net/http"
	"strings"

	"github.com/josh-kwaku/splitledger/internal/auth"
	"github.com/josh-kwaku/splitledger/internal/handler"
	"github.com/josh-kwaku/splitledger/internal/logging"
)

// Auth requires a bearer token signed with secret. The caller's claims go on
// the context and the caller's id onto the request logger.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				handler.RespondAppError(w, handler.ErrMissingToken, nil)
				return
			}

			scheme, token, found := strings.Cut(header, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				handler.RespondAppError(w, handler.ErrInvalidToken, nil)
				return
			}

			claims, err := auth.ParseToken(strings.TrimSpace(token), secret)
			if err != nil {
				logging.FromContext(r.Context()).Debug("rejected bearer token", "error", err)
				handler.RespondAppError(w, handler.ErrInvalidToken, nil)
				return
			}

			ctx := auth.WithClaims(r.Context(), claims)
			ctx = logging.WithLogger(ctx, logging.FromContext(ctx).With("user_id", claims.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
