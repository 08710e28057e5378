package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/splitledger/internal/auth"
	"github.com/josh-kwaku/splitledger/internal/handler"
	"github.com/josh-kwaku/splitledger/internal/logging"
	"github.com/josh-kwaku/splitledger/internal/repository"
)

type idempotencyStore interface {
	Get(ctx context.Context, key string, userID uuid.UUID) (*repository.IdempotencyCacheEntry, error)
	Reserve(ctx context.Context, entry *repository.IdempotencyCacheEntry) (bool, error)
	Complete(ctx context.Context, entry *repository.IdempotencyCacheEntry) error
	Release(ctx context.Context, key string, userID uuid.UUID) error
}

const (
	idempotencyTTL       = 24 * time.Hour
	pendingTTL           = time.Minute
	maxIdempotencyKeyLen = 255
)

// Headers captured with a stored response and restored on replay.
var replayedHeaders = []string{"Content-Type", "Location", "ETag"}

// Idempotency makes a keyed write safe to retry. The key is reserved before
// the handler runs, so concurrent retries cannot both execute it; a retry
// arriving while the first is in flight gets 409 REQUEST_IN_PROGRESS. The
// first 2xx response for an (Idempotency-Key, user) pair is stored and
// replayed to later requests with the same method, path and body. Other
// responses release the key. A different payload under a used key is a
// conflict. Requests without the header pass straight through.
func Idempotency(store idempotencyStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Idempotency-Key")
			if key == "" || !isWrite(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > maxIdempotencyKeyLen {
				handler.RespondValidationError(w, []handler.FieldError{{
					Field:   "Idempotency-Key",
					Message: fmt.Sprintf("must be at most %d characters", maxIdempotencyKeyLen),
				}})
				return
			}

			userID, ok := auth.UserIDFromContext(r.Context())
			if !ok {
				handler.RespondAppError(w, handler.ErrMissingToken, nil)
				return
			}
			log := logging.FromContext(r.Context()).With("idempotency_key", key)

			body, err := io.ReadAll(r.Body)
			if err != nil {
				handler.RespondAppError(w, handler.ErrInvalidRequest, nil)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			fingerprint := requestFingerprint(r.Method, r.URL.Path, body)

			cached, err := store.Get(r.Context(), key, userID)
			if err != nil {
				log.Error("idempotency lookup failed", "error", err)
				handler.RespondDomainError(w, err)
				return
			}
			if cached == nil {
				now := time.Now().UTC()
				pending := &repository.IdempotencyCacheEntry{
					Key:         key,
					UserID:      userID,
					RequestHash: fingerprint,
					CreatedAt:   now,
					ExpiresAt:   now.Add(pendingTTL),
				}
				reserved, err := store.Reserve(r.Context(), pending)
				if err != nil {
					log.Error("idempotency reservation failed", "error", err)
					handler.RespondDomainError(w, err)
					return
				}
				if reserved {
					execute(w, r, next, store, pending, log)
					return
				}
				if cached, err = store.Get(r.Context(), key, userID); err != nil {
					log.Error("idempotency lookup failed", "error", err)
					handler.RespondDomainError(w, err)
					return
				}
			}

			switch {
			case cached != nil && cached.RequestHash != fingerprint:
				handler.RespondAppError(w, handler.ErrIdempotencyConflict, nil)
			case cached == nil || cached.Pending():
				handler.RespondAppError(w, handler.ErrRequestInProgress, nil)
			default:
				replay(w, cached, log)
			}
		})
	}
}

// execute runs next under a held reservation and settles it: a 2xx response
// is stored. Any other outcome, a panic included, releases the key.
func execute(w http.ResponseWriter, r *http.Request, next http.Handler, store idempotencyStore, pending *repository.IdempotencyCacheEntry, log *slog.Logger) {
	// Settle even when the client has gone away.
	ctx := context.WithoutCancel(r.Context())
	settled := false
	defer func() {
		if settled {
			return
		}
		if err := store.Release(ctx, pending.Key, pending.UserID); err != nil {
			log.Error("idempotency release failed", "error", err)
		}
	}()

	rec := &captureRecorder{ResponseWriter: w, status: http.StatusOK}
	next.ServeHTTP(rec, r)
	if rec.status < 200 || rec.status > 299 {
		return
	}

	// The write happened; a failed Complete leaves the reservation to expire
	// rather than freeing the key for a second execution.
	settled = true
	done := *pending
	done.StatusCode = rec.status
	done.Headers = captureHeaders(w.Header())
	done.ResponseBody = rec.body.Bytes()
	done.ExpiresAt = time.Now().UTC().Add(idempotencyTTL)
	if err := store.Complete(ctx, &done); err != nil {
		log.Error("idempotency store failed", "error", err)
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func replay(w http.ResponseWriter, e *repository.IdempotencyCacheEntry, log *slog.Logger) {
	for k, v := range e.Headers {
		w.Header().Set(k, v)
	}
	w.Header().Set("X-Idempotent-Replayed", "true")
	w.WriteHeader(e.StatusCode)
	if _, err := w.Write(e.ResponseBody); err != nil {
		log.Warn("failed to write idempotent replay", "error", err)
	}
}

func captureHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(replayedHeaders))
	for _, k := range replayedHeaders {
		if v := h.Get(k); v != "" {
			out[k] = v
		}
	}
	return out
}

// requestFingerprint hashes what a retry must repeat exactly.
func requestFingerprint(method, path string, body []byte) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s %s\n", method, path)
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

type captureRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *captureRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *captureRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
