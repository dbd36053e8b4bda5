package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/example/office-calendar/internal/application"
	"github.com/example/office-calendar/internal/logging"
)

// TokenVerifier validates a raw bearer token and returns its claims.
type TokenVerifier interface {
	Verify(raw string) (application.TokenClaims, error)
}

// RequireAuth rejects requests without a valid bearer token and stores
// the resolved principal in the request context. The token is read from
// the Authorization header, or from the token query parameter so
// browser websocket clients can authenticate.
func RequireAuth(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractTokenFromRequest(r)
			if token == "" {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, "unauthorized", errMissingToken)
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				code := "token_invalid"
				if errors.Is(err, application.ErrTokenExpired) {
					code = "token_expired"
				}
				responder.writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{Error: errorBody{
					Code:    code,
					Message: "the provided token is not valid",
				}})
				return
			}

			principal, err := application.ResolveIdentity(claims)
			if err != nil {
				responder.writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{Error: errorBody{
					Code:    "token_invalid",
					Message: "the token carries no usable identity",
				}})
				return
			}

			ctx := ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger attaches a per-request logger to the context and emits
// one line per completed request.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := base.With(
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := logging.ContextWithLogger(r.Context(), logger)
			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			start := time.Now()
			next.ServeHTTP(wrapped, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed",
				"status", wrapped.Status(),
				"bytes", wrapped.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}

func extractTokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		const prefix = "Bearer "
		if strings.HasPrefix(header, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(header, prefix))
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
