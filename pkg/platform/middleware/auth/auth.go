// Package auth authenticates voters from a bearer token issued by the
// portal's login flow. Only the voter identity is consumed here.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	id "ballotguard/pkg/domain"
	dErrors "ballotguard/pkg/domain-errors"
	"ballotguard/pkg/platform/httputil"
	"ballotguard/pkg/requestcontext"
)

// VoterClaims is what the token validator guarantees about a request.
type VoterClaims struct {
	VoterID id.VoterID
	TokenID string
}

// TokenValidator verifies a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*VoterClaims, error)
}

// RequireVoter rejects requests without a valid voter token and stores the
// voter ID in the context for services.
func RequireVoter(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}
			if claims.VoterID.IsNil() {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "token carries no voter"))
				return
			}

			ctx = requestcontext.WithVoterID(ctx, claims.VoterID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
