package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tokengate/tokengate/internal/models"
	"github.com/tokengate/tokengate/internal/service"
)

type contextKey string

const identityContextKey contextKey = "identity"

type AuthMiddleware struct {
	authService *service.AuthService
	logger      *logrus.Logger
}

func NewAuthMiddleware(authService *service.AuthService, logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		logger:      logger,
	}
}

// RequireAuth rejects requests without a valid bearer access token and
// attaches the asserted identity to the request context. Verification
// failure reasons pass through to the client unchanged, so an expired token
// is reported as exactly "jwt expired".
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := m.authService.Authorize(BearerToken(r))
		if err != nil {
			var verr *service.VerificationError
			switch {
			case errors.Is(err, service.ErrTokenMissing):
				// A missing credential gets the same message as a failed
				// login; clients depend on that wording.
				m.respondUnauthorized(w, "password is incorrect")
			case errors.As(err, &verr):
				m.logger.WithField("reason", verr.Reason).Debug("Token verification failed")
				m.respondUnauthorized(w, verr.Reason)
			default:
				m.respondUnauthorized(w, "No authorized!")
			}
			return
		}

		ctx := context.WithValue(r.Context(), identityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header, or returns "" when the header is absent or not in bearer form.
func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}

	return parts[1]
}

// IdentityFromContext returns the identity attached by RequireAuth.
func IdentityFromContext(ctx context.Context) (*models.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*models.Identity)
	return identity, ok
}

func (m *AuthMiddleware) respondUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(struct {
		OK      bool   `json:"ok"`
		Message string `json:"message"`
	}{OK: false, Message: message})
}
