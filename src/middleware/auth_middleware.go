package middleware

import (
	"context"
	"errors"
	"net/http"
	"spendsage-server/src/access"
	"spendsage-server/src/util"
	"strings"

	"go.uber.org/zap"
)

// Authenticator resolves a bearer access token to an existing user.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (access.Principal, error)
}

var errMissingToken = errors.New("missing token")

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header.
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errMissingToken
	}
	return strings.TrimSpace(token), nil
}

// JWTAuthMiddleware attaches the caller's access.Principal to the request
// context or answers 401.
func JWTAuthMiddleware(users Authenticator, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				util.WriteError(w, http.StatusUnauthorized, "Authentication credentials were not provided.", nil)
				return
			}

			p, err := users.Authenticate(r.Context(), token)
			if err != nil {
				log.Debug("rejected token", zap.Error(err), zap.String("path", r.URL.Path))
				util.WriteError(w, http.StatusUnauthorized, "Given token not valid for any token type", map[string]string{
					"detail": "Token is invalid or expired",
				})
				return
			}

			next.ServeHTTP(w, r.WithContext(access.WithPrincipal(r.Context(), p)))
		})
	}
}
