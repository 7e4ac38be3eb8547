package middleware

import (
	"net/http"
	"spendsage-server/src/util"
	"strings"
)

// DemoModeMiddleware makes a public demo read-only. Signing in and Plaid
// webhooks stay open.
func DemoModeMiddleware(isDemo bool) func(http.Handler) http.Handler {
	allowedPosts := map[string]bool{
		"/auth/login":    true,
		"/auth/register": true,
		"/auth/refresh":  true,
		"/plaid/webhook": true,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isDemo || r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if r.Method == http.MethodPost && allowedPosts[strings.TrimSuffix(r.URL.Path, "/")] {
				next.ServeHTTP(w, r)
				return
			}
			util.WriteError(w, http.StatusForbidden, "Demo mode: only GET requests are allowed", nil)
		})
	}
}
