package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"posvenda.org/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// publicPaths bypass token authentication. The webhook authenticates via the
// gateway's shared secret, not a user token.
var publicPaths = []string{
	"/api/auth/login",
	"/api/auth/register",
	"/api/auth/refresh",
	"/api/auth/logout",
	"/api/whatsapp/webhook",
	"/api/health",
	"/readyz",
	"/metrics",
	"/",
}

func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.issuer == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := a.issuer.Verify(token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrExpired):
				writeError(w, r, http.StatusUnauthorized, auth.ErrExpired.Error())
			default:
				writeError(w, r, http.StatusUnauthorized, auth.ErrInvalidToken.Error())
			}
			return
		}
		if claims.Kind != auth.KindAccess {
			writeError(w, r, http.StatusUnauthorized, auth.ErrWrongTokenType.Error())
			return
		}

		ctx := auth.ContextWithIdentity(r.Context(), claims.Identity())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// identity pulls the authenticated identity or writes a 401 and reports
// ok=false.
func (a *API) identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, auth.ErrUnauthenticated.Error())
		return auth.Identity{}, false
	}
	return id, true
}

// requireAdmin guards destructive operations. A missing identity is 401, a
// non-admin one is 403.
func (a *API) requireAdmin(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := a.identity(w, r)
	if !ok {
		return auth.Identity{}, false
	}
	if !id.IsAdmin() {
		writeError(w, r, http.StatusForbidden, auth.ErrForbidden.Error())
		return auth.Identity{}, false
	}
	return id, true
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" || strings.EqualFold(header, strings.TrimSpace(bearer)) {
		return "", auth.ErrMissingToken
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", auth.ErrMalformedHeader
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", auth.ErrMissingToken
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
