package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"rooflens.io/internal/auth"
)

// Routes reachable without a bearer token. Everything else under the mux is
// staff-only. Anonymous responders reach documents exclusively through the
// public token prefixes, so the token itself is the whole credential there.
var publicExact = map[string]bool{
	"/":              true,
	"/healthz":       true,
	"/readyz":        true,
	"/metrics":       true,
	"/v1/info":       true,
	"/v1/auth/login": true,
}

var publicPrefixes = [...]string{
	"/offer/public/",
	"/service-agreement/public/",
}

func isPublicPath(path string) bool {
	if publicExact[path] {
		return true
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := bearerToken(r)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}
		p, err := a.auth.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				writeError(w, r, http.StatusUnauthorized, "invalid token")
			} else {
				writeError(w, r, http.StatusInternalServerError, "authentication error")
			}
			return
		}

		ctx := auth.ContextWithToken(auth.ContextWithPrincipal(r.Context(), p), token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// principal returns the authenticated principal or fails the request with 401.
func (a *API) principal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
	}
	return p, ok
}

func bearerToken(r *http.Request) (string, error) {
	const scheme = "bearer "
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	switch {
	case header == "":
		return "", errors.New("missing bearer token")
	case !strings.HasPrefix(strings.ToLower(header), scheme):
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(scheme):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
