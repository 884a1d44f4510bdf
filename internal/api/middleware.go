package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"git.sr.ht/~jakintosh/servedi/internal/directory"
	"git.sr.ht/~jakintosh/servedi/internal/tokens"
)

type principalContextKey struct{}

// PrincipalFromContext returns the principal attached by Authenticate or
// OptionalAuthenticate.
func PrincipalFromContext(ctx context.Context) (*directory.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*directory.Principal)
	return p, ok
}

// directoryTimeout bounds the live principal lookup during request
// verification; a hung directory must not hang the request.
const directoryTimeout = 5 * time.Second

// Authenticate requires a bearer access token, resolves it to a live
// principal, and attaches the principal to the request context. Every
// failure mode answers 401; the reason stays internal to the log line.
func (a *API) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := a.resolvePrincipal(r)
		if err != nil {
			logApiErr(r, fmt.Sprintf("authentication failed (%s): %v", authFailureKind(err), err))
			writeStatus(w, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), principalContextKey{}, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole gates a route to the given roles. Must run after
// Authenticate; an unattached principal answers 401, a role mismatch 403.
func (a *API) RequireRole(allowed ...directory.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				logApiErr(r, "role gate reached without principal")
				writeStatus(w, http.StatusUnauthorized)
				return
			}
			if !slices.Contains(allowed, principal.Role) {
				logApiErr(r, fmt.Sprintf("role '%s' not allowed", principal.Role))
				writeStatus(w, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// OptionalAuthenticate runs the same verification path as Authenticate but
// swallows every failure: the request proceeds anonymously instead of
// being rejected. For routes whose behavior varies by viewer identity.
func (a *API) OptionalAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := a.resolvePrincipal(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), principalContextKey{}, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

var errNoToken = errors.New("no bearer token")

func (a *API) resolvePrincipal(r *http.Request) (*directory.Principal, error) {
	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		return nil, errNoToken
	}

	ctx, cancel := context.WithTimeout(r.Context(), directoryTimeout)
	defer cancel()

	return a.service.Authenticate(ctx, token)
}

func bearerToken(value string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(value, prefix) {
		return "", false
	}
	token := value[len(prefix):]
	if token == "" {
		return "", false
	}
	return token, true
}

// authFailureKind classifies a verification failure for logging. The wire
// response never carries this distinction.
func authFailureKind(err error) string {
	switch {
	case errors.Is(err, errNoToken):
		return "no-token"
	case errors.Is(err, tokens.ErrExpired):
		return "expired"
	case errors.Is(err, tokens.ErrInvalid):
		return "invalid"
	default:
		return "stale"
	}
}
