package api

import (
	"net/http"
)

// Logout removes the cookie's refresh token from the session set and
// clears the cookie. Requires a valid access token; a missing or
// already-removed refresh token still logs out cleanly.
func (a *API) Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeStatus(w, http.StatusUnauthorized)
			return
		}

		if token, ok := refreshCookie(r); ok {
			if err := a.service.Logout(r.Context(), principal.ID, token); err != nil {
				writeError(w, r, err)
				return
			}
		}

		a.clearRefreshCookie(w)
		writeStatus(w, http.StatusOK)
	}
}
