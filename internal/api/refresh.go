package api

import (
	"net/http"
)

type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

// Refresh rotates the session: the cookie's refresh token is consumed and
// replaced, and a fresh access token is returned in the body. No bearer
// token is required; the cookie is the whole credential.
func (a *API) Refresh() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := refreshCookie(r)
		if !ok {
			logApiErr(r, "missing refresh cookie")
			writeStatus(w, http.StatusUnauthorized)
			return
		}

		pair, err := a.service.Refresh(r.Context(), token)
		if err != nil {
			writeError(w, r, err)
			return
		}

		a.setRefreshCookie(w, pair.Refresh)
		returnJson(&RefreshResponse{
			AccessToken: pair.Access,
		}, w, http.StatusOK)
	}
}
