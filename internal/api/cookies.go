package api

import (
	"net/http"
)

// refreshCookieName is the HTTP-only cookie carrying the refresh token.
// It is scoped to the auth routes; application code never sees the value.
const refreshCookieName = "refreshToken"

const refreshCookiePath = "/api/auth"

func (a *API) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Path:     refreshCookiePath,
		Value:    token,
		MaxAge:   int(a.service.Codec().RefreshLifetime().Seconds()),
		SameSite: http.SameSiteStrictMode,
		Secure:   a.secureCookies,
		HttpOnly: true,
	})
}

func (a *API) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Path:     refreshCookiePath,
		MaxAge:   -1,
		SameSite: http.SameSiteStrictMode,
		Secure:   a.secureCookies,
		HttpOnly: true,
	})
}

func refreshCookie(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}
