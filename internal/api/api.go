// Package api is the HTTP layer of the servedi auth server: request
// decoding, the authentication middleware family, cookie handling, and the
// mapping from service errors to status codes.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"git.sr.ht/~jakintosh/servedi/internal/service"
)

// API holds the handler dependencies. Construct with New; secureCookies
// should be true in production so the refresh cookie is HTTPS-only.
type API struct {
	service       *service.Service
	secureCookies bool
}

func New(svc *service.Service, secureCookies bool) *API {
	return &API{
		service:       svc,
		secureCookies: secureCookies,
	}
}

func decodeRequest[T any](req *T, w http.ResponseWriter, r *http.Request) bool {
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		logApiErr(r, "bad json request")
		writeStatus(w, http.StatusBadRequest)
		return false
	}
	return true
}

func returnJson(data any, w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		logApiErr(nil, "failed to encode response")
	}
}

// writeError maps service sentinels onto the wire contract. Authentication
// failures deliberately share one status and message regardless of which
// check failed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	logApiErr(r, err.Error())
	switch {
	case errors.Is(err, service.ErrValidation):
		writeStatus(w, http.StatusBadRequest)
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrTokenInvalid):
		writeStatus(w, http.StatusUnauthorized)
	case errors.Is(err, service.ErrPrincipalNotFound):
		writeStatus(w, http.StatusNotFound)
	case errors.Is(err, service.ErrEmailExists):
		writeStatus(w, http.StatusConflict)
	default:
		writeStatus(w, http.StatusInternalServerError)
	}
}

func writeStatus(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"message": http.StatusText(status),
	})
}

func logApiErr(r *http.Request, msg string) {
	if r == nil {
		log.Printf("api: %s\n", msg)
		return
	}
	log.Printf("%s %s: %s\n", r.Method, r.RequestURI, msg)
}
