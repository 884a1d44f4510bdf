package api

import (
	"net/http"

	"git.sr.ht/~jakintosh/servedi/internal/directory"
)

type ProfileResponse struct {
	Principal *directory.Principal `json:"principal"`
}

func (a *API) Profile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeStatus(w, http.StatusUnauthorized)
			return
		}

		returnJson(&ProfileResponse{Principal: principal}, w, http.StatusOK)
	}
}
