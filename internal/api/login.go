package api

import (
	"net/http"

	"git.sr.ht/~jakintosh/servedi/internal/directory"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Principal   *directory.Principal `json:"principal"`
	AccessToken string               `json:"accessToken"`
}

func (a *API) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := LoginRequest{}
		if ok := decodeRequest(&req, w, r); !ok {
			return
		}

		principal, pair, err := a.service.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeError(w, r, err)
			return
		}

		a.setRefreshCookie(w, pair.Refresh)
		returnJson(&LoginResponse{
			Principal:   principal,
			AccessToken: pair.Access,
		}, w, http.StatusOK)
	}
}
