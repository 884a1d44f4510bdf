package api

import (
	"net/http"

	"git.sr.ht/~jakintosh/servedi/internal/directory"
	"git.sr.ht/~jakintosh/servedi/internal/service"
)

type RegisterResponse struct {
	Principal   *directory.Principal `json:"principal"`
	AccessToken string               `json:"accessToken"`
}

func (a *API) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := service.RegisterInput{}
		if ok := decodeRequest(&req, w, r); !ok {
			return
		}

		principal, pair, err := a.service.Register(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}

		a.setRefreshCookie(w, pair.Refresh)
		returnJson(&RegisterResponse{
			Principal:   principal,
			AccessToken: pair.Access,
		}, w, http.StatusCreated)
	}
}
