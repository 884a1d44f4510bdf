package api

import (
	"net/http"
	"strconv"

	"git.sr.ht/~jakintosh/servedi/internal/directory"
	"github.com/gorilla/mux"
)

type PrincipalResponse struct {
	Principal *directory.Principal `json:"principal"`
}

type ListResponse struct {
	Principals []*directory.Principal `json:"principals"`
	Pagination Pagination             `json:"pagination"`
}

type Pagination struct {
	Page  int `json:"page"`
	Pages int `json:"pages"`
	Count int `json:"count"`
	Total int `json:"total"`
}

// ListPrincipals serves the authenticated directory listing with role
// filter, substring search, and pagination.
func (a *API) ListPrincipals() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.listWithFilter(w, r, filterFromQuery(r))
	}
}

// ListProviders is the public provider listing; the role filter is forced
// and the route takes optional auth, so anonymous viewers get the same
// data as logged-in ones.
func (a *API) ListProviders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := filterFromQuery(r)
		filter.Role = directory.RoleProvider
		a.listWithFilter(w, r, filter)
	}
}

func (a *API) listWithFilter(
	w http.ResponseWriter,
	r *http.Request,
	filter directory.Filter,
) {
	principals, total, err := a.service.ListPrincipals(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	limit := filter.Limit
	if limit < 1 || limit > 100 {
		limit = 10
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	returnJson(&ListResponse{
		Principals: principals,
		Pagination: Pagination{
			Page:  page,
			Pages: (total + limit - 1) / limit,
			Count: len(principals),
			Total: total,
		},
	}, w, http.StatusOK)
}

func (a *API) GetPrincipal() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		principal, err := a.service.GetPrincipal(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}

		returnJson(&PrincipalResponse{Principal: principal}, w, http.StatusOK)
	}
}

func (a *API) UpdateProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeStatus(w, http.StatusUnauthorized)
			return
		}

		update := directory.ProfileUpdate{}
		if ok := decodeRequest(&update, w, r); !ok {
			return
		}

		updated, err := a.service.UpdateProfile(r.Context(), principal.ID, update)
		if err != nil {
			writeError(w, r, err)
			return
		}

		returnJson(&PrincipalResponse{Principal: updated}, w, http.StatusOK)
	}
}

func (a *API) UpdateBusiness() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeStatus(w, http.StatusUnauthorized)
			return
		}

		profile := directory.ProviderProfile{}
		if ok := decodeRequest(&profile, w, r); !ok {
			return
		}

		updated, err := a.service.UpdateBusiness(r.Context(), principal.ID, profile)
		if err != nil {
			writeError(w, r, err)
			return
		}

		returnJson(&PrincipalResponse{Principal: updated}, w, http.StatusOK)
	}
}

// DeleteAccount soft-deletes the caller's account. All refresh tokens die
// with it, so the cookie is cleared as well.
func (a *API) DeleteAccount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeStatus(w, http.StatusUnauthorized)
			return
		}

		if err := a.service.DeactivateAccount(r.Context(), principal.ID); err != nil {
			writeError(w, r, err)
			return
		}

		a.clearRefreshCookie(w)
		writeStatus(w, http.StatusOK)
	}
}

func filterFromQuery(r *http.Request) directory.Filter {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return directory.Filter{
		Role:   directory.Role(q.Get("role")),
		Search: q.Get("search"),
		Page:   page,
		Limit:  limit,
	}
}
