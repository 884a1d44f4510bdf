package api

import (
	"net/http"

	"git.sr.ht/~jakintosh/servedi/internal/directory"
	"github.com/gorilla/mux"
)

func (a *API) Router() http.Handler {
	r := mux.NewRouter()

	auth := r.PathPrefix("/api/auth").Subrouter()
	auth.Handle("/register", a.Register()).Methods("POST")
	auth.Handle("/login", a.Login()).Methods("POST")
	auth.Handle("/refresh-token", a.Refresh()).Methods("POST")
	auth.Handle("/logout", a.Authenticate(a.Logout())).Methods("POST")
	auth.Handle("/profile", a.Authenticate(a.Profile())).Methods("GET")

	providerOnly := a.RequireRole(directory.RoleProvider)

	users := r.PathPrefix("/api/users").Subrouter()
	users.Handle("/providers", a.OptionalAuthenticate(a.ListProviders())).Methods("GET")
	users.Handle("/profile", a.Authenticate(a.UpdateProfile())).Methods("PUT")
	users.Handle("/business", a.Authenticate(providerOnly(a.UpdateBusiness()))).Methods("PUT")
	users.Handle("/account", a.Authenticate(a.DeleteAccount())).Methods("DELETE")
	users.Handle("", a.Authenticate(a.ListPrincipals())).Methods("GET")
	users.Handle("/{id}", a.OptionalAuthenticate(a.GetPrincipal())).Methods("GET")

	return r
}
