package api_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/servedi/internal/api"
	"git.sr.ht/~jakintosh/servedi/internal/testutil"
)

func TestListPrincipalsEndpoint(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)
	_, pair := env.RegisterClient(t, "ada@example.com", "secret123")
	env.RegisterProvider(t, "grace@example.com", "secret123", "Hopper Repairs")

	response := api.ListResponse{}
	result := testutil.Get(env.Router, "/api/users", &response,
		testutil.BearerHeader(pair.Access))
	testutil.ExpectStatus(t, http.StatusOK, result)

	if response.Pagination.Total != 2 || len(response.Principals) != 2 {
		t.Errorf("expected 2 principals, got total=%d len=%d",
			response.Pagination.Total, len(response.Principals))
	}
}

func TestListPrincipalsEndpoint_RequiresAuth(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	result := testutil.Get(env.Router, "/api/users", nil)
	testutil.ExpectStatus(t, http.StatusUnauthorized, result)
}

func TestListPrincipalsEndpoint_RoleFilter(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)
	_, pair := env.RegisterClient(t, "ada@example.com", "secret123")
	env.RegisterProvider(t, "grace@example.com", "secret123", "Hopper Repairs")

	response := api.ListResponse{}
	result := testutil.Get(env.Router, "/api/users?role=provider", &response,
		testutil.BearerHeader(pair.Access))
	testutil.ExpectStatus(t, http.StatusOK, result)

	if response.Pagination.Total != 1 || len(response.Principals) != 1 {
		t.Fatalf("expected 1 provider, got total=%d len=%d",
			response.Pagination.Total, len(response.Principals))
	}
	if response.Principals[0].Email != "grace@example.com" {
		t.Errorf("unexpected principal '%s'", response.Principals[0].Email)
	}
}

func TestListPrincipalsEndpoint_Search(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)
	_, pair := env.RegisterClient(t, "ada@example.com", "secret123")
	env.RegisterProvider(t, "grace@example.com", "secret123", "Hopper Repairs")

	response := api.ListResponse{}
	result := testutil.Get(env.Router, "/api/users?search=Hopper", &response,
		testutil.BearerHeader(pair.Access))
	testutil.ExpectStatus(t, http.StatusOK, result)

	if response.Pagination.Total != 1 {
		t.Errorf("expected 1 search match, got %d", response.Pagination.Total)
	}
}

func TestListPrincipalsEndpoint_Pagination(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)
	_, pair := env.RegisterClient(t, "pager@example.com", "secret123")
	for i := 0; i < 6; i++ {
		env.RegisterClient(t, fmt.Sprintf("user%d@example.com", i), "secret123")
	}

	response := api.ListResponse{}
	result := testutil.Get(env.Router, "/api/users?page=2&limit=3", &response,
		testutil.BearerHeader(pair.Access))
	testutil.ExpectStatus(t, http.StatusOK, result)

	if response.Pagination.Total != 7 {
		t.Errorf("expected total 7, got %d", response.Pagination.Total)
	}
	if response.Pagination.Pages != 3 {
		t.Errorf("expected 3 pages, got %d", response.Pagination.Pages)
	}
	if response.Pagination.Page != 2 {
		t.Errorf("expected page 2, got %d", response.Pagination.Page)
	}
	if response.Pagination.Count != 3 || len(response.Principals) != 3 {
		t.Errorf("expected 3 principals on page, got count=%d len=%d",
			response.Pagination.Count, len(response.Principals))
	}
}

func TestGetPrincipalEndpoint(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)
	principal, _ := env.RegisterProvider(t, "grace@example.com", "secret123", "Hopper Repairs")

	// public route, no credentials needed
	response := api.PrincipalResponse{}
	result := testutil.Get(env.Router, "/api/users/"+principal.ID, &response)
	testutil.ExpectStatus(t, http.StatusOK, result)

	if response.Principal.Email != "grace@example.com" {
		t.Errorf("unexpected principal '%s'", response.Principal.Email)
	}
	if response.Principal.Provider == nil {
		t.Error("expected provider payload")
	}
}

func TestGetPrincipalEndpoint_NotFound(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	result := testutil.Get(env.Router, "/api/users/no-such-id", nil)
	testutil.ExpectStatus(t, http.StatusNotFound, result)
}

func TestUpdateProfileEndpoint(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)
	_, pair := env.RegisterClient(t, "ada@example.com", "secret123")

	response := api.PrincipalResponse{}
	result := testutil.PutJSON(env.Router, "/api/users/profile",
		`{"firstName": "Augusta", "lastName": "King", "phone": "555-0199"}`, &response,
		testutil.BearerHeader(pair.Access))
	testutil.ExpectStatus(t, http.StatusOK, result)

	if response.Principal.FirstName != "Augusta" || response.Principal.Phone != "555-0199" {
		t.Errorf("profile not updated: %+v", response.Principal)
	}
}

func TestUpdateProfileEndpoint_RequiresAuth(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	result := testutil.PutJSON(env.Router, "/api/users/profile",
		`{"firstName": "Nobody"}`, nil)
	testutil.ExpectStatus(t, http.StatusUnauthorized, result)
}

func TestUpdateBusinessEndpoint_EmptyName(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)
	_, pair := env.RegisterProvider(t, "grace@example.com", "secret123", "Hopper Repairs")

	result := testutil.PutJSON(env.Router, "/api/users/business",
		`{"businessName": ""}`, nil,
		testutil.BearerHeader(pair.Access))
	testutil.ExpectStatus(t, http.StatusBadRequest, result)
}

func TestDeleteAccountEndpoint(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)
	principal, pair := env.RegisterClient(t, "ada@example.com", "secret123")

	result := testutil.Delete(env.Router, "/api/users/account", nil,
		testutil.BearerHeader(pair.Access))
	testutil.ExpectStatus(t, http.StatusOK, result)

	cleared := testutil.RefreshCookie(t, result)
	if cleared.MaxAge >= 0 {
		t.Errorf("expected refresh cookie cleared, got max-age %d", cleared.MaxAge)
	}

	// the account disappears from public view
	result = testutil.Get(env.Router, "/api/users/"+principal.ID, nil)
	testutil.ExpectStatus(t, http.StatusNotFound, result)

	// and every credential dies with it
	result = testutil.Get(env.Router, "/api/auth/profile", nil,
		testutil.BearerHeader(pair.Access))
	testutil.ExpectStatus(t, http.StatusUnauthorized, result)
	result = testutil.PostJSON(env.Router, "/api/auth/refresh-token", "", nil,
		testutil.CookieHeader(pair.Refresh))
	testutil.ExpectStatus(t, http.StatusUnauthorized, result)
}

// TestSessionLifecycle walks one account through the full arc: register,
// refresh, use the new access token, log out, and observe every credential
// stop working.
func TestSessionLifecycle(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	registered := api.RegisterResponse{}
	result := testutil.PostJSON(env.Router, "/api/auth/register", registerBody, &registered)
	testutil.ExpectStatus(t, http.StatusCreated, result)
	firstCookie := testutil.RefreshCookie(t, result)

	// access token works immediately
	result = testutil.Get(env.Router, "/api/auth/profile", nil,
		testutil.BearerHeader(registered.AccessToken))
	testutil.ExpectStatus(t, http.StatusOK, result)

	// access token ages out
	env.Advance(env.Codec.AccessLifetime() + time.Second)
	result = testutil.Get(env.Router, "/api/auth/profile", nil,
		testutil.BearerHeader(registered.AccessToken))
	testutil.ExpectStatus(t, http.StatusUnauthorized, result)

	// the refresh cookie recovers the session
	refreshed := api.RefreshResponse{}
	result = testutil.PostJSON(env.Router, "/api/auth/refresh-token", "", &refreshed,
		testutil.CookieHeader(firstCookie.Value))
	testutil.ExpectStatus(t, http.StatusOK, result)
	secondCookie := testutil.RefreshCookie(t, result)

	result = testutil.Get(env.Router, "/api/auth/profile", nil,
		testutil.BearerHeader(refreshed.AccessToken))
	testutil.ExpectStatus(t, http.StatusOK, result)

	// the first cookie was consumed by the rotation
	result = testutil.PostJSON(env.Router, "/api/auth/refresh-token", "", nil,
		testutil.CookieHeader(firstCookie.Value))
	testutil.ExpectStatus(t, http.StatusUnauthorized, result)

	// logout kills the second cookie too
	result = testutil.PostJSON(env.Router, "/api/auth/logout", "", nil,
		testutil.BearerHeader(refreshed.AccessToken),
		testutil.CookieHeader(secondCookie.Value))
	testutil.ExpectStatus(t, http.StatusOK, result)

	result = testutil.PostJSON(env.Router, "/api/auth/refresh-token", "", nil,
		testutil.CookieHeader(secondCookie.Value))
	testutil.ExpectStatus(t, http.StatusUnauthorized, result)
}
