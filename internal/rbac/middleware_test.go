package rbac_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aegis-admin/aegis/internal/rbac"
	"github.com/aegis-admin/aegis/internal/shared"
	"github.com/aegis-admin/aegis/internal/users"
)

func permissionRequest(t *testing.T, mw rbac.Middleware, code string, identity *shared.Identity) *httptest.ResponseRecorder {
	t.Helper()
	handler := mw.RequirePermission(code)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/roles", nil)
	if identity != nil {
		req = req.WithContext(shared.ContextWithIdentity(req.Context(), *identity))
	}
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestRequirePermissionGrantsExactMatch(t *testing.T) {
	userRepo := &stubUserRepo{byID: map[int64]*users.User{
		5: {ID: 5, UserName: "alice", RoleIDs: []int64{2}},
	}}
	repo := &stubRepo{codes: []string{"system:role:list"}}
	svc, _ := newResolver(t, repo, userRepo)
	mw := rbac.Middleware{Logger: discardLogger(), Service: svc}

	res := permissionRequest(t, mw, "system:role:list", &shared.Identity{UserID: 5, UserName: "alice"})
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}
}

func TestRequirePermissionDeniesMissingGrant(t *testing.T) {
	userRepo := &stubUserRepo{byID: map[int64]*users.User{
		5: {ID: 5, UserName: "alice", RoleIDs: []int64{2}},
	}}
	repo := &stubRepo{codes: []string{"system:role:list"}}
	svc, _ := newResolver(t, repo, userRepo)
	mw := rbac.Middleware{Logger: discardLogger(), Service: svc}

	res := permissionRequest(t, mw, "system:role:remove", &shared.Identity{UserID: 5, UserName: "alice"})
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", res.Code)
	}
}

func TestRequirePermissionWildcardGrantsEverything(t *testing.T) {
	userRepo := &stubUserRepo{byID: map[int64]*users.User{
		1: {ID: 1, UserName: "admin", RoleIDs: []int64{2}},
	}}
	svc, _ := newResolver(t, &stubRepo{}, userRepo)
	mw := rbac.Middleware{Logger: discardLogger(), Service: svc}

	for _, code := range []string{"system:role:list", "system:role:remove", "system:user:create"} {
		res := permissionRequest(t, mw, code, &shared.Identity{UserID: 1, UserName: "admin"})
		if res.Code != http.StatusNoContent {
			t.Fatalf("expected the wildcard to grant %q, got %d", code, res.Code)
		}
	}
}

func TestRequirePermissionRejectsAnonymousCaller(t *testing.T) {
	svc, _ := newResolver(t, &stubRepo{}, &stubUserRepo{byID: map[int64]*users.User{}})
	mw := rbac.Middleware{Logger: discardLogger(), Service: svc}

	res := permissionRequest(t, mw, "system:role:list", nil)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", res.Code)
	}
}
