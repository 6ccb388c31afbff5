package rbac_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/aegis-admin/aegis/internal/rbac"
	"github.com/aegis-admin/aegis/internal/shared"
	"github.com/aegis-admin/aegis/internal/users"
)

type stubUserRepo struct {
	byID map[int64]*users.User
}

func (s *stubUserRepo) FindByUserName(ctx context.Context, userName string) (*users.User, error) {
	for _, user := range s.byID {
		if user.UserName == userName {
			return user, nil
		}
	}
	return nil, users.ErrNotFound
}

func (s *stubUserRepo) FindByID(ctx context.Context, id int64) (*users.User, error) {
	if user, ok := s.byID[id]; ok {
		return user, nil
	}
	return nil, users.ErrNotFound
}

type stubRepo struct {
	grants    []rbac.RoleGrant
	perms     []rbac.Permission
	codes     []string
	codeCalls int
}

func (s *stubRepo) FindRolesByID(ctx context.Context, ids []int64) ([]rbac.RoleGrant, error) {
	return s.grants, nil
}

func (s *stubRepo) FindPermissionsByID(ctx context.Context, ids []int64) ([]rbac.Permission, error) {
	return s.perms, nil
}

func (s *stubRepo) FindPermissionCodesByRoleID(ctx context.Context, roleIDs []int64) ([]string, error) {
	s.codeCalls++
	return s.codes, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newResolver(t *testing.T, repo *stubRepo, userRepo *stubUserRepo) (*rbac.Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := rbac.NewCache(client, time.Hour)
	svc := rbac.NewService(discardLogger(), repo, users.NewService(userRepo, "admin"), cache, "*:*:*")
	return svc, mr
}

func TestGetUserInfoAdminOverride(t *testing.T) {
	userRepo := &stubUserRepo{byID: map[int64]*users.User{
		1: {ID: 1, UserName: "admin", NickName: "Root", RoleIDs: []int64{2}},
	}}
	repo := &stubRepo{
		grants: []rbac.RoleGrant{{Name: "ops", PermissionIDs: []int64{10}}},
		perms: []rbac.Permission{
			{ID: 10, Name: "Users", Code: "user:list", Type: rbac.TypeMenu},
		},
	}
	svc, _ := newResolver(t, repo, userRepo)

	info, err := svc.GetUserInfo(context.Background(), 1)
	if err != nil {
		t.Fatalf("get user info: %v", err)
	}
	if len(info.Permissions) != 1 || info.Permissions[0] != "*:*:*" {
		t.Fatalf("expected wildcard permission only, got %v", info.Permissions)
	}
	// Roles and menus still derive from the assigned roles.
	if len(info.Roles) != 1 || info.Roles[0] != "ops" {
		t.Fatalf("expected role names, got %v", info.Roles)
	}
	if len(info.Menus) != 1 {
		t.Fatalf("expected menus to be built, got %v", info.Menus)
	}
}

func TestGetUserInfoMissingUserIsHardError(t *testing.T) {
	svc, _ := newResolver(t, &stubRepo{}, &stubUserRepo{byID: map[int64]*users.User{}})

	_, err := svc.GetUserInfo(context.Background(), 99)
	if !errors.Is(err, rbac.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestGetUserInfoAggregatesAndDeduplicates(t *testing.T) {
	userRepo := &stubUserRepo{byID: map[int64]*users.User{
		5: {ID: 5, UserName: "alice", NickName: "Alice", Avatar: "a.png", RoleIDs: []int64{2, 3}},
	}}
	repo := &stubRepo{
		grants: []rbac.RoleGrant{
			{Name: "editor", PermissionIDs: []int64{10, 11}},
			{Name: "viewer", PermissionIDs: []int64{11, 12}},
		},
		perms: []rbac.Permission{
			{ID: 10, Name: "Users", Code: "user:list", Type: rbac.TypeMenu},
			{ID: 11, Name: "Create", Code: "user:create", Type: rbac.TypeButton},
			{ID: 12, Name: "Roles", Code: "role:list", Type: rbac.TypeMenu},
		},
	}
	svc, _ := newResolver(t, repo, userRepo)

	info, err := svc.GetUserInfo(context.Background(), 5)
	if err != nil {
		t.Fatalf("get user info: %v", err)
	}
	if info.Name != "Alice" || info.Avatar != "a.png" {
		t.Fatalf("unexpected profile: %+v", info)
	}
	if len(info.Roles) != 2 {
		t.Fatalf("expected two roles, got %v", info.Roles)
	}
	if len(info.Permissions) != 3 {
		t.Fatalf("expected three deduplicated permissions, got %v", info.Permissions)
	}
	// BUTTON entries never reach the menu tree.
	for _, menu := range info.Menus {
		if menu.Name == "Create" {
			t.Fatalf("BUTTON permission leaked into menus")
		}
	}
	if len(info.Menus) != 2 {
		t.Fatalf("expected two menu roots, got %d", len(info.Menus))
	}
}

func TestGetUserInfoNoRoles(t *testing.T) {
	userRepo := &stubUserRepo{byID: map[int64]*users.User{
		5: {ID: 5, UserName: "alice"},
	}}
	svc, _ := newResolver(t, &stubRepo{}, userRepo)

	info, err := svc.GetUserInfo(context.Background(), 5)
	if err != nil {
		t.Fatalf("get user info: %v", err)
	}
	if len(info.Roles) != 0 || len(info.Permissions) != 0 || len(info.Menus) != 0 {
		t.Fatalf("expected empty seeded result, got %+v", info)
	}
	if info.Name != "alice" {
		t.Fatalf("expected userName fallback, got %q", info.Name)
	}
}

func TestFindUserPermissionsPopulatesCache(t *testing.T) {
	userRepo := &stubUserRepo{byID: map[int64]*users.User{
		5: {ID: 5, UserName: "alice", RoleIDs: []int64{2, 3}},
	}}
	repo := &stubRepo{codes: []string{"user:list", "user:create", "role:list"}}
	svc, mr := newResolver(t, repo, userRepo)
	ctx := context.Background()

	perms, err := svc.FindUserPermissions(ctx, 5)
	if err != nil {
		t.Fatalf("find permissions: %v", err)
	}
	if len(perms) != 3 {
		t.Fatalf("expected three permissions, got %v", perms)
	}
	if !mr.Exists(shared.PermissionsKey(5)) {
		t.Fatalf("expected cache entry after resolution")
	}
	if ttl := mr.TTL(shared.PermissionsKey(5)); ttl != time.Hour {
		t.Fatalf("expected session-lifetime ttl, got %v", ttl)
	}

	// A source mutation is invisible until the cache expires or is
	// explicitly invalidated.
	repo.codes = []string{"user:list"}
	again, err := svc.FindUserPermissions(ctx, 5)
	if err != nil {
		t.Fatalf("cached read: %v", err)
	}
	if len(again) != 3 {
		t.Fatalf("expected cached set, got %v", again)
	}
	if repo.codeCalls != 1 {
		t.Fatalf("expected the cache hit to skip the source, got %d calls", repo.codeCalls)
	}
}

func TestFindUserPermissionsEmptyNeverCached(t *testing.T) {
	userRepo := &stubUserRepo{byID: map[int64]*users.User{
		5: {ID: 5, UserName: "alice", RoleIDs: []int64{2}},
	}}
	repo := &stubRepo{codes: nil}
	svc, mr := newResolver(t, repo, userRepo)
	ctx := context.Background()

	perms, err := svc.FindUserPermissions(ctx, 5)
	if err != nil {
		t.Fatalf("find permissions: %v", err)
	}
	if len(perms) != 0 {
		t.Fatalf("expected empty set, got %v", perms)
	}
	if mr.Exists(shared.PermissionsKey(5)) {
		t.Fatalf("an empty resolution must not be cached")
	}

	// A subsequent role grant is visible immediately.
	repo.codes = []string{"user:list"}
	perms, err = svc.FindUserPermissions(ctx, 5)
	if err != nil {
		t.Fatalf("second resolution: %v", err)
	}
	if len(perms) != 1 {
		t.Fatalf("expected the new grant to surface, got %v", perms)
	}
}

func TestFindUserPermissionsAdminDerivedNotCached(t *testing.T) {
	userRepo := &stubUserRepo{byID: map[int64]*users.User{
		1: {ID: 1, UserName: "admin", RoleIDs: []int64{2}},
	}}
	svc, mr := newResolver(t, &stubRepo{}, userRepo)

	perms, err := svc.FindUserPermissions(context.Background(), 1)
	if err != nil {
		t.Fatalf("find permissions: %v", err)
	}
	if len(perms) != 1 || perms[0] != "*:*:*" {
		t.Fatalf("expected derived wildcard, got %v", perms)
	}
	if mr.Exists(shared.PermissionsKey(1)) {
		t.Fatalf("the administrator wildcard must never be cached")
	}
}

func TestFindUserPermissionsUnknownUser(t *testing.T) {
	svc, _ := newResolver(t, &stubRepo{}, &stubUserRepo{byID: map[int64]*users.User{}})

	perms, err := svc.FindUserPermissions(context.Background(), 404)
	if err != nil {
		t.Fatalf("find permissions: %v", err)
	}
	if len(perms) != 0 {
		t.Fatalf("expected empty set for unknown user, got %v", perms)
	}
}
