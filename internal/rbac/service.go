package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aegis-admin/aegis/internal/users"
)

// ErrUserNotFound indicates a resolution request for a user that does not
// exist. On the userinfo path this is a hard fault: the caller held a
// validated session, so a missing user is a data-integrity anomaly.
var ErrUserNotFound = errors.New("rbac: user not found")

// Service resolves effective permissions and menus.
type Service struct {
	logger          *slog.Logger
	repo            Repository
	users           *users.Service
	cache           *Cache
	superPermission string
}

// NewService constructs a Service. superPermission is the wildcard granted
// to the default administrator.
func NewService(logger *slog.Logger, repo Repository, userSvc *users.Service, cache *Cache, superPermission string) *Service {
	if superPermission == "" {
		superPermission = "*:*:*"
	}
	return &Service{logger: logger, repo: repo, users: userSvc, cache: cache, superPermission: superPermission}
}

// SuperPermission returns the configured wildcard permission code.
func (s *Service) SuperPermission() string {
	return s.superPermission
}

// GetUserInfo resolves the user's profile view: role names, effective
// permission codes and the menu tree. The default administrator receives
// the wildcard permission regardless of role grants, but roles and menus
// still derive from whatever roles are assigned.
func (s *Service) GetUserInfo(ctx context.Context, userID int64) (UserInfo, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return UserInfo{}, fmt.Errorf("%w: userId %d", ErrUserNotFound, userID)
		}
		return UserInfo{}, err
	}

	info := UserInfo{
		Name:        user.NickName,
		Avatar:      user.Avatar,
		Roles:       []string{},
		Permissions: []string{},
		Menus:       []*MenuNode{},
	}
	if info.Name == "" {
		info.Name = user.UserName
	}

	isAdmin := s.users.IsDefaultAdministrator(user.UserName)
	if isAdmin {
		info.Permissions = []string{s.superPermission}
	}
	if len(user.RoleIDs) == 0 {
		return info, nil
	}

	grants, err := s.repo.FindRolesByID(ctx, user.RoleIDs)
	if err != nil {
		return UserInfo{}, err
	}
	if len(grants) == 0 {
		return info, nil
	}
	for _, grant := range grants {
		info.Roles = append(info.Roles, grant.Name)
	}

	permissionIDs := aggregatePermissionIDs(grants)
	if len(permissionIDs) == 0 {
		return info, nil
	}

	perms, err := s.repo.FindPermissionsByID(ctx, permissionIDs)
	if err != nil {
		return UserInfo{}, err
	}
	if len(perms) == 0 {
		return info, nil
	}

	if !isAdmin {
		codes := make([]string, len(perms))
		for i, p := range perms {
			codes[i] = p.Code
		}
		info.Permissions = codes
	}

	info.Menus = BuildMenuTree(perms)
	return info, nil
}

// FindUserPermissions returns the user's effective permission codes through
// the read-through cache. A cache hit short-circuits all source work. An
// empty resolution is returned but never cached, so a later role grant is
// not masked. The administrator wildcard is derived, never cached.
func (s *Service) FindUserPermissions(ctx context.Context, userID int64) ([]string, error) {
	cached, err := s.cache.Read(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cached) > 0 {
		return cached, nil
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return []string{}, nil
		}
		return nil, err
	}
	if len(user.RoleIDs) == 0 {
		return []string{}, nil
	}

	if s.users.IsDefaultAdministrator(user.UserName) {
		return []string{s.superPermission}, nil
	}

	codes, err := s.repo.FindPermissionCodesByRoleID(ctx, user.RoleIDs)
	if err != nil {
		return nil, err
	}
	if len(codes) == 0 {
		return []string{}, nil
	}

	if err := s.cache.Populate(ctx, userID, codes); err != nil {
		// Resolution succeeded; a failed cache write only costs the next
		// call a recomputation.
		s.logger.Warn("permission cache populate", slog.Int64("userId", userID), slog.Any("error", err))
	}
	return codes, nil
}

// aggregatePermissionIDs flattens and deduplicates permission ids across
// roles, preserving first-seen order.
func aggregatePermissionIDs(grants []RoleGrant) []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, grant := range grants {
		for _, id := range grant.PermissionIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}
