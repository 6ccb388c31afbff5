package roles

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aegis-admin/aegis/internal/shared"
)

// defaultAdministratorRoleID is the reserved id of the built-in role.
const defaultAdministratorRoleID = 1

const (
	defaultPage     = 1
	defaultPageSize = 10
	maxPageSize     = 100
)

// Invalidator drops cached permission sets for the given users after a
// role mutation changed what they may do.
type Invalidator interface {
	InvalidateUsers(ctx context.Context, userIDs []int64) error
}

// Service handles role administration business rules.
type Service struct {
	logger          *slog.Logger
	repo            Repository
	invalidator     Invalidator
	defaultRoleName string
}

// NewService builds a Service instance.
func NewService(logger *slog.Logger, repo Repository, invalidator Invalidator, defaultRoleName string) *Service {
	if defaultRoleName == "" {
		defaultRoleName = "admin"
	}
	return &Service{logger: logger, repo: repo, invalidator: invalidator, defaultRoleName: defaultRoleName}
}

func (s *Service) isDefaultAdministrator(id int64, name string) bool {
	return id == defaultAdministratorRoleID || name == s.defaultRoleName
}

// Create inserts a role with its permission associations. Name uniqueness
// among non-deleted roles is checked first; the database constraint backs
// it up against racing creates.
func (s *Service) Create(ctx context.Context, name, description string, disabled bool, permissionIDs []int64) error {
	if _, err := s.repo.FindIDByName(ctx, name); err == nil {
		return shared.Soft(shared.KindConflict, "The name already exists")
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	if err := s.repo.Create(ctx, name, description, disabled, permissionIDs); err != nil {
		if IsUniqueViolation(err) {
			return shared.Soft(shared.KindConflict, "The name already exists")
		}
		return err
	}
	return nil
}

// FindAll returns a page of non-deleted roles matching the filter.
func (s *Service) FindAll(ctx context.Context, filter ListFilter) (RoleList, error) {
	if filter.Page < 1 {
		filter.Page = defaultPage
	}
	if filter.PageSize < 1 {
		filter.PageSize = defaultPageSize
	}
	if filter.PageSize > maxPageSize {
		filter.PageSize = maxPageSize
	}
	list, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return RoleList{}, err
	}
	if list == nil {
		list = []Role{}
	}
	return RoleList{List: list, Total: total}, nil
}

// FindOne fetches a role with its permission ids.
func (s *Service) FindOne(ctx context.Context, id int64) (Role, error) {
	role, err := s.repo.FindOne(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Role{}, shared.Soft(shared.KindNotFound, "No role found")
		}
		return Role{}, err
	}
	return role, nil
}

// Update applies a patch. The default administrator role is immutable
// through this path regardless of patch content. When the patch touched
// disabled or permissions and the role has assigned users, their cached
// permission sets are invalidated.
func (s *Service) Update(ctx context.Context, id int64, patch Patch) error {
	role, err := s.repo.FindOne(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return shared.Soft(shared.KindNotFound, "No role found")
		}
		return err
	}
	if s.isDefaultAdministrator(role.ID, role.Name) {
		return shared.Soft(shared.KindNotAcceptable, "The default administrator role cannot be modified")
	}

	if patch.Name != nil && *patch.Name != role.Name {
		if existingID, err := s.repo.FindIDByName(ctx, *patch.Name); err == nil && existingID != id {
			return shared.Soft(shared.KindConflict, "The name already exists")
		} else if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}

	if err := s.repo.Update(ctx, id, patch); err != nil {
		if errors.Is(err, ErrNotFound) {
			return shared.Soft(shared.KindNotFound, "No role found")
		}
		if IsUniqueViolation(err) {
			return shared.Soft(shared.KindConflict, "The name already exists")
		}
		return err
	}

	if patch.Touches() {
		s.invalidate(ctx, []int64{id})
	}
	return nil
}

// Remove soft-deletes a role with no assigned users.
func (s *Service) Remove(ctx context.Context, id int64) error {
	return s.removeBatch(ctx, []int64{id})
}

// BatchRemove soft-deletes several roles atomically. Any role with an
// assigned user fails the whole batch; a resolved count short of the
// request means at least one id is unknown or already deleted.
func (s *Service) BatchRemove(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return shared.Soft(shared.KindNotFound, "No role found")
	}
	return s.removeBatch(ctx, ids)
}

func (s *Service) removeBatch(ctx context.Context, ids []int64) error {
	names, err := s.repo.NamesByID(ctx, ids)
	if err != nil {
		return err
	}
	for id, name := range names {
		if s.isDefaultAdministrator(id, name) {
			return shared.Soft(shared.KindNotAcceptable, "The default administrator role cannot be deleted")
		}
	}

	if err := s.repo.SoftDeleteGuarded(ctx, ids); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return shared.Soft(shared.KindNotFound, "No role found")
		case errors.Is(err, ErrInUse):
			return shared.Soft(shared.KindNotAcceptable, "The role has assigned users")
		default:
			return err
		}
	}
	return nil
}

// invalidate drops cached permission sets for users assigned to the given
// roles. Failure to invalidate is logged, not propagated: the mutation
// already committed and the cache entry still expires by TTL.
func (s *Service) invalidate(ctx context.Context, roleIDs []int64) {
	userIDs, err := s.repo.AssignedUserIDs(ctx, roleIDs)
	if err != nil {
		s.logger.Error("resolve assigned users", slog.Any("error", err))
		return
	}
	if len(userIDs) == 0 {
		return
	}
	if err := s.invalidator.InvalidateUsers(ctx, userIDs); err != nil {
		s.logger.Error("invalidate permission cache", slog.Any("error", err))
	}
}
