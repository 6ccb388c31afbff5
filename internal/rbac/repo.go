package rbac

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines the role→permission lookups resolution needs.
type Repository interface {
	// FindRolesByID returns the enabled, non-deleted roles among ids,
	// each with its permission ids.
	FindRolesByID(ctx context.Context, ids []int64) ([]RoleGrant, error)
	// FindPermissionsByID resolves permission records by id.
	FindPermissionsByID(ctx context.Context, ids []int64) ([]Permission, error)
	// FindPermissionCodesByRoleID returns the distinct permission codes
	// reachable from the given roles, skipping disabled and deleted roles.
	FindPermissionCodesByRoleID(ctx context.Context, roleIDs []int64) ([]string, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindRolesByID implements Repository.
func (r *PGRepository) FindRolesByID(ctx context.Context, ids []int64) ([]RoleGrant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.name, rp.permission_id
		 FROM roles r
		 LEFT JOIN role_permissions rp ON rp.role_id = r.id
		 WHERE r.id = ANY($1) AND r.disabled = false AND r.deleted = false
		 ORDER BY r.id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []RoleGrant
	index := make(map[int64]int)
	for rows.Next() {
		var (
			roleID int64
			name   string
			permID *int64
		)
		if err := rows.Scan(&roleID, &name, &permID); err != nil {
			return nil, err
		}
		i, ok := index[roleID]
		if !ok {
			i = len(grants)
			index[roleID] = i
			grants = append(grants, RoleGrant{Name: name})
		}
		if permID != nil {
			grants[i].PermissionIDs = append(grants[i].PermissionIDs, *permID)
		}
	}
	return grants, rows.Err()
}

// FindPermissionsByID implements Repository.
func (r *PGRepository) FindPermissionsByID(ctx context.Context, ids []int64) ([]Permission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, parent_id, name, permission, type, path, icon, sort
		 FROM permissions WHERE id = ANY($1) ORDER BY sort, id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.ParentID, &p.Name, &p.Code, &p.Type, &p.Path, &p.Icon, &p.Sort); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// FindPermissionCodesByRoleID implements Repository.
func (r *PGRepository) FindPermissionCodesByRoleID(ctx context.Context, roleIDs []int64) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT p.permission
		 FROM role_permissions rp
		 JOIN roles r ON r.id = rp.role_id
		 JOIN permissions p ON p.id = rp.permission_id
		 WHERE rp.role_id = ANY($1) AND r.disabled = false AND r.deleted = false`, roleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
