package roles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound indicates a missing or already-deleted role.
	ErrNotFound = errors.New("roles: not found")
	// ErrInUse indicates the role still has non-deleted users assigned.
	ErrInUse = errors.New("roles: role has assigned users")
)

// Repository defines persistence operations for role administration.
type Repository interface {
	FindIDByName(ctx context.Context, name string) (int64, error)
	Create(ctx context.Context, name, description string, disabled bool, permissionIDs []int64) error
	List(ctx context.Context, filter ListFilter) ([]Role, int64, error)
	FindOne(ctx context.Context, id int64) (Role, error)
	Update(ctx context.Context, id int64, patch Patch) error
	AssignedUserIDs(ctx context.Context, roleIDs []int64) ([]int64, error)
	NamesByID(ctx context.Context, ids []int64) (map[int64]string, error)
	SoftDeleteGuarded(ctx context.Context, ids []int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindIDByName returns the id of the non-deleted role with the exact name.
func (r *PGRepository) FindIDByName(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`SELECT id FROM roles WHERE name = $1 AND deleted = false`, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Create inserts a role and its permission associations atomically.
func (r *PGRepository) Create(ctx context.Context, name, description string, disabled bool, permissionIDs []int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var roleID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO roles (name, description, disabled, deleted, created_at, updated_at)
		 VALUES ($1, $2, $3, false, now(), now()) RETURNING id`,
		name, description, disabled).Scan(&roleID)
	if err != nil {
		return err
	}
	if err := insertPermissions(ctx, tx, roleID, permissionIDs); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// List returns the filtered, paged roles and the unpaged total. Soft-deleted
// roles never appear.
func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]Role, int64, error) {
	where := []string{"deleted = false"}
	args := []any{}
	n := 0
	arg := func(v any) string {
		n++
		args = append(args, v)
		return fmt.Sprintf("$%d", n)
	}

	if filter.Disabled != nil {
		where = append(where, "disabled = "+arg(*filter.Disabled))
	}
	if filter.Keyword != "" {
		where = append(where, "name ILIKE '%' || "+arg(filter.Keyword)+" || '%'")
	}
	if filter.BeginTime != nil {
		where = append(where, "created_at >= "+arg(*filter.BeginTime))
	}
	if filter.EndTime != nil {
		where = append(where, "created_at <= "+arg(*filter.EndTime))
	}
	clause := strings.Join(where, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM roles WHERE "+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}
	query := fmt.Sprintf(
		`SELECT id, name, description, disabled, created_at, updated_at
		 FROM roles WHERE %s ORDER BY created_at %s LIMIT %s OFFSET %s`,
		clause, direction, arg(filter.PageSize), arg((filter.Page-1)*filter.PageSize))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.Disabled, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, role)
	}
	return list, total, rows.Err()
}

// FindOne fetches a non-deleted role with its permission ids.
func (r *PGRepository) FindOne(ctx context.Context, id int64) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description, disabled, created_at, updated_at
		 FROM roles WHERE id = $1 AND deleted = false`, id).Scan(
		&role.ID, &role.Name, &role.Description, &role.Disabled, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, ErrNotFound
	}
	if err != nil {
		return Role{}, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT permission_id FROM role_permissions WHERE role_id = $1 ORDER BY permission_id`, id)
	if err != nil {
		return Role{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var permID int64
		if err := rows.Scan(&permID); err != nil {
			return Role{}, err
		}
		role.PermissionIDs = append(role.PermissionIDs, permID)
	}
	return role, rows.Err()
}

// Update applies the patch. Scalar fields merge; a present Permissions
// field replaces the whole association set within the same transaction.
func (r *PGRepository) Update(ctx context.Context, id int64, patch Patch) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE roles SET
		   name = COALESCE($2, name),
		   description = COALESCE($3, description),
		   disabled = COALESCE($4, disabled),
		   updated_at = now()
		 WHERE id = $1 AND deleted = false`,
		id, patch.Name, patch.Description, patch.Disabled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if patch.Permissions != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
			return err
		}
		if err := insertPermissions(ctx, tx, id, *patch.Permissions); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// AssignedUserIDs returns ids of non-deleted users assigned to any of the
// given roles.
func (r *PGRepository) AssignedUserIDs(ctx context.Context, roleIDs []int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT u.id
		 FROM user_roles ur
		 JOIN users u ON u.id = ur.user_id
		 WHERE ur.role_id = ANY($1) AND u.deleted = false`, roleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// NamesByID maps role id to name for the non-deleted roles among ids.
func (r *PGRepository) NamesByID(ctx context.Context, ids []int64) (map[int64]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name FROM roles WHERE id = ANY($1) AND deleted = false`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make(map[int64]string, len(ids))
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}
	return names, rows.Err()
}

// SoftDeleteGuarded soft-deletes the roles, with the existence and
// assigned-user checks folded into the same transaction so the guard and
// the delete cannot interleave with a racing assignment.
func (r *PGRepository) SoftDeleteGuarded(ctx context.Context, ids []int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var matched int64
	if err := tx.QueryRow(ctx,
		`SELECT count(*) FROM roles WHERE id = ANY($1) AND deleted = false`, ids).Scan(&matched); err != nil {
		return err
	}
	if matched != int64(len(ids)) {
		return ErrNotFound
	}

	var assigned int64
	if err := tx.QueryRow(ctx,
		`SELECT count(*)
		 FROM user_roles ur
		 JOIN users u ON u.id = ur.user_id
		 WHERE ur.role_id = ANY($1) AND u.deleted = false`, ids).Scan(&assigned); err != nil {
		return err
	}
	if assigned > 0 {
		return ErrInUse
	}

	if _, err := tx.Exec(ctx,
		`UPDATE roles SET deleted = true, updated_at = now() WHERE id = ANY($1)`, ids); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertPermissions(ctx context.Context, tx pgx.Tx, roleID int64, permissionIDs []int64) error {
	for _, permID := range permissionIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)`,
			roleID, permID); err != nil {
			return err
		}
	}
	return nil
}

// IsUniqueViolation reports whether err is a unique-constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ Repository = (*PGRepository)(nil)
