package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested user does not exist.
var ErrNotFound = errors.New("users: not found")

// Repository defines the read-only credential-store access this core needs.
type Repository interface {
	FindByUserName(ctx context.Context, userName string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByUserName fetches a user by unique login name.
func (r *PGRepository) FindByUserName(ctx context.Context, userName string) (*User, error) {
	return r.findOne(ctx,
		`SELECT id, user_name, password, nick_name, avatar, created_at, updated_at
		 FROM users WHERE user_name = $1 AND deleted = false`, userName)
}

// FindByID fetches a user by id.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	return r.findOne(ctx,
		`SELECT id, user_name, password, nick_name, avatar, created_at, updated_at
		 FROM users WHERE id = $1 AND deleted = false`, id)
}

func (r *PGRepository) findOne(ctx context.Context, query string, arg any) (*User, error) {
	var user User
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.UserName, &user.Password, &user.NickName, &user.Avatar,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	roleIDs, err := r.roleIDs(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.RoleIDs = roleIDs
	return &user, nil
}

func (r *PGRepository) roleIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT role_id FROM user_roles WHERE user_id = $1 ORDER BY role_id`, userID)
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

var _ Repository = (*PGRepository)(nil)
