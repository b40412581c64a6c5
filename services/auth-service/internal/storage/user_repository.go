package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/mimb-immigration/platform/libs/db"
)

var ErrNotFound = errors.New("user not found")

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

type User struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	Role         string
}

type UserRepository struct {
	pool *db.Pool
}

func NewUserRepository(pool *db.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts the user and their role row in one transaction. The role
// lives in user_roles, which the admin panel queries through has_role.
func (r *UserRepository) Create(ctx context.Context, u User) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO users (id, email, full_name, password_hash)
		VALUES ($1, $2, NULLIF($3, ''), $4)
	`, u.ID, u.Email, u.FullName, u.PasswordHash)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO user_roles (user_id, role)
		VALUES ($1, $2)
	`, u.ID, u.Role)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `
		SELECT u.id, u.email, COALESCE(u.full_name, ''), u.password_hash, COALESCE(ur.role, 'user')
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		WHERE u.email = $1
	`, email))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (User, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `
		SELECT u.id, u.email, COALESCE(u.full_name, ''), u.password_hash, COALESCE(ur.role, 'user')
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		WHERE u.id = $1
	`, id))
}

func (r *UserRepository) scanOne(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

// HasRole mirrors the has_role check the admin front end relies on.
func (r *UserRepository) HasRole(ctx context.Context, userID, role string) (bool, error) {
	var found bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM user_roles WHERE user_id = $1 AND role = $2)
	`, userID, role).Scan(&found)
	return found, err
}
