package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/prompt-gallery/internal/model"
)

const userColumns = `id, name, email, password, role, created_at`

type UserRepository struct {
	db *Database
}

func NewUserRepository(db *Database) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts user. Password must already be hashed. An empty ID or role
// gets a generated id and the plain user role.
func (r *UserRepository) Create(ctx context.Context, user *model.User) (*model.User, error) {
	u := *user
	if u.ID == "" {
		u.ID = NewUserID()
	}
	if u.Role == "" {
		u.Role = model.UserRoleUser
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	query := r.db.Rebind(`INSERT INTO users (id, name, email, password, role, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query, u.ID, u.Name, u.Email, u.Password, u.Role, u.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &u, nil
}

// EnsureAdmin creates the admin account or promotes an existing account with
// the same email. An existing password is left untouched.
func (r *UserRepository) EnsureAdmin(ctx context.Context, email, passwordHash, name string) (*model.User, error) {
	query := r.db.Rebind(`
		INSERT INTO users (id, name, email, password, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET role = excluded.role
	`)
	_, err := r.db.ExecContext(ctx, query, NewUserID(), name, email, passwordHash, model.UserRoleAdmin, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to create admin user: %w", err)
	}

	return r.FindByEmail(ctx, email)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE email = ?`)
	err := r.db.GetContext(ctx, &user, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) List(ctx context.Context) ([]model.User, error) {
	var users []model.User
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func NewUserID() string {
	return "user-" + uuid.NewString()
}
