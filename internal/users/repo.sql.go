package users

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sentinel-iam/sentinel/internal/platform/db"
)

// Sentinel errors surfaced by the repository.
var (
	ErrNotFound = errors.New("users: not found")
	// ErrAlreadyExists indicates a duplicate username.
	ErrAlreadyExists = errors.New("users: username already exists")
	// ErrBootstrapConflict indicates a second bootstrap insert lost the
	// first-insert race. Only one row may ever carry is_bootstrap.
	ErrBootstrapConflict = errors.New("users: bootstrap user already exists")
)

const uniqueViolation = "23505"

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ RepositoryPort = (*Repository)(nil)

// Count returns the number of user records. The bootstrap decision reads
// this fresh on every attempt.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// FindByID fetches a user by ID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.findOne(ctx, `SELECT id, username, name, password_hash, is_active, is_bootstrap, created_at, updated_at FROM users WHERE id = $1`, id)
}

// FindByUsername fetches a user by username.
func (r *Repository) FindByUsername(ctx context.Context, username string) (*User, error) {
	return r.findOne(ctx, `SELECT id, username, name, password_hash, is_active, is_bootstrap, created_at, updated_at FROM users WHERE username = $1`, username)
}

func (r *Repository) findOne(ctx context.Context, query string, arg any) (*User, error) {
	var user User
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.Name, &user.PasswordHash,
		&user.IsActive, &user.IsBootstrap, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// List returns all users ordered by creation time.
func (r *Repository) List(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, username, name, password_hash, is_active, is_bootstrap, created_at, updated_at FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Username, &user.Name, &user.PasswordHash, &user.IsActive, &user.IsBootstrap, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// Create inserts the user and its initial roles in one transaction. The
// partial unique index users_bootstrap_one makes concurrent bootstrap
// inserts collide: the first commit wins, the second fails with a
// uniqueness violation mapped to ErrBootstrapConflict.
func (r *Repository) Create(ctx context.Context, user User, roles []string) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO users (id, username, name, password_hash, is_active, is_bootstrap, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())`,
			user.ID, user.Username, user.Name, user.PasswordHash, user.IsActive, user.IsBootstrap,
		)
		if err != nil {
			return err
		}
		for _, role := range roles {
			if _, err := tx.Exec(ctx,
				`INSERT INTO user_roles (user_id, role, created_at) VALUES ($1, $2, NOW()) ON CONFLICT DO NOTHING`,
				user.ID, role,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if pgErr.ConstraintName == "users_bootstrap_one" {
				return ErrBootstrapConflict
			}
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Deactivate disables the account. Returns ErrNotFound if no row matched.
func (r *Repository) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RolesFor returns the role names assigned to an active user. A
// deactivated account resolves to no roles, so its outstanding tokens
// lose every permission on the next check.
func (r *Repository) RolesFor(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT ur.role FROM user_roles ur JOIN users u ON u.id = ur.user_id WHERE ur.user_id = $1 AND u.is_active ORDER BY ur.role`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

// AssignRole grants a role, reporting whether a new row was written.
func (r *Repository) AssignRole(ctx context.Context, userID uuid.UUID, role string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO user_roles (user_id, role, created_at) VALUES ($1, $2, NOW()) ON CONFLICT DO NOTHING`,
		userID, role,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RemoveRole revokes a role, reporting whether a row was removed.
func (r *Repository) RemoveRole(ctx context.Context, userID uuid.UUID, role string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role = $2`, userID, role)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
