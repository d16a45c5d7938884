package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"docflow/backend/pkg/models"
)

const userColumns = `id, email, name, role, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser retrieves a user by id.
func (s *PostgresStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, wrap("get user", err)
	}
	return u, nil
}

// GetUserByEmail retrieves a user by e-mail address.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, wrap("get user by email", err)
	}
	return u, nil
}

// CreateUser stores a new user.
func (s *PostgresStore) CreateUser(ctx context.Context, u *models.User) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO users (id, email, name, role) VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at`,
		u.ID, u.Email, u.Name, u.Role).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return wrap("create user", err)
	}
	return nil
}

// ListUsersByRole returns users having any of roles.
func (s *PostgresStore) ListUsersByRole(ctx context.Context, roles ...models.Role) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if len(roles) > 0 {
		names := make([]string, len(roles))
		for i, r := range roles {
			names[i] = string(r)
		}
		query += ` WHERE role = ANY($1)`
		args = append(args, names)
	}
	query += ` ORDER BY email`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap("list users", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, wrap("scan user", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
