package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/daap14/useradmin/internal/database"
	"github.com/daap14/useradmin/internal/rbac"
)

// PostgresRepository implements UserRepository on top of a pgx connection.
type PostgresRepository struct {
	db database.DBTX
}

// NewRepository creates a new UserRepository backed by the given connection.
func NewRepository(db database.DBTX) UserRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, email, first_name, last_name, role, api_key_prefix, api_key_hash, created_at, updated_at`

func scanUser(row pgx.Row, u *User) error {
	return row.Scan(
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Role,
		&u.ApiKeyPrefix, &u.ApiKeyHash,
		&u.CreatedAt, &u.UpdatedAt,
	)
}

// Create inserts a new user record.
func (r *PostgresRepository) Create(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (email, first_name, last_name, role, api_key_prefix, api_key_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		u.Email,
		u.FirstName,
		u.LastName,
		u.Role,
		u.ApiKeyPrefix,
		u.ApiKeyHash,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

// GetByID retrieves a single user by its UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`

	var u User
	if err := scanUser(r.db.QueryRow(ctx, query, id), &u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}

	return &u, nil
}

// GetByEmail retrieves a single user by email.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1`

	var u User
	if err := scanUser(r.db.QueryRow(ctx, query, email), &u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("querying user by email: %w", err)
	}

	return &u, nil
}

// FindByPrefix returns users matching the given API key prefix.
func (r *PostgresRepository) FindByPrefix(ctx context.Context, prefix string) ([]User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE api_key_prefix = $1`

	return r.list(ctx, query, prefix)
}

// List retrieves all users ordered by creation time.
func (r *PostgresRepository) List(ctx context.Context) ([]User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at ASC`

	return r.list(ctx, query)
}

// UpdateRole sets the global role of a user and returns the updated row.
func (r *PostgresRepository) UpdateRole(ctx context.Context, id uuid.UUID, role rbac.Role) (*User, error) {
	query := `
		UPDATE users
		SET role = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	var u User
	if err := scanUser(r.db.QueryRow(ctx, query, id, role), &u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("updating user role: %w", err)
	}

	return &u, nil
}

// Delete removes a user in a single transaction. When transferID is set, the
// resources of the user's personal project are moved to that project first;
// otherwise they are dropped together with the personal project (FK cascade).
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID, transferID *uuid.UUID) error {
	return database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		if transferID != nil {
			_, err := tx.Exec(ctx, `
				UPDATE resources
				SET project_id = $2
				WHERE project_id IN (
					SELECT id FROM projects WHERE owner_id = $1 AND type = 'personal'
				)`, id, *transferID)
			if err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == "23503" {
					return ErrTransferTargetNotFound
				}
				return fmt.Errorf("transferring resources: %w", err)
			}
		}

		result, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("deleting user: %w", err)
		}
		if result.RowsAffected() == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}

// CountAll returns the total number of users in the table.
func (r *PostgresRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]User, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user rows: %w", err)
	}

	if users == nil {
		users = []User{}
	}

	return users, nil
}
