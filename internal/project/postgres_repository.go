package project

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/daap14/useradmin/internal/database"
)

// PostgresRepository implements Repository on top of a pgx connection.
type PostgresRepository struct {
	db database.DBTX
}

// NewRepository creates a new Repository backed by the given connection.
func NewRepository(db database.DBTX) Repository {
	return &PostgresRepository{db: db}
}

const projectColumns = `id, name, type, owner_id, created_at, updated_at`

// GetByID retrieves a single project by its UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Project, error) {
	query := `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE id = $1`

	var p Project
	err := r.db.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Type, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("querying project: %w", err)
	}

	return &p, nil
}

// List retrieves all projects, personal ones first, then by name.
func (r *PostgresRepository) List(ctx context.Context) ([]Project, error) {
	query := `
		SELECT ` + projectColumns + `
		FROM projects
		ORDER BY type ASC, name ASC`

	return r.query(ctx, query)
}

// ListTransferCandidates returns every project except the personal project
// owned by excludingOwnerID, in the same order as List.
func (r *PostgresRepository) ListTransferCandidates(ctx context.Context, excludingOwnerID uuid.UUID) ([]Project, error) {
	query := `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE NOT (type = 'personal' AND owner_id = $1)
		ORDER BY type ASC, name ASC`

	return r.query(ctx, query, excludingOwnerID)
}

// CreatePersonal inserts the personal project of the given owner.
func (r *PostgresRepository) CreatePersonal(ctx context.Context, owner Owner) (*Project, error) {
	query := `
		INSERT INTO projects (name, type, owner_id)
		VALUES ($1, 'personal', $2)
		RETURNING ` + projectColumns

	var p Project
	err := r.db.QueryRow(ctx, query, PersonalProjectName(owner), owner.ID).
		Scan(&p.ID, &p.Name, &p.Type, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrPersonalProjectExists
		}
		return nil, fmt.Errorf("inserting personal project: %w", err)
	}

	return &p, nil
}

// ListOwnersWithoutPersonal returns users that do not own a personal project yet.
func (r *PostgresRepository) ListOwnersWithoutPersonal(ctx context.Context) ([]Owner, error) {
	query := `
		SELECT u.id, u.email, u.first_name, u.last_name
		FROM users u
		LEFT JOIN projects p ON p.owner_id = u.id AND p.type = 'personal'
		WHERE p.id IS NULL
		ORDER BY u.created_at ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing owners without personal project: %w", err)
	}
	defer rows.Close()

	owners := []Owner{}
	for rows.Next() {
		var o Owner
		if err := rows.Scan(&o.ID, &o.Email, &o.FirstName, &o.LastName); err != nil {
			return nil, fmt.Errorf("scanning owner row: %w", err)
		}
		owners = append(owners, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating owner rows: %w", err)
	}

	return owners, nil
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]Project, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		err := rows.Scan(&p.ID, &p.Name, &p.Type, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning project row: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating project rows: %w", err)
	}

	if projects == nil {
		projects = []Project{}
	}

	return projects, nil
}
