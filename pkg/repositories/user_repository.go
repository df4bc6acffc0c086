package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/aihub/pkg/apperrors"
	"github.com/ekaya-inc/aihub/pkg/database"
	"github.com/ekaya-inc/aihub/pkg/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// CreateIfAbsent inserts the user unless a row with the same id or email exists.
	// Existing rows are never modified. Returns the stored row and whether it was created.
	CreateIfAbsent(ctx context.Context, user *models.User) (*models.User, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, name *string, locationID *uuid.UUID) (*models.User, error)
	SetRole(ctx context.Context, email, role string) (*models.User, error)
}

type userRepository struct {
	db *database.DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *database.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, name, location_id, role, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.LocationID, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) CreateIfAbsent(ctx context.Context, user *models.User) (*models.User, bool, error) {
	q := r.db.Conn(ctx)

	created, err := scanUser(q.QueryRow(ctx, `
		INSERT INTO users (id, email, name, location_id, role)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT DO NOTHING
		RETURNING `+userColumns,
		user.ID, user.Email, user.Name, user.LocationID, user.Role))
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}

	existing, err := r.GetByID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// The email belongs to a different identity.
			return nil, false, fmt.Errorf("email %s already registered: %w", user.Email, apperrors.ErrConflict)
		}
		return nil, false, err
	}
	return existing, false, nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(r.db.Conn(ctx).QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.db.Conn(ctx).QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id uuid.UUID, name *string, locationID *uuid.UUID) (*models.User, error) {
	u, err := scanUser(r.db.Conn(ctx).QueryRow(ctx, `
		UPDATE users
		SET name = COALESCE($2, name),
		    location_id = COALESCE($3, location_id),
		    updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		id, name, locationID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		if database.IsPgError(err, database.ForeignKeyViolation) {
			return nil, apperrors.NewValidationError("location_id", "references an unknown location")
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return u, nil
}

func (r *userRepository) SetRole(ctx context.Context, email, role string) (*models.User, error) {
	u, err := scanUser(r.db.Conn(ctx).QueryRow(ctx, `
		UPDATE users SET role = $2, updated_at = now()
		WHERE lower(email) = lower($1)
		RETURNING `+userColumns,
		email, role))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set user role: %w", err)
	}
	return u, nil
}

var _ UserRepository = (*userRepository)(nil)
