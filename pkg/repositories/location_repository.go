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

// LocationRepository defines the interface for location data access.
type LocationRepository interface {
	List(ctx context.Context) ([]*models.Location, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Location, error)
	Create(ctx context.Context, loc *models.Location) error
	// Upsert creates the location or updates its headcount when the name exists.
	Upsert(ctx context.Context, loc *models.Location) error
}

type locationRepository struct {
	db *database.DB
}

// NewLocationRepository creates a new location repository.
func NewLocationRepository(db *database.DB) LocationRepository {
	return &locationRepository{db: db}
}

func (r *locationRepository) List(ctx context.Context) ([]*models.Location, error) {
	rows, err := r.db.Conn(ctx).Query(ctx,
		`SELECT id, name, total_people, created_at FROM locations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	defer rows.Close()

	locations := make([]*models.Location, 0)
	for rows.Next() {
		var l models.Location
		if err := rows.Scan(&l.ID, &l.Name, &l.TotalPeople, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locations = append(locations, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating locations: %w", err)
	}
	return locations, nil
}

func (r *locationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	var l models.Location
	err := r.db.Conn(ctx).QueryRow(ctx,
		`SELECT id, name, total_people, created_at FROM locations WHERE id = $1`, id).
		Scan(&l.ID, &l.Name, &l.TotalPeople, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get location: %w", err)
	}
	return &l, nil
}

func (r *locationRepository) Create(ctx context.Context, loc *models.Location) error {
	err := r.db.Conn(ctx).QueryRow(ctx, `
		INSERT INTO locations (name, total_people) VALUES ($1, $2)
		RETURNING id, created_at`,
		loc.Name, loc.TotalPeople).Scan(&loc.ID, &loc.CreatedAt)
	if err != nil {
		if database.IsPgError(err, database.UniqueViolation) {
			return fmt.Errorf("location %q already exists: %w", loc.Name, apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to create location: %w", err)
	}
	return nil
}

func (r *locationRepository) Upsert(ctx context.Context, loc *models.Location) error {
	err := r.db.Conn(ctx).QueryRow(ctx, `
		INSERT INTO locations (name, total_people) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET total_people = EXCLUDED.total_people
		RETURNING id, created_at`,
		loc.Name, loc.TotalPeople).Scan(&loc.ID, &loc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert location: %w", err)
	}
	return nil
}

var _ LocationRepository = (*locationRepository)(nil)
