package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"

	"github.com/skillswap/skillswap/internal/model"
)

// ErrProfileNotFound is returned when a profile lookup has no result.
var ErrProfileNotFound = errors.New("profile not found")

// CreateProfile appends a profile. The ID is generated when empty and
// CreatedAt is filled from the database clock.
// There is no uniqueness check on email.
func (r *Repository) CreateProfile(ctx context.Context, profile *model.Profile) error {
	if profile.ID == "" {
		profile.ID = ulid.Make().String()
	}

	query := `
		INSERT INTO profiles (id, email, teach_skill, learn_skill)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	err := r.pool.QueryRow(ctx, query,
		profile.ID,
		profile.Email,
		profile.TeachSkill,
		profile.LearnSkill,
	).Scan(&profile.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	return nil
}

// GetProfileByID retrieves a single profile.
func (r *Repository) GetProfileByID(ctx context.Context, id string) (*model.Profile, error) {
	query := `
		SELECT id, email, teach_skill, learn_skill, created_at
		FROM profiles
		WHERE id = $1
	`

	var p model.Profile
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Email,
		&p.TeachSkill,
		&p.LearnSkill,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &p, nil
}

// ListProfiles returns every profile in registration order.
func (r *Repository) ListProfiles(ctx context.Context) ([]*model.Profile, error) {
	query := `
		SELECT id, email, teach_skill, learn_skill, created_at
		FROM profiles
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]*model.Profile, 0)
	for rows.Next() {
		var p model.Profile
		if err := rows.Scan(&p.ID, &p.Email, &p.TeachSkill, &p.LearnSkill, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profiles: %w", err)
	}

	return profiles, nil
}

// CountProfiles returns the number of stored profiles.
func (r *Repository) CountProfiles(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count profiles: %w", err)
	}
	return n, nil
}
