package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/lib/pq"
	"github.com/oklog/ulid/v2"

	"github.com/skillswap/skillswap/internal/model"
)

// seedProfile is one entry of the profiles file.
type seedProfile struct {
	Email      string `json:"email"`
	TeachSkill string `json:"teach_skill"`
	LearnSkill string `json:"learn_skill"`
}

var errNoProfiles = errors.New("no profiles to load")

// decodeProfiles reads a JSON array of profiles. Unknown fields are rejected
// so typos like "teach" surface instead of loading blank skills.
func decodeProfiles(r io.Reader) ([]seedProfile, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var seeds []seedProfile
	if err := dec.Decode(&seeds); err != nil {
		return nil, fmt.Errorf("failed to decode profiles: %w", err)
	}
	if len(seeds) == 0 {
		return nil, errNoProfiles
	}
	return seeds, nil
}

// buildProfiles validates every entry and assigns ULIDs. created_at steps by
// one millisecond per row so registration order matches file order.
func buildProfiles(seeds []seedProfile, start time.Time) ([]*model.Profile, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	profiles := make([]*model.Profile, 0, len(seeds))

	for i, s := range seeds {
		p := &model.Profile{
			Email:      s.Email,
			TeachSkill: s.TeachSkill,
			LearnSkill: s.LearnSkill,
			CreatedAt:  start.Add(time.Duration(i) * time.Millisecond),
		}
		p.Normalize()
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("profile %d (%s): %w", i, p.Email, err)
		}

		id, err := ulid.New(ulid.Timestamp(p.CreatedAt), entropy)
		if err != nil {
			return nil, fmt.Errorf("failed to generate id: %w", err)
		}
		p.ID = id.String()
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// loadProfiles copies profiles in one transaction using COPY FROM STDIN.
func loadProfiles(ctx context.Context, db *sql.DB, profiles []*model.Profile, truncate bool) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if truncate {
		if _, err := tx.ExecContext(ctx, `TRUNCATE TABLE profiles`); err != nil {
			return fmt.Errorf("failed to truncate profiles: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("profiles", "id", "email", "teach_skill", "learn_skill", "created_at"))
	if err != nil {
		return fmt.Errorf("failed to prepare copy: %w", err)
	}

	for _, p := range profiles {
		if _, err := stmt.ExecContext(ctx, p.ID, p.Email, p.TeachSkill, p.LearnSkill, p.CreatedAt); err != nil {
			_ = stmt.Close()
			return fmt.Errorf("failed to copy profile %s: %w", p.ID, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return fmt.Errorf("failed to flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("failed to close copy: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// migrationFiles lists dir/*.up.sql in apply order.
func migrationFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no migrations found in %s", dir)
	}
	sort.Strings(files)
	return files, nil
}

// applyMigrations runs each file in its own transaction. The files use
// IF NOT EXISTS, so reapplying is harmless.
func applyMigrations(ctx context.Context, db *sql.DB, files []string) error {
	for _, path := range files {
		body, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %s: %w", filepath.Base(path), err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %s: commit: %w", filepath.Base(path), err)
		}
	}
	return nil
}

// sampleProfiles is a small pool for local development.
func sampleProfiles() []seedProfile {
	return []seedProfile{
		{"ana@example.com", "Spanish", "Guitar"},
		{"ben@example.com", "Guitar", "Spanish"},
		{"chen@example.com", "Mandarin", "Python programming"},
		{"dara@example.com", "Python", "Mandarin Chinese"},
		{"eli@example.com", "Watercolor painting", "Photography"},
		{"fatima@example.com", "Photography basics", "Painting"},
		{"gus@example.com", "Bread baking", "Chess"},
		{"hana@example.com", "Chess openings", "Baking"},
		{"ivan@example.com", "Public speaking", "SQL"},
		{"jo@example.com", "SQL and databases", "Public speaking"},
	}
}
