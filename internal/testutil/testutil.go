// Package testutil holds helpers shared by integration and unit tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/skillswap/skillswap/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 731731

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// MigrationFiles returns the up or down migration paths in apply order.
// Down migrations are returned newest first.
func MigrationFiles(direction string) ([]string, error) {
	root, err := ProjectRoot()
	if err != nil {
		return nil, err
	}

	paths, err := filepath.Glob(filepath.Join(root, "migrations", "*."+direction+".sql"))
	if err != nil {
		return nil, fmt.Errorf("glob migrations: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no %s migrations found", direction)
	}

	sort.Strings(paths)
	if direction == "down" {
		for i, j := 0, len(paths)-1; i < j; i, j = i+1, j-1 {
			paths[i], paths[j] = paths[j], paths[i]
		}
	}
	return paths, nil
}

// ResetSchema applies every down migration and then every up migration.
func ResetSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, direction := range []string{"down", "up"} {
		paths, err := MigrationFiles(direction)
		if err != nil {
			return err
		}
		for _, path := range paths {
			sqlText, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s migration: %w", direction, err)
			}
			if _, err := pool.Exec(ctx, string(sqlText)); err != nil {
				return fmt.Errorf("apply %s migration %s: %w", direction, filepath.Base(path), err)
			}
		}
	}
	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestProfile builds a profile with a fresh ULID.
// Skills are written as "teach->learn", e.g. NewTestProfile(t, "a@x.com", "Spanish->Guitar").
func NewTestProfile(t testing.TB, email, skills string) *model.Profile {
	t.Helper()
	teach, learn, ok := strings.Cut(skills, "->")
	if !ok {
		t.Fatalf("skills %q must look like teach->learn", skills)
	}
	return &model.Profile{
		ID:         ulid.Make().String(),
		Email:      email,
		TeachSkill: strings.TrimSpace(teach),
		LearnSkill: strings.TrimSpace(learn),
		CreatedAt:  time.Now().UTC(),
	}
}

// NewTestPool builds profiles whose CreatedAt increases with slice position.
func NewTestPool(t testing.TB, entries ...[2]string) []*model.Profile {
	t.Helper()
	base := time.Now().UTC().Add(-time.Hour)
	pool := make([]*model.Profile, 0, len(entries))
	for i, e := range entries {
		p := NewTestProfile(t, e[0], e[1])
		p.CreatedAt = base.Add(time.Duration(i) * time.Second)
		pool = append(pool, p)
	}
	return pool
}

// UniqueEmail generates a unique address for tests.
func UniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@example.com", prefix, time.Now().UnixNano())
}
