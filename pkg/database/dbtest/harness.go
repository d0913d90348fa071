// Package dbtest provides a shared Postgres testcontainer for
// integration tests: one container per test binary run, with each
// test getting its own schema for isolation.
package dbtest

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/zoom-oss/rtms-ingestion/pkg/database"
)

var (
	sharedDSN    string
	containerOnce sync.Once
	containerErr  error
)

// Pool starts (once per test binary) a shared Postgres testcontainer,
// creates a fresh schema for this test, runs the embedded migrations
// into it, and returns a pool scoped to that schema via search_path.
// The schema is dropped automatically via t.Cleanup.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	dsn := getOrCreateSharedContainer(t)
	schema := generateSchemaName(t)

	admin, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer admin.Close()

	_, err = admin.Exec(ctx, fmt.Sprintf("CREATE SCHEMA %s", schema))
	require.NoError(t, err)
	t.Cleanup(func() {
		cleanup, err := pgxpool.New(context.Background(), dsn)
		if err == nil {
			_, _ = cleanup.Exec(context.Background(), fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schema))
			cleanup.Close()
		}
	})

	cfg := dsnToConfig(t, dsn)
	cfg.SearchPath = schema
	pool, err := database.NewPool(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

// getOrCreateSharedContainer starts the shared postgres:17-alpine
// container once per test binary run, reusing CI_DATABASE_URL instead
// when present.
func getOrCreateSharedContainer(t *testing.T) string {
	t.Helper()
	if ci := os.Getenv("CI_DATABASE_URL"); ci != "" {
		return ci
	}

	containerOnce.Do(func() {
		ctx := context.Background()
		pgContainer, err := postgres.Run(ctx,
			"postgres:17-alpine",
			postgres.WithDatabase("test"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		if err != nil {
			containerErr = fmt.Errorf("failed to start postgres container: %w", err)
			return
		}
		sharedDSN, err = pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			containerErr = fmt.Errorf("failed to get connection string: %w", err)
		}
	})
	require.NoError(t, containerErr, "failed to set up shared postgres testcontainer")
	return sharedDSN
}

func generateSchemaName(t *testing.T) string {
	t.Helper()
	name := strings.ToLower(t.Name())
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, name)
	if len(name) > 40 {
		name = name[:40]
	}
	suffix := make([]byte, 4)
	_, err := rand.Read(suffix)
	require.NoError(t, err)
	return fmt.Sprintf("test_%s_%s", name, hex.EncodeToString(suffix))
}

// dsnToConfig is a thin adapter: database.NewPool takes a structured
// Config rather than a raw DSN, but the testcontainer driver only
// gives us a DSN, so this round-trips it through pgxpool's own parser
// to recover the structured fields NewPool needs.
func dsnToConfig(t *testing.T, dsn string) database.Config {
	t.Helper()
	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	return database.Config{
		Host:     cfg.ConnConfig.Host,
		Port:     int(cfg.ConnConfig.Port),
		User:     cfg.ConnConfig.User,
		Password: cfg.ConnConfig.Password,
		Database: cfg.ConnConfig.Database,
		SSLMode:  "disable",
	}
}
