// Package dbtest starts a throwaway postgres with the recharge_cards schema for
// tests that need a real database.
package dbtest

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	testcontainers "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"rlserver-tools/internal/config"
	"rlserver-tools/internal/database"
)

const (
	dbName     = "rl_server_test"
	dbUser     = "admin"
	dbPassword = "admin"
)

// StartPostgres runs postgres in a container, applies the repository's
// migrations through database.MigrateUp and returns the connection URL. The
// test is skipped when docker is not available.
func StartPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     dbUser,
				"POSTGRES_PASSWORD": dbPassword,
				"POSTGRES_DB":       dbName,
			},
			// postgres restarts once after init; the second line is the real one.
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("skipping test because docker/testcontainers is unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("container mapped port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", dbUser, dbPassword, host, port.Port(), dbName)
	if err := database.MigrateUp(MigrationsDir(t), dsn); err != nil {
		t.Fatalf("apply recharge_cards migrations: %v", err)
	}
	return dsn
}

// NewPool starts postgres and opens a pool through database.NewPool.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := StartPostgres(t)
	pool, err := database.NewPool(context.Background(), config.DatabaseConfig{
		URL:            dsn,
		MaxConns:       4,
		ConnectTimeout: 10 * time.Second,
	})
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// MigrationsDir is the absolute path of the repository's migrations folder.
func MigrationsDir(t *testing.T) string {
	t.Helper()

	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("could not locate dbtest source file")
	}
	dir, err := database.ResolveMigrationDir(filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations"))
	if err != nil {
		t.Fatalf("resolve migrations dir: %v", err)
	}
	return dir
}
