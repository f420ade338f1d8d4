package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// ResolveMigrationDir prefers the explicit dir, then /migrations (container
// layout), then ./migrations.
func ResolveMigrationDir(dir string) (string, error) {
	candidates := []string{strings.TrimSpace(dir), "/migrations", "./migrations"}
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		info, err := os.Stat(candidate)
		if err == nil && info.IsDir() {
			return filepath.Abs(candidate)
		}
		if candidate == strings.TrimSpace(dir) {
			return "", fmt.Errorf("migration dir %q not found", candidate)
		}
	}
	return "", errors.New("no migration dir found")
}

// MigrateUp applies all pending up migrations. ErrNoChange is not an error.
func MigrateUp(migrationDir, databaseURL string) error {
	migrator, err := migrate.New("file://"+filepath.ToSlash(migrationDir), databaseURL)
	if err != nil {
		return fmt.Errorf("init migrator failed: %w", err)
	}
	defer migrator.Close() //nolint:errcheck

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations failed: %w", err)
	}
	return nil
}
