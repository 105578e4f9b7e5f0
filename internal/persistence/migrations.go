package persistence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const migrationsDir = "migrations"

// RunMigrations applies every .sql file under migrations/ in lexical order,
// so the numeric prefix (001_, 002_, ...) fixes the sequence. Each file is
// executed as one batch; scripts are expected to be idempotent.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	if pool == nil {
		logger.Warn("postgres disabled; skipping migrations")
		return nil
	}

	paths, err := filepath.Glob(filepath.Join(migrationsDir, "*.sql"))
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(paths)

	for _, path := range paths {
		script, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", path, err)
		}
		name := strings.TrimSuffix(filepath.Base(path), ".sql")
		logger.Info("applying migration", zap.String("migration", name))
		if _, err := pool.Exec(ctx, string(script)); err != nil {
			return fmt.Errorf("apply migration %s: %w", path, err)
		}
	}

	logger.Info("schema up to date", zap.Int("migrations", len(paths)))
	return nil
}
