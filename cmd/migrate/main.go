// Command migrate installs the PostgreSQL schema and, when CLICKHOUSE_URL is
// set, the ClickHouse prediction log.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/kickoffai/predictions-api/internal/logger"
)

func main() {
	dir := flag.String("dir", "migrations", "directory holding postgres/ and clickhouse/ schema files")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall migration timeout")
	flag.Parse()

	_ = godotenv.Load()

	log, err := logger.New("predictions-migrate", os.Getenv("ENV"))
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pgURL := os.Getenv("POSTGRES_URL")
	if pgURL == "" {
		log.Fatal("missing required environment variable: POSTGRES_URL")
	}
	if err := migratePostgres(ctx, pgURL, filepath.Join(*dir, "postgres"), log); err != nil {
		log.Fatal("postgres migration failed", zap.Error(err))
	}

	if chURL := os.Getenv("CLICKHOUSE_URL"); chURL != "" {
		if err := migrateClickHouse(ctx, chURL, filepath.Join(*dir, "clickhouse"), log); err != nil {
			log.Fatal("clickhouse migration failed", zap.Error(err))
		}
	} else {
		log.Info("CLICKHOUSE_URL not set, skipping prediction log schema")
	}
}

func migratePostgres(ctx context.Context, url, dir string, log *zap.Logger) error {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return err
	}
	defer db.Close()

	files, err := schemaFiles(dir)
	if err != nil {
		return err
	}
	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		// Without arguments lib/pq uses the simple protocol, which accepts
		// several statements per call.
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(f), err)
		}
		log.Info("applied schema", zap.String("db", "postgres"), zap.String("file", filepath.Base(f)))
	}
	return nil
}

func migrateClickHouse(ctx context.Context, dsn, dir string, log *zap.Logger) error {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return err
	}
	conn, err := clickhouse.Open(opts)
	if err != nil {
		return err
	}
	defer conn.Close()

	files, err := schemaFiles(dir)
	if err != nil {
		return err
	}
	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		// The native protocol runs one statement per call.
		for _, stmt := range splitStatements(string(content)) {
			if err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("%s: %q: %w", filepath.Base(f), abbreviate(stmt, 50), err)
			}
		}
		log.Info("applied schema", zap.String("db", "clickhouse"), zap.String("file", filepath.Base(f)))
	}
	return nil
}

// schemaFiles returns the .sql files of dir in lexical order.
func schemaFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no schema files in %s", dir)
	}
	sort.Strings(files)
	return files, nil
}

// splitStatements splits a script on semicolons, dropping comment lines and
// empty statements. Semicolons inside string literals are not supported.
func splitStatements(script string) []string {
	var lines []string
	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		lines = append(lines, line)
	}

	var out []string
	for _, stmt := range strings.Split(strings.Join(lines, "\n"), ";") {
		if trimmed := strings.TrimSpace(stmt); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
