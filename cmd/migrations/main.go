package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const migrationsDir = "internal/adapters/repository/postgres/migrations"

// Usage:
//
//	migrations up               applies every up migration in order
//	migrations <name>.up        applies the single migration matching <name>
//	migrations <name>.down      reverts the single migration matching <name>
func main() {
	logger := logrus.New()

	if len(os.Args) < 2 {
		logger.Fatal("usage: migrations up | <name>.up | <name>.down")
	}
	target := os.Args[1]

	if err := godotenv.Load(); err != nil {
		logger.WithError(err).Warn("no .env file loaded")
	}

	db, err := sql.Open("postgres", dbConnString())
	if err != nil {
		logger.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()

	files, err := selectMigrations(migrationsDir, target)
	if err != nil {
		logger.WithError(err).Fatal("failed to select migrations")
	}
	if len(files) == 0 {
		logger.WithField("target", target).Fatal("no matching migration files")
	}

	for _, name := range files {
		content, err := os.ReadFile(filepath.Join(migrationsDir, name))
		if err != nil {
			logger.WithError(err).WithField("file", name).Fatal("failed to read migration")
		}
		if _, err := db.Exec(string(content)); err != nil {
			logger.WithError(err).WithField("file", name).Fatal("failed to apply migration")
		}
		logger.WithField("file", name).Info("migration applied")
	}
}

// selectMigrations resolves the CLI target to an ordered list of SQL
// files. "up" means every *.up.sql in lexical (and therefore version)
// order; anything else matches a single migration by name suffix.
func selectMigrations(dir string, target string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		name := entry.Name()
		switch {
		case target == "up" && strings.HasSuffix(name, ".up.sql"):
			files = append(files, name)
		case target != "up" && strings.HasSuffix(name, target+".sql"):
			files = append(files, name)
		}
	}

	sort.Strings(files)
	return files, nil
}

func dbConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		os.Getenv("POSTGRES_USER"),
		os.Getenv("POSTGRES_PASSWORD"),
		os.Getenv("POSTGRES_HOST"),
		os.Getenv("POSTGRES_PORT"),
		os.Getenv("POSTGRES_DB"),
	)
}
