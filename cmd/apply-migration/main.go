package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"moodweather/internal/common/database"
	logpkg "moodweather/internal/common/logger"
	"moodweather/internal/config"

	"go.uber.org/zap"
)

// Usage: apply-migration [file.sql | dir]   (default: migrations/)
func main() {
	log, err := logpkg.NewLoggerWithDefaults()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	target := "migrations"
	if len(os.Args) > 1 {
		target = os.Args[1]
	}
	files, err := migrationFiles(target)
	if err != nil {
		log.Fatal("Failed to find migrations", zap.String("target", target), zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Cannot connect to database", zap.Error(err))
	}
	defer database.Close(db)

	log.Info("Connected to database", zap.String("database", cfg.Database.Database))

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			log.Fatal("Failed to read migration file", zap.String("file", file), zap.Error(err))
		}

		// statements are split on ';', so migrations must not use function bodies
		statements := strings.Split(string(content), ";")
		for i, stmt := range statements {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" || isCommentOnly(stmt) {
				continue
			}
			if _, err := db.Exec(stmt); err != nil {
				log.Fatal("Failed to execute statement",
					zap.String("file", file),
					zap.Int("statement", i+1),
					zap.String("sql", stmt[:min(100, len(stmt))]),
					zap.Error(err),
				)
			}
		}
		log.Info("Migration applied", zap.String("file", file))
	}

	log.Info("Migrations completed", zap.Int("files", len(files)))
}

func migrationFiles(target string) ([]string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{target}, nil
	}
	files, err := filepath.Glob(filepath.Join(target, "*.sql"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .sql files in %s", target)
	}
	sort.Strings(files)
	return files, nil
}

func isCommentOnly(stmt string) bool {
	for _, line := range strings.Split(stmt, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return false
		}
	}
	return true
}
