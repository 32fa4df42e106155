// cmd/migrate/main.go
package main

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/unclebandit/isp-broadcast/internal/config"
	"github.com/unclebandit/isp-broadcast/internal/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := config.NewLogger(cfg.Log)

	dsn := cfg.Database.DSN()
	if dsn == "" {
		log.Fatal("DATABASE_URL or DB_HOST/DB_NAME must be set")
	}

	ctx := context.Background()
	conn, err := db.Open(ctx, dsn, log)
	if err != nil {
		log.WithError(err).Fatal("database unavailable")
	}
	defer conn.Close()

	dir := "migrations"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		log.WithError(err).Fatal("list migrations")
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			log.WithError(err).WithField("file", file).Fatal("failed to read migration")
		}
		if _, err := conn.ExecContext(ctx, string(content)); err != nil {
			log.WithError(err).WithField("file", file).Fatal("failed to apply migration")
		}
		log.WithField("file", file).Info("applied")
	}

	log.WithField("count", len(files)).Info("migrations completed")
}
