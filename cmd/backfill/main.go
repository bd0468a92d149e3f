package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"identity-service/internal/backfill"
	"identity-service/pkg/config"
	"identity-service/pkg/database"
	"identity-service/pkg/logger"

	"go.uber.org/zap"
)

// Backfill CLI: stamps a tenant id onto legacy documents lacking one.
//
//	backfill -tenant acme -collections jobs,trucks,timesheets
//
// Safe to re-run; already-stamped documents are left untouched. Exit code is
// non-zero when any collection errored.
func main() {
	tenantID := flag.String("tenant", "", "tenant id to stamp onto legacy documents")
	collections := flag.String("collections", "", "comma-separated list of collections to sweep")
	flag.Parse()

	if *tenantID == "" || *collections == "" {
		fmt.Fprintln(os.Stderr, "usage: backfill -tenant <id> -collections <c1,c2,...>")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(2)
	}

	logger.InitLogger(cfg)
	log := logger.GetLogger()

	db, err := database.Initialize(database.DBConfig{
		DSN:             cfg.DB.GetDSN(),
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		LogLevel:        cfg.DB.LogLevel,
	})
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}

	var names []string
	for _, name := range strings.Split(*collections, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}

	migrator := backfill.NewMigrator(backfill.NewSQLStore(db), cfg.Backfill.BatchSize, log)
	summary := migrator.Migrate(context.Background(), *tenantID, names)

	for _, r := range summary.Results {
		if r.Err != nil {
			fmt.Printf("%-24s updated=%-6d skipped=%-6d ERROR: %v\n", r.Collection, r.Updated, r.Skipped, r.Err)
			continue
		}
		fmt.Printf("%-24s updated=%-6d skipped=%-6d\n", r.Collection, r.Updated, r.Skipped)
	}

	if summary.Err() != nil {
		os.Exit(1)
	}
}
