package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/csdakkoni/ecommerce-sub000/pkg/config"
	"github.com/csdakkoni/ecommerce-sub000/pkg/db"
	"github.com/csdakkoni/ecommerce-sub000/pkg/logger"
	"github.com/csdakkoni/ecommerce-sub000/pkg/migrate"
)

func main() {
	cmd := flag.String("cmd", "up", "up|down|status|version|create|validate")
	dir := flag.String("dir", "", "migrations directory on disk (default: embedded; create/validate use "+migrate.SourceDir+")")
	name := flag.String("name", "", "migration name for -cmd=create")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	// create and validate edit source files and need neither config nor a database.
	switch *cmd {
	case "create":
		if *name == "" {
			exitf("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(sourceDir(*dir), *name)
		if err != nil {
			exitf("create migration: %v", err)
		}
		fmt.Println("created", path)
		return
	case "validate":
		if err := migrate.ValidateDir(sourceDir(*dir)); err != nil {
			exitf("validation failed: %v", err)
		}
		fmt.Println("migrations valid")
		return
	}

	_ = godotenv.Load()
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": *cmd})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		logg.Error(ctx, "failed to extract sql.DB", err)
		os.Exit(1)
	}

	var source fs.FS
	if *dir != "" {
		source = os.DirFS(*dir)
	}
	migrator, err := migrate.New(sqlDB, source)
	if err != nil {
		logg.Error(ctx, "failed to build migrator", err)
		os.Exit(1)
	}

	switch *cmd {
	case "up":
		applied, err := migrator.Up(ctx)
		if err != nil {
			logg.Error(ctx, "migrate up failed", err)
			os.Exit(1)
		}
		logg.Info(logg.WithField(ctx, "applied", applied), "schema up to date")
	case "down":
		rolledBack, err := migrator.Down(ctx)
		if err != nil {
			logg.Error(ctx, "migrate down failed", err)
			os.Exit(1)
		}
		logg.Info(logg.WithField(ctx, "version", rolledBack), "migration rolled back")
	case "status":
		lines, err := migrator.Status(ctx)
		if err != nil {
			logg.Error(ctx, "migrate status failed", err)
			os.Exit(1)
		}
		for _, line := range lines {
			fmt.Println(line)
		}
	case "version":
		if *version == "" {
			exitf("missing -version for version command")
		}
		if err := migrator.MigrateTo(ctx, *version); err != nil {
			logg.Error(ctx, "migrate to version failed", err)
			os.Exit(1)
		}
	default:
		exitf("unknown -cmd value: %s", *cmd)
	}
}

func sourceDir(dir string) string {
	if dir == "" {
		return migrate.SourceDir
	}
	return dir
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
