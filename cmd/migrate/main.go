package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/krestenlaust/micro-stregsystemet/pkg/config"
	"github.com/krestenlaust/micro-stregsystemet/pkg/db"
	"github.com/krestenlaust/micro-stregsystemet/pkg/db/models"
	"github.com/krestenlaust/micro-stregsystemet/pkg/logger"
	"github.com/krestenlaust/micro-stregsystemet/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

func main() {
	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "migration command: up|down|status|version|create|validate")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&opts.name, "name", "", "migration name (for create)")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	_ = godotenv.Load()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", opts.cmd, err)
		os.Exit(1)
	}
}

func run(opts options) error {
	// create and validate only touch the filesystem.
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			return fmt.Errorf("missing -name")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			return err
		}
		fmt.Println("created migration:", path)
		return nil
	case "validate":
		if err := migrate.ValidateDir(opts.dir); err != nil {
			return err
		}
		fmt.Println("migration validation passed")
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":    cfg.App.Env,
		"cmd":    opts.cmd,
		"dir":    opts.dir,
		"driver": cfg.DB.Driver,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}
	defer dbClient.Close()

	// The goose files are Postgres SQL; a sqlite kiosk gets its schema from the models.
	if cfg.DB.Driver == config.DriverSQLite {
		if opts.cmd != "up" {
			return fmt.Errorf("only up is supported on sqlite")
		}
		logg.Info(ctx, "auto-migrating sqlite schema from models")
		return dbClient.DB().WithContext(ctx).AutoMigrate(models.All()...)
	}

	sqlDB, err := dbClient.SQL()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	switch opts.cmd {
	case "up", "down", "status":
		err = migrate.Run(ctx, sqlDB, opts.dir, opts.cmd)
	case "version":
		if opts.version == "" {
			return fmt.Errorf("missing -version")
		}
		err = migrate.MigrateToVersion(ctx, sqlDB, opts.dir, opts.version)
	default:
		return fmt.Errorf("unknown command %q", opts.cmd)
	}
	if err != nil {
		return err
	}

	logg.Info(ctx, "migration finished")
	return nil
}
