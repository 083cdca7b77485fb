package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/andysheldon-creator/OpenClaw-Optimised-sub003/config"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub003/internal/database"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub003/internal/migration"
)

// =============================================================================
// Schema Migration Commands
// =============================================================================

// runMigrate handles the migrate command and its subcommands
func runMigrate(args []string) {
	if len(args) < 1 {
		printMigrateUsage()
		os.Exit(1)
	}

	subcommand := args[0]
	subargs := args[1:]

	switch subcommand {
	case "up":
		runMigrateUp(subargs)
	case "down":
		runMigrateDown(subargs)
	case "status":
		runMigrateStatus(subargs)
	case "version":
		runMigrateVersion(subargs)
	case "goto":
		runMigrateGoto(subargs)
	case "force":
		runMigrateForce(subargs)
	case "reset":
		runMigrateReset(subargs)
	case "help", "-h", "--help":
		printMigrateUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown migrate subcommand: %s\n", subcommand)
		printMigrateUsage()
		os.Exit(1)
	}
}

// printMigrateUsage prints the usage information for migrate command
func printMigrateUsage() {
	fmt.Println(`Schema Migration Commands

Usage:
  memctl migrate <subcommand> [options]

Subcommands:
  up        Apply all pending migrations
  down      Rollback the last migration
  status    Show migration status
  version   Show current migration version
  goto      Migrate to a specific version
  force     Force set migration version (use with caution)
  reset     Rollback all migrations
  help      Show this help message

Options:
  -config <path>   Path to configuration file (YAML)
  -db <path>       Database file (default: from config)

Examples:
  memctl migrate up
  memctl migrate up -config /etc/openclaw/config.yaml
  memctl migrate down
  memctl migrate status
  memctl migrate goto 1
  memctl migrate force 0
  memctl migrate reset`)
}

// migrateEnv is the shared handle for one migrate invocation.
type migrateEnv struct {
	manager  *database.Manager
	migrator *migration.DefaultMigrator
}

func (m *migrateEnv) close() {
	_ = m.migrator.Close()
	_ = m.manager.Close()
}

// openMigrateEnv opens the configured database and a migrator over it.
// Unlike the store, it does not apply migrations on open; running them
// is what these commands are for.
func openMigrateEnv(fs *flag.FlagSet, args []string) (*migrateEnv, error) {
	configPath := fs.String("config", "", "Path to config file")
	dbPath := fs.String("db", "", "Database file (default: from config)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	dbCfg := database.DefaultConfig()
	if *dbPath != "" {
		dbCfg.Path = *dbPath
	} else {
		loader := config.NewLoader()
		if *configPath != "" {
			loader = loader.WithConfigPath(*configPath)
		}
		cfg, err := loader.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		dbCfg.Path = cfg.Memory.DatabasePath()
		dbCfg.BusyTimeout = cfg.Memory.BusyTimeout
	}

	manager, err := database.NewManager(dbCfg, zap.NewNop())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	migrator, err := migration.NewMigrator(manager.SQLDB(), nil)
	if err != nil {
		_ = manager.Close()
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return &migrateEnv{manager: manager, migrator: migrator}, nil
}

// printCurrentVersion prints the post-command migration version.
func printCurrentVersion(ctx context.Context, env *migrateEnv, prefix string) {
	info, err := env.migrator.Info(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read migration state: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s Current version: %d\n", prefix, info.CurrentVersion)
}

// runMigrateUp applies all pending migrations
func runMigrateUp(args []string) {
	fs := flag.NewFlagSet("migrate up", flag.ExitOnError)
	env, err := openMigrateEnv(fs, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open migrator: %v\n", err)
		os.Exit(1)
	}
	defer env.close()

	ctx := context.Background()
	fmt.Println("Running migrations...")

	if err := env.migrator.Up(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}

	printCurrentVersion(ctx, env, "Migrations complete.")
}

// runMigrateDown rolls back the last migration
func runMigrateDown(args []string) {
	fs := flag.NewFlagSet("migrate down", flag.ExitOnError)
	all := fs.Bool("all", false, "Rollback all migrations")
	env, err := openMigrateEnv(fs, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open migrator: %v\n", err)
		os.Exit(1)
	}
	defer env.close()

	ctx := context.Background()

	if *all {
		fmt.Println("Rolling back all migrations...")
		if err := env.migrator.DownAll(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Migration rollback failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("All migrations rolled back.")
		return
	}

	fmt.Println("Rolling back last migration...")
	if err := env.migrator.Down(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Migration rollback failed: %v\n", err)
		os.Exit(1)
	}

	printCurrentVersion(ctx, env, "Rollback complete.")
}

// runMigrateStatus shows the status of all migrations
func runMigrateStatus(args []string) {
	fs := flag.NewFlagSet("migrate status", flag.ExitOnError)
	env, err := openMigrateEnv(fs, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open migrator: %v\n", err)
		os.Exit(1)
	}
	defer env.close()

	ctx := context.Background()

	statuses, err := env.migrator.Status(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get status: %v\n", err)
		os.Exit(1)
	}

	if len(statuses) == 0 {
		fmt.Println("No migrations found.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tSTATUS")
	fmt.Fprintln(w, "-------\t----\t------")
	for _, s := range statuses {
		status := "Pending"
		if s.Applied {
			status = "Applied"
		}
		if s.Dirty {
			status = "Dirty"
		}
		fmt.Fprintf(w, "%06d\t%s\t%s\n", s.Version, s.Name, status)
	}
	w.Flush()

	info, err := env.migrator.Info(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read migration state: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nTotal: %d, Applied: %d, Pending: %d\n",
		info.TotalMigrations, info.AppliedMigrations, info.PendingMigrations)
}

// runMigrateVersion shows the current migration version
func runMigrateVersion(args []string) {
	fs := flag.NewFlagSet("migrate version", flag.ExitOnError)
	env, err := openMigrateEnv(fs, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open migrator: %v\n", err)
		os.Exit(1)
	}
	defer env.close()

	version, dirty, err := env.migrator.Version(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get version: %v\n", err)
		os.Exit(1)
	}

	if version == 0 {
		fmt.Println("No migrations applied yet.")
		return
	}

	fmt.Printf("Current version: %d", version)
	if dirty {
		fmt.Print(" (dirty)")
	}
	fmt.Println()
}

// runMigrateGoto migrates to a specific version
func runMigrateGoto(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: memctl migrate goto <version>")
		os.Exit(1)
	}

	version, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid version number: %s\n", args[0])
		os.Exit(1)
	}

	fs := flag.NewFlagSet("migrate goto", flag.ExitOnError)
	env, err := openMigrateEnv(fs, args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open migrator: %v\n", err)
		os.Exit(1)
	}
	defer env.close()

	ctx := context.Background()
	fmt.Printf("Migrating to version %d...\n", version)

	if err := env.migrator.Goto(ctx, uint(version)); err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Migration complete. Current version: %d\n", version)
}

// runMigrateForce forces the migration version
func runMigrateForce(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: memctl migrate force <version>")
		os.Exit(1)
	}

	version, err := strconv.ParseInt(args[0], 10, 32)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid version number: %s\n", args[0])
		os.Exit(1)
	}

	fs := flag.NewFlagSet("migrate force", flag.ExitOnError)
	env, err := openMigrateEnv(fs, args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open migrator: %v\n", err)
		os.Exit(1)
	}
	defer env.close()

	fmt.Printf("Forcing version to %d...\n", version)

	if err := env.migrator.Force(context.Background(), int(version)); err != nil {
		fmt.Fprintf(os.Stderr, "Force failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Version forced to %d\n", version)
}

// runMigrateReset rolls back all migrations
func runMigrateReset(args []string) {
	fs := flag.NewFlagSet("migrate reset", flag.ExitOnError)
	env, err := openMigrateEnv(fs, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open migrator: %v\n", err)
		os.Exit(1)
	}
	defer env.close()

	fmt.Println("Rolling back all migrations...")

	if err := env.migrator.DownAll(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Reset failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("All migrations rolled back.")
}
