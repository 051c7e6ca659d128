package db

import (
	"fmt"
	"os"
	"strconv"

	"github.com/parcelpoint/lockerd/internal/monitoring"
)

// RunMigrateCommand handles the 'migrate' subcommand dispatching.
func RunMigrateCommand(args []string, dbPath, migrationsDir string) {
	if len(args) < 1 {
		PrintMigrateHelp()
		os.Exit(1)
	}

	action := args[0]

	// The schema is managed by the migrations, so open without the base
	// schema initialization.
	database, err := OpenDB(dbPath)
	if err != nil {
		monitoring.Logf("failed to connect to database: %v", err)
		os.Exit(1)
	}
	defer database.Close()

	switch action {
	case "up":
		if err := database.MigrateUp(migrationsDir); err != nil {
			monitoring.Logf("migration up failed: %v", err)
			os.Exit(1)
		}
		monitoring.Logf("all migrations applied")
		printVersion(database, migrationsDir)

	case "down":
		if err := database.MigrateDown(migrationsDir); err != nil {
			monitoring.Logf("migration down failed: %v", err)
			os.Exit(1)
		}
		monitoring.Logf("rolled back one migration")
		printVersion(database, migrationsDir)

	case "status":
		printVersion(database, migrationsDir)

	case "force":
		if len(args) < 2 {
			monitoring.Logf("usage: lockerd migrate force <version>")
			os.Exit(1)
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			monitoring.Logf("invalid version %q: %v", args[1], err)
			os.Exit(1)
		}
		if err := database.MigrateForce(migrationsDir, version); err != nil {
			monitoring.Logf("migration force failed: %v", err)
			os.Exit(1)
		}
		printVersion(database, migrationsDir)

	case "help":
		PrintMigrateHelp()

	default:
		fmt.Printf("Unknown migrate action: %s\n\n", action)
		PrintMigrateHelp()
		os.Exit(1)
	}
}

func printVersion(database *DB, migrationsDir string) {
	version, dirty, err := database.MigrateVersion(migrationsDir)
	if err != nil {
		monitoring.Logf("failed to read migration version: %v", err)
		return
	}
	monitoring.Logf("current version: %d (dirty: %v)", version, dirty)
}

// PrintMigrateHelp prints usage for the migrate subcommand.
func PrintMigrateHelp() {
	fmt.Print(`Usage: lockerd migrate <action>

Actions:
  up               apply all pending migrations
  down             roll back the most recent migration
  status           show the current migration version
  force <version>  mark the database at <version> without migrating
  help             show this help
`)
}
