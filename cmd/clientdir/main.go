package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/saltyorg/clientdir/internal/config"
	"github.com/saltyorg/clientdir/internal/database"
	"github.com/saltyorg/clientdir/internal/demo"
	"github.com/saltyorg/clientdir/internal/directory"
	"github.com/saltyorg/clientdir/internal/events"
	"github.com/saltyorg/clientdir/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// CLI flags
var (
	envFile   string
	driver    string
	dbName    string
	findMode  string
	verbosity int
)

// cfg is loaded once in the root PersistentPreRunE.
var cfg *config.Config

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "clientdir",
		Short: "Clientdir - client directory store",
		Long: `Clientdir keeps a directory of clients and their phone numbers in SQLite or PostgreSQL.

Run without a subcommand it resets the database and plays the demo sequence.`,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
		RunE:              runDemo,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&envFile, "env-file", config.DefaultEnvFile, "Env file loaded before reading configuration")
	flags.StringVar(&driver, "driver", "", "Database driver: sqlite or postgres (overrides DB_DRIVER)")
	flags.StringVarP(&dbName, "db", "d", "", "SQLite file or PostgreSQL database name (overrides DB_NAME)")
	flags.StringVar(&findMode, "find-mode", "", "Find result mode: first or all (overrides FIND_MODE)")
	flags.CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v debug, -vv trace)")

	rootCmd.AddCommand(
		newInitCmd(),
		newAddClientCmd(),
		newAddPhoneCmd(),
		newChangeClientCmd(),
		newDeletePhoneCmd(),
		newDeleteClientCmd(),
		newFindCmd(),
		newShowCmd(),
		newListCmd(),
		newServeCmd(),
		newMaintenanceCmd(),
		newGenTokenCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "clientdir %s (commit: %s, built: %s)\n", version, commit, date)
			},
		},
	)

	return rootCmd
}

// loadConfig reads the env file and environment, applies flag overrides and
// sets up logging.
func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(envFile)
	if err != nil {
		return err
	}

	if driver != "" {
		loaded.DB.Driver = driver
	}
	if dbName != "" {
		loaded.DB.Name = dbName
	}
	if findMode != "" {
		loaded.FindMode = findMode
	}

	logging.Apply(logging.LevelFromVerbosity(verbosity, loaded.Log.Level), loaded.Log)
	cfg = loaded
	return nil
}

// openDB connects using the loaded configuration.
func openDB() (*database.DB, error) {
	dialect, err := database.ParseDialect(cfg.DB.Driver)
	if err != nil {
		return nil, err
	}

	db, err := database.New(database.Options{
		Driver:   dialect,
		Name:     cfg.DB.Name,
		User:     cfg.DB.User,
		Password: cfg.Password,
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		SSLMode:  cfg.DB.SSLMode,
	})
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("driver", string(db.Dialect())).
		Str("database", db.Name()).
		Msg("Database opened")
	return db, nil
}

// withService opens the database, makes sure the tables exist unless reset is
// about to recreate them, and runs fn with a service that prints confirmations
// to the command's output.
func withService(cmd *cobra.Command, ensureSchema bool, fn func(ctx context.Context, svc *directory.Service) error) error {
	mode, err := database.ParseFindMode(cfg.FindMode)
	if err != nil {
		return err
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if ensureSchema {
		if err := db.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	notifier, err := newNotificationManager(cfg.Notify)
	if err != nil {
		return err
	}
	defer notifier.Stop()

	svc := directory.New(db, events.Multi{events.NewConsole(cmd.OutOrStdout()), notifier}, mode)
	return fn(ctx, svc)
}

func runDemo(cmd *cobra.Command, args []string) error {
	return withService(cmd, false, demo.Run)
}
