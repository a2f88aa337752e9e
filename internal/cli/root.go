package cli

import (
	"database/sql"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/driftwatch/internal/config"
	"github.com/pratik-mahalle/driftwatch/internal/pkg/logger"
	"github.com/pratik-mahalle/driftwatch/internal/repository/sqlite"
	"github.com/pratik-mahalle/driftwatch/internal/services"
)

var (
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "driftwatch",
	Short: "DriftWatch - Infrastructure drift detection engine",
	Long: `DriftWatch compares the declared state of your infrastructure against
its observed state, classifies the differences by type and severity,
records them durably, and alerts on the ones that matter.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./driftwatch.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json, yaml")

	rootCmd.AddCommand(newDetectCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newResolveCmd())
	rootCmd.AddCommand(newSnapshotCmd())
	rootCmd.AddCommand(newPruneCmd())
	rootCmd.AddCommand(newWatchCmd())
}

// app bundles the wired engine for a single command invocation.
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	db        *sql.DB
	events    *sqlite.EventStore
	snapshots *sqlite.SnapshotStore
}

// newApp loads configuration, opens the event database, and wires the
// stores. Callers must Close when done.
func newApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	db, err := sqlite.New(cfg.Database)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:       cfg,
		log:       log,
		db:        db,
		events:    sqlite.NewEventStore(db, cfg.Database.Driver),
		snapshots: sqlite.NewSnapshotStore(db, cfg.Database.Driver),
	}, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

// manager assembles the detection manager with the default collaborators.
func (a *app) manager() *services.DetectionManager {
	return services.BuildManager(a.cfg, a.events, a.snapshots, a.log, services.Options{})
}
