package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/renderinc/tweetsweep/internal/config"
	"github.com/renderinc/tweetsweep/internal/logger"
	"github.com/renderinc/tweetsweep/internal/search"
	"github.com/renderinc/tweetsweep/internal/storage"
	"github.com/renderinc/tweetsweep/internal/sync"
	"github.com/renderinc/tweetsweep/internal/twitter"
)

var version = "dev"

// app carries what every subcommand needs once flags are parsed
type app struct {
	configPath string
	dataDir    string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	rootCmd := &cobra.Command{
		Use:     "tweetsweep",
		Short:   "Import, check and delete tweets from a Twitter archive",
		Version: version,
		Long: `tweetsweep imports a Twitter data export into a local SQLite database,
checks which tweets still exist, and deletes the ones matching your retention rules.

Credentials are read from TWEETSWEEP_API_KEY, TWEETSWEEP_API_SECRET,
TWEETSWEEP_ACCESS_TOKEN and TWEETSWEEP_ACCESS_SECRET, a .env file, or the config file.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default $HOME/.config/tweetsweep/config.yaml)")
	flags.StringVar(&a.dataDir, "data-dir", "", "directory for the database and search index (default ./data)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(importCmd(a))
	rootCmd.AddCommand(checkCmd(a))
	rootCmd.AddCommand(deleteCmd(a))
	rootCmd.AddCommand(statsCmd(a))
	rootCmd.AddCommand(searchCmd(a))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.New(color.FgRed).Sprint("Error: ")+err.Error())
		os.Exit(1)
	}
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dataDir != "" {
		cfg.DataDir = a.dataDir
	}
	if err := cfg.Validate(false); err != nil {
		return err
	}

	log, err := logger.New(a.verbose)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	a.cfg = cfg
	a.logger = log
	return nil
}

// openStore opens the database and search index, creating the data directory
func (a *app) openStore() (*storage.DB, *search.Index, error) {
	if err := os.MkdirAll(a.cfg.DataDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := storage.Open(a.cfg.DBPath())
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	idx, err := search.Open(a.cfg.IndexPath())
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("open search index: %w", err)
	}
	return db, idx, nil
}

// newWorker builds a worker with an authenticated client. The caller closes db and idx.
func (a *app) newWorker() (*sync.Worker, *storage.DB, *search.Index, error) {
	if err := a.cfg.Validate(true); err != nil {
		return nil, nil, nil, err
	}

	db, idx, err := a.openStore()
	if err != nil {
		return nil, nil, nil, err
	}

	client := twitter.NewClient(a.cfg.ClientOptions(), a.logger)
	return sync.NewWorker(client, db, idx, a.logger), db, idx, nil
}

func heading(title string) {
	fmt.Println()
	color.New(color.Bold).Printf("=== %s ===\n", title)
}
