package main

import (
	"fmt"
	"os"

	"github.com/dvloznov/tax-tracker/internal/bootstrap"
	"github.com/dvloznov/tax-tracker/internal/config"
	"github.com/dvloznov/tax-tracker/internal/logger"
	"github.com/spf13/cobra"
)

// cli carries the global flags and the services opened for one invocation.
type cli struct {
	configPath string
	dbPath     string

	svc *bootstrap.Services
}

func main() {
	c := &cli{}
	err := c.rootCmd().Execute()
	if cerr := c.close(); cerr != nil {
		fmt.Fprintln(os.Stderr, "Error:", cerr)
		err = cerr
	}
	if err != nil {
		os.Exit(1)
	}
}

func (c *cli) rootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "taxtracker",
		Short: "Track income, deductions and Indian income tax from the terminal",
		Long: `taxtracker keeps a personal ledger of income, deductions and expenses,
compares the old and new tax regimes, and stages transactions extracted
from salary slips, Form 16 and investment proofs for confirmation.

State is kept in a local SQLite database shared with the API server.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.open,
	}

	rootCmd.PersistentFlags().StringVar(&c.configPath, "config", os.Getenv("TAXTRACKER_CONFIG"), "Path to a TOML config file")
	rootCmd.PersistentFlags().StringVar(&c.dbPath, "db", "", "State database (overrides store.path)")

	rootCmd.AddCommand(
		c.txCmd(),
		c.taxCmd(),
		c.utilizationCmd(),
		c.insightsCmd(),
		c.filingCmd(),
		c.analysisCmd(),
		c.profileCmd(),
		c.settingsCmd(),
		c.extractCmd(),
		c.pendingCmd(),
		c.exportCmd(),
		c.askCmd(),
		c.syncCmd(),
	)
	return rootCmd
}

// open loads the configuration and the persisted state before any command runs.
func (c *cli) open(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.dbPath != "" {
		cfg.Store.Path = c.dbPath
		cfg.Store.Ephemeral = false
	}

	log := logger.Setup(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
	ctx := logger.WithContext(cmd.Context(), log)
	cmd.SetContext(ctx)

	svc, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open state: %w", err)
	}
	c.svc = svc
	return nil
}

// close releases the services opened by open. It is safe to call when
// nothing was opened.
func (c *cli) close() error {
	if c.svc == nil {
		return nil
	}
	err := c.svc.Close()
	c.svc = nil
	return err
}
