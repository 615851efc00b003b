// Package cmd defines the druginfo CLI: one subcommand per pipeline stage plus run.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/druginfo-crawler/internal/app"
	"github.com/JakeFAU/druginfo-crawler/internal/config"
	"github.com/JakeFAU/druginfo-crawler/internal/logging"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// newApp loads configuration and builds the services. Tests replace it.
var newApp = func(configPath string) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, err
	}
	return app.New(cfg, logger)
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "druginfo",
		Short: "Collects MedlinePlus drug information into a document store.",
		Long: `druginfo discovers the MedlinePlus drug index, extracts the per-drug
detail links, and upserts one structured document per drug page.

Stages hand off through JSON files on disk and can be run one at a time
(categories, links, ping, scrape) or in order with run.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			if err := appInstance.StartTracing(cmd.Context()); err != nil {
				appInstance.Close()
				return err
			}
			appInstance.StartMetrics(cmd.Context())
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "JSON config file")

	cmd.AddCommand(
		newCategoriesCmd(),
		newLinksCmd(),
		newPingCmd(),
		newScrapeCmd(),
		newRunCmd(),
	)
	for _, sub := range cmd.Commands() {
		closeAfterRun(sub)
	}
	return cmd
}

// closeAfterRun releases the app when RunE returns. PersistentPostRun is
// skipped on error, so it cannot do this.
func closeAfterRun(cmd *cobra.Command) {
	runE := cmd.RunE
	if runE == nil {
		return
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		defer func() {
			if appInstance, ok := c.Context().Value(appKey).(*app.App); ok && appInstance != nil {
				appInstance.Close()
			}
		}()
		return runE(c, args)
	}
}

func resolveApp(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute runs the CLI and exits non-zero when a command fails.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		logger, lerr := logging.New(true)
		if lerr != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		logger.Fatal("command execution failed", zap.Error(err))
	}
}
