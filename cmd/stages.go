package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/druginfo-crawler/internal/app"
)

func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Collect the category links from the drug index page",
		RunE:  stageRunner(runCategories),
	}
}

func newLinksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "links",
		Short: "Extract unique drug detail links from every category page",
		RunE:  stageRunner(runLinks),
	}
}

func newPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the document store is reachable",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			return runPing(cmd, a)
		},
	}
}

func newScrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Scrape every detail page and upsert one document per URL",
		RunE:  stageRunner(runScrape),
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run categories, links, ping and scrape in order",
		Long: `Runs the four stages in sequence and stops at the first stage that
returns an error.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			steps := []struct {
				name string
				run  func() error
			}{
				{"categories", func() error { return runCategories(ctx, a) }},
				{"links", func() error { return runLinks(ctx, a) }},
				{"ping", func() error { return runPing(cmd, a) }},
				{"scrape", func() error { return runScrape(ctx, a) }},
			}
			for _, step := range steps {
				a.Logger().Info("starting stage", zap.String("stage", step.name))
				if err := step.run(); err != nil {
					return fmt.Errorf("stage %s: %w", step.name, err)
				}
			}
			a.Logger().Info("pipeline finished")
			return nil
		},
	}
}

func stageRunner(run func(context.Context, *app.App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		a, err := resolveApp(cmd.Context())
		if err != nil {
			return err
		}
		return run(cmd.Context(), a)
	}
}

func runCategories(ctx context.Context, a *app.App) error {
	res, err := a.Collector().Run(ctx)
	if err != nil {
		return err
	}
	a.Logger().Info("categories stage done", zap.Int("links", len(res.Links)), zap.Bool("written", res.Written))
	return nil
}

func runLinks(ctx context.Context, a *app.App) error {
	res, err := a.LinkExtractor().Run(ctx)
	if err != nil {
		return err
	}
	a.Logger().Info("links stage done",
		zap.Int("pages", res.Pages),
		zap.Int("failed_pages", res.FailedPages),
		zap.Int("links", len(res.Links)),
	)
	return nil
}

// runPing prints the check result; an unreachable store is reported, not returned.
func runPing(cmd *cobra.Command, a *app.App) error {
	check := a.CheckStore(cmd.Context())
	fmt.Fprintln(cmd.OutOrStdout(), check.Message)
	return nil
}

func runScrape(ctx context.Context, a *app.App) error {
	scraper, err := a.Scraper(ctx)
	if err != nil {
		return err
	}
	res, err := scraper.Run(ctx)
	if err != nil {
		return err
	}
	a.Logger().Info("scrape stage done",
		zap.Int("total", res.Total),
		zap.Int("upserted", res.Upserted),
		zap.Int("failed", res.Failed),
	)
	return nil
}
