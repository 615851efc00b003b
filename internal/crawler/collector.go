package crawler

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/JakeFAU/druginfo-crawler/internal/metrics"
)

var tracer = otel.Tracer("druginfo.crawler")

const stageCategories = "categories"

// CollectorConfig controls the category link collector.
type CollectorConfig struct {
	ListingURL string
	BaseURL    string
	Output     string
}

// CollectResult summarizes a collector run.
type CollectResult struct {
	Links   []CategoryLink
	Written bool
}

// Collector fetches the listing page and writes the category link artifact.
type Collector struct {
	fetcher Fetcher
	cfg     CollectorConfig
	logger  *zap.Logger
}

// NewCollector constructs a Collector.
func NewCollector(fetcher Fetcher, cfg CollectorConfig, logger *zap.Logger) *Collector {
	if cfg.ListingURL == "" {
		cfg.ListingURL = DefaultListingURL
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Collector{fetcher: fetcher, cfg: cfg, logger: logger}
}

// Run fetches the listing page. A failed fetch is returned as an error and no
// artifact is touched; a page without the link container yields an empty
// result and removes the previous artifact.
func (c *Collector) Run(ctx context.Context) (CollectResult, error) {
	ctx, span := tracer.Start(ctx, "Collector.Run")
	defer span.End()
	span.SetAttributes(attribute.String("listing_url", c.cfg.ListingURL))

	page, err := c.fetcher.Fetch(ctx, FetchRequest{URL: c.cfg.ListingURL})
	if err != nil {
		metrics.ObservePage(stageCategories, c.cfg.ListingURL, metrics.StatusFailed, 0)
		span.SetStatus(codes.Error, err.Error())
		return CollectResult{}, fmt.Errorf("fetch listing page %s: %w", c.cfg.ListingURL, err)
	}
	metrics.ObservePage(stageCategories, c.cfg.ListingURL, metrics.StatusSuccess, len(page.Body))
	c.logger.Info("fetched listing page", zap.String("url", c.cfg.ListingURL), zap.Int("status_code", page.StatusCode))

	links, err := ParseCategoryLinks(page.Body, c.cfg.BaseURL)
	switch {
	case errors.Is(err, ErrContainerNotFound):
		c.logger.Warn("listing page has no link container", zap.String("url", c.cfg.ListingURL))
		return CollectResult{}, c.discardArtifact()
	case err != nil:
		return CollectResult{}, err
	}
	if len(links) == 0 {
		c.logger.Error("no category links found; nothing written")
		return CollectResult{}, c.discardArtifact()
	}
	metrics.ObserveLinks(stageCategories, len(links))
	c.logger.Info("found category links", zap.Int("count", len(links)))

	if err := WriteCategoryLinks(c.cfg.Output, links); err != nil {
		return CollectResult{Links: links}, err
	}
	c.logger.Info("saved category links", zap.String("path", c.cfg.Output))
	return CollectResult{Links: links, Written: true}, nil
}

func (c *Collector) discardArtifact() error {
	if err := RemoveArtifact(c.cfg.Output); err != nil {
		return err
	}
	c.logger.Info("removed previous category links", zap.String("path", c.cfg.Output))
	return nil
}
