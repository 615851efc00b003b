package crawler

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/JakeFAU/druginfo-crawler/internal/metrics"
)

const stageLinks = "links"

// Defaults for the link extractor.
const (
	DefaultLinkTimeout = 10 * time.Second
	DefaultPageDelay   = time.Second
)

// LinkExtractorConfig controls the drug link extractor.
type LinkExtractorConfig struct {
	Input   string
	Output  string
	Host    string
	Timeout time.Duration
	// Delay is the fixed pause between successive page fetches.
	Delay time.Duration
}

// LinkResult summarizes a link extractor run.
type LinkResult struct {
	Pages       int
	FailedPages int
	Links       []string
	Written     bool
}

// LinkExtractor visits every category page and collects unique detail URLs.
type LinkExtractor struct {
	fetcher Fetcher
	pauser  pauseController
	cfg     LinkExtractorConfig
	logger  *zap.Logger
}

// NewLinkExtractor constructs a LinkExtractor.
func NewLinkExtractor(fetcher Fetcher, cfg LinkExtractorConfig, logger *zap.Logger) *LinkExtractor {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	return &LinkExtractor{
		fetcher: fetcher,
		pauser:  &timerPauseController{},
		cfg:     cfg,
		logger:  logger,
	}
}

// Run reads the category artifact, scans each page for detail links, and
// writes the deduplicated list. Per-page fetch failures are logged and skipped.
// An unreadable or empty input ends the run and removes the previous output.
func (e *LinkExtractor) Run(ctx context.Context) (LinkResult, error) {
	ctx, span := tracer.Start(ctx, "LinkExtractor.Run")
	defer span.End()

	categories, err := ReadCategoryLinks(e.cfg.Input)
	if err != nil {
		e.logger.Error("failed to load category links", zap.String("path", e.cfg.Input), zap.Error(err))
		return LinkResult{}, RemoveArtifact(e.cfg.Output)
	}
	if len(categories) == 0 {
		e.logger.Error("no category links to process", zap.String("path", e.cfg.Input))
		return LinkResult{}, RemoveArtifact(e.cfg.Output)
	}
	span.SetAttributes(attribute.Int("categories", len(categories)))

	set := newLinkSet()
	var result LinkResult
	for i, link := range categories {
		e.logger.Info("processing category link",
			zap.Int("index", i+1),
			zap.Int("total", len(categories)),
			zap.String("url", link),
		)
		result.Pages++
		if err := e.scanPage(ctx, link, set); err != nil {
			result.FailedPages++
			e.logger.Error("failed to scan category page", zap.String("url", link), zap.Error(err))
		}
		if i < len(categories)-1 {
			e.pauser.Pause(ctx, e.cfg.Delay)
		}
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("link extraction interrupted: %w", err)
		}
	}

	result.Links = set.Links()
	if err := WriteDetailURLs(e.cfg.Output, result.Links); err != nil {
		return result, err
	}
	result.Written = true
	e.logger.Info("saved detail links",
		zap.Int("count", len(result.Links)),
		zap.Int("failed_pages", result.FailedPages),
		zap.String("path", e.cfg.Output),
	)
	return result, nil
}

func (e *LinkExtractor) scanPage(ctx context.Context, link string, set *linkSet) error {
	page, err := e.fetcher.Fetch(ctx, FetchRequest{URL: link, Timeout: e.cfg.Timeout})
	if err != nil {
		metrics.ObservePage(stageLinks, link, metrics.StatusFailed, 0)
		return err
	}
	metrics.ObservePage(stageLinks, link, metrics.StatusSuccess, len(page.Body))

	found, err := ParseMedsLinks(page.Body, e.cfg.Host)
	if err != nil {
		return err
	}
	added := 0
	for _, detail := range found {
		if set.MarkIfNew(detail) {
			added++
			e.logger.Debug("found detail link", zap.String("url", detail))
		}
	}
	metrics.ObserveLinks(stageLinks, added)
	return nil
}
