package crawler

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/JakeFAU/druginfo-crawler/internal/metrics"
)

const stageDetails = "details"

// ScraperConfig controls the detail scraper.
type ScraperConfig struct {
	Input string
	// Timeout bounds each detail fetch; zero disables it.
	Timeout time.Duration
	// Debug clears the collection before the batch starts.
	Debug bool
	// BoundSections stops the body search for a heading at the next heading.
	BoundSections bool
	ArchivePrefix string
	ContentType   string
	Topic         string
	RunID         string
}

// ScrapeResult summarizes a scraper run.
type ScrapeResult struct {
	Total    int
	Fetched  int
	Upserted int
	Failed   int
	Cleared  int64
}

// Scraper fetches detail pages and upserts one document per URL.
type Scraper struct {
	fetcher   Fetcher
	open      StoreOpener
	archive   BlobStore
	publisher Publisher
	limiter   Limiter
	hasher    Hasher
	clock     Clock
	cfg       ScraperConfig
	logger    *zap.Logger
}

// NewScraper constructs a Scraper. archive, publisher, limiter, hasher and
// clock may be nil.
func NewScraper(
	fetcher Fetcher,
	open StoreOpener,
	archive BlobStore,
	publisher Publisher,
	limiter Limiter,
	hasher Hasher,
	clock Clock,
	cfg ScraperConfig,
	logger *zap.Logger,
) *Scraper {
	if cfg.ContentType == "" {
		cfg.ContentType = "text/html; charset=utf-8"
	}
	return &Scraper{
		fetcher:   fetcher,
		open:      open,
		archive:   archive,
		publisher: publisher,
		limiter:   limiter,
		hasher:    hasher,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run opens the store for the duration of the batch and processes every URL in
// the input artifact. Only a store that cannot be opened fails the run.
func (s *Scraper) Run(ctx context.Context) (ScrapeResult, error) {
	ctx, span := tracer.Start(ctx, "Scraper.Run")
	defer span.End()

	store, err := s.open(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return ScrapeResult{}, fmt.Errorf("open document store: %w", err)
	}
	defer func() {
		if cerr := store.Close(context.WithoutCancel(ctx)); cerr != nil {
			s.logger.Warn("failed to close document store", zap.Error(cerr))
		}
	}()

	var result ScrapeResult
	if s.cfg.Debug {
		deleted, err := store.Clear(ctx)
		if err != nil {
			s.logger.Error("failed to clear collection", zap.Error(err))
		} else {
			result.Cleared = deleted
			s.logger.Info("debug mode: cleared collection", zap.Int64("deleted", deleted))
		}
	}

	urls, err := ReadDetailURLs(s.cfg.Input)
	if err != nil {
		s.logger.Error("failed to load detail links", zap.String("path", s.cfg.Input), zap.Error(err))
		return result, nil
	}
	result.Total = len(urls)
	span.SetAttributes(attribute.Int("urls", len(urls)))

	for i, url := range urls {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("detail scrape interrupted: %w", err)
		}
		s.logger.Info("processing detail page",
			zap.Int("index", i+1),
			zap.Int("total", len(urls)),
			zap.String("url", url),
		)
		if err := s.processURL(ctx, store, url, &result); err != nil {
			result.Failed++
			s.logger.Error("failed to process detail page", zap.String("url", url), zap.Error(err))
		}
	}

	s.logger.Info("detail scrape finished",
		zap.Int("total", result.Total),
		zap.Int("upserted", result.Upserted),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *Scraper) processURL(ctx context.Context, store DocumentStore, url string, result *ScrapeResult) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, url); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}
	page, err := s.fetcher.Fetch(ctx, FetchRequest{URL: url, Timeout: s.cfg.Timeout})
	if err != nil {
		metrics.ObservePage(stageDetails, url, metrics.StatusFailed, 0)
		return fmt.Errorf("fetch: %w", err)
	}
	metrics.ObservePage(stageDetails, url, metrics.StatusSuccess, len(page.Body))
	result.Fetched++

	drug, err := ParseDrug(url, page.Body, s.cfg.BoundSections)
	if err != nil {
		return err
	}
	doc := drug.Document()
	if err := store.Upsert(ctx, doc); err != nil {
		metrics.ObserveDocument(metrics.StatusFailed)
		return fmt.Errorf("upsert document: %w", err)
	}
	metrics.ObserveDocument(metrics.StatusSuccess)
	result.Upserted++
	s.logger.Info("upserted document",
		zap.String("url", url),
		zap.String("name", doc.Name),
		zap.Int("sections", len(doc.Details)),
	)

	uri := s.archivePage(ctx, page)
	s.publishNotice(ctx, doc, uri)
	return nil
}

// archivePage stores the raw HTML. Failures are logged and leave uri empty.
func (s *Scraper) archivePage(ctx context.Context, page Page) string {
	if s.archive == nil || s.hasher == nil {
		return ""
	}
	hash, err := s.hasher.Hash(page.Body)
	if err != nil {
		s.logger.Warn("hash page body failed", zap.String("url", page.URL), zap.Error(err))
		return ""
	}
	path := s.blobPath(hash)
	uri, err := s.archive.PutObject(ctx, path, s.cfg.ContentType, bytes.NewReader(page.Body))
	if err != nil {
		s.logger.Warn("archive page failed", zap.String("url", page.URL), zap.Error(err))
		return ""
	}
	s.logger.Debug("archived page", zap.String("url", page.URL), zap.String("blob_uri", uri))
	return uri
}

func (s *Scraper) blobPath(hash string) string {
	day := "undated"
	if s.clock != nil {
		day = s.clock.Now().UTC().Format("2006-01-02")
	}
	parts := []string{strings.Trim(s.cfg.ArchivePrefix, "/"), day, s.cfg.RunID, hash + ".html"}
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "/")
}

func (s *Scraper) publishNotice(ctx context.Context, doc Document, uri string) {
	if s.publisher == nil || s.cfg.Topic == "" {
		return
	}
	notice := UpsertNotice{
		RunID:    s.cfg.RunID,
		URL:      doc.URL,
		Name:     doc.Name,
		Sections: len(doc.Details),
		BlobURI:  uri,
	}
	id, err := s.publisher.Publish(ctx, s.cfg.Topic, notice)
	if err != nil {
		s.logger.Warn("publish upsert notice failed", zap.String("url", doc.URL), zap.Error(err))
		return
	}
	s.logger.Debug("published upsert notice", zap.String("url", doc.URL), zap.String("message_id", id))
}

// DebugEnabled reports whether a DEBUG environment value turns on debug mode.
func DebugEnabled(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "t":
		return true
	default:
		return false
	}
}

