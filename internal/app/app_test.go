package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/druginfo-crawler/internal/config"
	"github.com/JakeFAU/druginfo-crawler/internal/crawler"
)

func testConfig(t *testing.T, body string) config.Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	cfg.Artifacts.CategoryLinks = filepath.Join(dir, "drug_details.json")
	cfg.Artifacts.DetailURLs = filepath.Join(dir, "meds_links.json")
	cfg.HTTP.PageDelay = 0
	return cfg
}

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/druginformation.html", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<div class="section-body"><a href="/druginfo/drug_Aa.html">A</a><a href="druginfo/drug_Bb.html">B</a></div>`)
	})
	mux.HandleFunc("/druginfo/drug_Aa.html", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<a href="./meds/a682878.html">Abacavir</a><a href="./meds/a601050.html">Acetaminophen</a>`)
	})
	mux.HandleFunc("/druginfo/drug_Bb.html", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<a href="/druginfo/meds/a601050.html">Acetaminophen</a><a href="./meds/a682159.html">Baclofen</a>`)
	})
	mux.HandleFunc("/druginfo/meds/a682878.html", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<h1>Abacavir</h1><h2>Why is this medication prescribed?</h2><div class="section-body"><p>Abacavir is used to treat HIV.</p></div>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestPipelineWithMemoryStore(t *testing.T) {
	t.Parallel()
	srv := newSite(t)
	cfg := testConfig(t, `{
  "store": {"driver": "memory"},
  "archive": {"driver": "memory", "prefix": "raw"},
  "pubsub": {"driver": "memory", "topic": "drug-upserts"}
}`)
	cfg.Site.BaseURL = srv.URL
	cfg.Site.ListingURL = srv.URL + "/druginformation.html"

	a, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	ctx := context.Background()

	collected, err := a.Collector().Run(ctx)
	require.NoError(t, err)
	assert.Len(t, collected.Links, 2)

	links, err := a.LinkExtractor().Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://medlineplus.gov/druginfo/meds/a682878.html",
		"https://medlineplus.gov/druginfo/meds/a601050.html",
		"https://medlineplus.gov/druginfo/meds/a682159.html",
	}, links.Links)

	detail := srv.URL + "/druginfo/meds/a682878.html"
	require.NoError(t, crawler.WriteDetailURLs(cfg.Artifacts.DetailURLs, []string{detail, srv.URL + "/druginfo/meds/missing.html"}))
	scraper, err := a.Scraper(ctx)
	require.NoError(t, err)
	res, err := scraper.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Upserted)
	assert.Equal(t, 1, res.Failed)

	doc, ok := a.MemoryStore().Get(detail)
	require.True(t, ok)
	assert.Equal(t, "Abacavir", doc.Name)
	assert.Equal(t, []crawler.Detail{{
		Heading: "Why is this medication prescribed?",
		Content: "Abacavir is used to treat HIV.",
	}}, doc.Details)

	notices := a.MemoryPublisher().Notices("drug-upserts")
	require.Len(t, notices, 1)
	assert.Equal(t, detail, notices[0].URL)
	assert.Equal(t, a.RunID(), notices[0].RunID)
	assert.Equal(t, 1, notices[0].Sections)
	require.True(t, strings.HasPrefix(notices[0].BlobURI, "memory://raw/"))
	page, ok := a.MemoryArchive().Object(strings.TrimPrefix(notices[0].BlobURI, "memory://"))
	require.True(t, ok)
	assert.Contains(t, string(page), "<h1>Abacavir</h1>")

	assert.True(t, a.CheckStore(ctx).OK)
}

func TestOpenStoreMissingMongoURL(t *testing.T) {
	t.Parallel()
	a, err := New(testConfig(t, `{}`), zap.NewNop())
	require.NoError(t, err)

	_, err = a.OpenStore(context.Background())
	require.ErrorIs(t, err, crawler.ErrMissingMongoURL)

	check := a.CheckStore(context.Background())
	assert.False(t, check.OK)
	assert.Contains(t, check.Message, "the config file does not contain 'mongo_url'")
}

func TestScraperWithLocalArchive(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t, `{"store": {"driver": "memory"}}`)
	cfg.Archive.Driver = config.ArchiveLocal
	cfg.Archive.BaseDir = filepath.Join(t.TempDir(), "raw")

	a, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	scraper, err := a.Scraper(context.Background())
	require.NoError(t, err)
	require.NotNil(t, scraper)
	assert.DirExists(t, cfg.Archive.BaseDir)
	assert.NotEmpty(t, a.RunID())
}
