package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://MedlinePlus.gov/druginfo/meds/a1.html", "medlineplus.gov"},
		{"no scheme", "example.com/path", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestObservers(t *testing.T) {
	ObservePage("links", "https://medlineplus.gov/druginfo/drug_Aa.html", StatusSuccess, 10)
	if val := testutil.ToFloat64(pagesTotal.WithLabelValues("links", "medlineplus.gov", StatusSuccess)); val < 1 {
		t.Errorf("expected page counter >= 1, got %f", val)
	}
	if val := testutil.ToFloat64(bytesTotal.WithLabelValues("links")); val < 10 {
		t.Errorf("expected bytes counter >= 10, got %f", val)
	}

	before := testutil.ToFloat64(linksDiscoveredTotal.WithLabelValues("categories"))
	ObserveLinks("categories", 0)
	ObserveLinks("categories", 3)
	if got := testutil.ToFloat64(linksDiscoveredTotal.WithLabelValues("categories")) - before; got != 3 {
		t.Errorf("expected 3 new links, got %f", got)
	}

	ObserveDocument(StatusFailed)
	if val := testutil.ToFloat64(documentsTotal.WithLabelValues(StatusFailed)); val < 1 {
		t.Errorf("expected document counter >= 1, got %f", val)
	}

	ObserveRateLimitDelay("medlineplus.gov", 2*time.Millisecond)
}

func TestRouter(t *testing.T) {
	ts := httptest.NewServer(Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from /healthz, got %d", resp.StatusCode)
	}

	ObserveDocument(StatusSuccess)
	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "druginfo_documents_total") {
		t.Fatal("expected druginfo_documents_total in metrics output")
	}
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://medlineplus.gov", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
