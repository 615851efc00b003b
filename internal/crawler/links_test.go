package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRewriteMedsHref(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		host   string
		href   string
		want   string
		wantOK bool
	}{
		{"relative meds", "medlineplus.gov", "./meds/a682878.html", "https://medlineplus.gov/druginfo/meds/a682878.html", true},
		{"rooted meds", "medlineplus.gov", "/druginfo/meds/a682878.html", "https://medlineplus.gov/druginfo/meds/a682878.html", true},
		{"other host", "example.org", "./meds/x.html", "https://example.org/druginfo/meds/x.html", true},
		{"natural products", "medlineplus.gov", "./natural/123.html", "", false},
		{"absolute url", "medlineplus.gov", "https://medlineplus.gov/druginfo/meds/a1.html", "", false},
		{"meds without dot", "medlineplus.gov", "meds/a1.html", "", false},
		{"empty", "medlineplus.gov", "", "", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := RewriteMedsHref(tt.host, tt.href)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRewriteMedsHrefFormsAgree(t *testing.T) {
	t.Parallel()

	for _, id := range []string{"a682878.html", "a601050.html", "a699001.html"} {
		fromRelative, ok := RewriteMedsHref(DefaultHost, "./meds/"+id)
		assert.True(t, ok)
		fromRooted, ok := RewriteMedsHref(DefaultHost, "/druginfo/meds/"+id)
		assert.True(t, ok)
		assert.Equal(t, fromRelative, fromRooted)
		assert.Equal(t, "https://medlineplus.gov/druginfo/meds/"+id, fromRelative)
	}
}

func TestAbsoluteCategoryLink(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://medlineplus.gov/druginfo/drug_Aa.html",
		AbsoluteCategoryLink(DefaultBaseURL, "druginfo/drug_Aa.html"))
	assert.Equal(t, "https://medlineplus.gov/druginfo/drug_Aa.html",
		AbsoluteCategoryLink(DefaultBaseURL+"/", "/druginfo/drug_Aa.html"))
	assert.Equal(t, "https://example.org/x.html",
		AbsoluteCategoryLink(DefaultBaseURL, "https://example.org/x.html"))
}
