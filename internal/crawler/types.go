package crawler

import (
	"fmt"
	"net/http"
	"time"
)

// Site defaults for MedlinePlus.
const (
	DefaultBaseURL    = "https://medlineplus.gov"
	DefaultListingURL = "https://medlineplus.gov/druginformation.html"
	DefaultHost       = "medlineplus.gov"
	DefaultUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/58.0.3029.110 Safari/537.3"
)

// Values substituted for absent fields when a drug is rendered as a stored document.
const (
	UnknownName    = "Unknown"
	MissingContent = "No detailed information available"
)

// CategoryLink is one entry of the listing page, e.g. the "A" drug index.
type CategoryLink struct {
	Link string `json:"link"`
}

// Text is an extracted value that remembers whether the source element existed.
type Text struct {
	Value string
	Found bool
}

// found wraps a value that was present on the page.
func found(value string) Text {
	return Text{Value: value, Found: true}
}

// Or returns the value when it was found, otherwise fallback.
func (t Text) Or(fallback string) string {
	if !t.Found {
		return fallback
	}
	return t.Value
}

// Section is a heading plus the text of the body container associated with it.
type Section struct {
	Heading string
	Content Text
}

// Drug is the parsed form of one detail page.
type Drug struct {
	URL      string
	Name     Text
	Sections []Section
}

// Document renders the drug in its stored shape.
func (d Drug) Document() Document {
	details := make([]Detail, 0, len(d.Sections))
	for _, s := range d.Sections {
		details = append(details, Detail{
			Heading: s.Heading,
			Content: s.Content.Or(MissingContent),
		})
	}
	return Document{
		URL:     d.URL,
		Name:    d.Name.Or(UnknownName),
		Details: details,
	}
}

// Document is persisted once per detail URL and keyed by URL.
type Document struct {
	URL     string   `json:"url" bson:"url"`
	Name    string   `json:"name" bson:"name"`
	Details []Detail `json:"details" bson:"details"`
}

// Detail is the stored form of a Section.
type Detail struct {
	Heading string `json:"heading" bson:"heading"`
	Content string `json:"content" bson:"content"`
}

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	URL string
	// Timeout bounds the whole request; zero means no timeout.
	Timeout time.Duration
	Headers http.Header
}

// Page is the result returned by a Fetcher implementation.
type Page struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.URL)
}

// UpsertNotice is published after a document has been written.
type UpsertNotice struct {
	RunID    string `json:"run_id"`
	URL      string `json:"url"`
	Name     string `json:"name"`
	Sections int    `json:"sections"`
	BlobURI  string `json:"blob_uri,omitempty"`
}
