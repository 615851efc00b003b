package crawler

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrContainerNotFound is returned when the listing page lacks its link container.
var ErrContainerNotFound = errors.New("link container not found")

const (
	contentSelector = "div.section-body"
	headingSelector = "h2, h3"
)

func parseHTML(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// cleanText collapses runs of whitespace and trims the result.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ParseCategoryLinks extracts the anchors of the listing page's first
// section-body container as absolute links. Anchors without an href are
// skipped; order follows the page.
func ParseCategoryLinks(body []byte, baseURL string) ([]CategoryLink, error) {
	doc, err := parseHTML(body)
	if err != nil {
		return nil, err
	}
	container := doc.Find(contentSelector).First()
	if container.Length() == 0 {
		return nil, ErrContainerNotFound
	}
	var links []CategoryLink
	container.Find("a").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return
		}
		links = append(links, CategoryLink{Link: AbsoluteCategoryLink(baseURL, href)})
	})
	return links, nil
}

// ParseMedsLinks returns every detail-page URL referenced by the page, in page
// order. Duplicates are kept; callers dedupe across the batch.
func ParseMedsLinks(body []byte, host string) ([]string, error) {
	doc, err := parseHTML(body)
	if err != nil {
		return nil, err
	}
	var out []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if link, ok := RewriteMedsHref(host, href); ok {
			out = append(out, link)
		}
	})
	return out, nil
}

// ParseDrug extracts the drug name from the first h1 and one section per h2/h3.
//
// A section's content is the text of the first div.section-body that follows
// its heading in document order. With bounded set, the search stops at the next
// h2/h3, so a heading without its own body is reported as not found instead of
// borrowing a later section's text.
func ParseDrug(url string, body []byte, bounded bool) (Drug, error) {
	doc, err := parseHTML(body)
	if err != nil {
		return Drug{}, err
	}
	drug := Drug{URL: url}
	if h1 := doc.Find("h1").First(); h1.Length() > 0 {
		drug.Name = found(cleanText(h1.Text()))
	}

	type marker struct {
		heading bool
		text    string
	}
	var markers []marker
	doc.Find(headingSelector + ", " + contentSelector).Each(func(_ int, s *goquery.Selection) {
		markers = append(markers, marker{
			heading: s.Is(headingSelector),
			text:    cleanText(s.Text()),
		})
	})

	for i, m := range markers {
		if !m.heading {
			continue
		}
		section := Section{Heading: m.text}
		for _, next := range markers[i+1:] {
			if next.heading {
				if bounded {
					break
				}
				continue
			}
			section.Content = found(next.text)
			break
		}
		drug.Sections = append(drug.Sections, section)
	}
	return drug, nil
}
