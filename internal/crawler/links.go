package crawler

import (
	"strings"
)

const (
	relativeMedsPrefix = "./meds/"
	absoluteMedsPrefix = "/druginfo/meds/"
)

// AbsoluteCategoryLink prefixes a relative listing href with baseURL.
// Hrefs that already start with "http" pass through unchanged.
func AbsoluteCategoryLink(baseURL, href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	return strings.TrimSuffix(baseURL, "/") + "/" + strings.TrimPrefix(href, "/")
}

// RewriteMedsHref maps the two relative forms used by the drug index pages,
// "./meds/X" and "/druginfo/meds/X", to https://<host>/druginfo/meds/X.
// The second return value is false for any other href.
func RewriteMedsHref(host, href string) (string, bool) {
	switch {
	case strings.HasPrefix(href, relativeMedsPrefix):
		return "https://" + host + "/druginfo" + strings.TrimPrefix(href, "."), true
	case strings.HasPrefix(href, absoluteMedsPrefix):
		return "https://" + host + href, true
	default:
		return "", false
	}
}
