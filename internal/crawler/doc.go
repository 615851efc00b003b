// Package crawler implements the drug-information pipeline: the category link
// collector, the drug link extractor, the store connectivity check, and the
// detail scraper that upserts one document per drug page.
package crawler
