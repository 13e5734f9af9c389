// Package collector implements the signal sources: GitHub releases, RSS
// feeds and public Telegram channels. Each collector is independent; a
// failing one contributes zero signals and never aborts the run.
package collector

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	defaultTimeout = 30 * time.Second

	// maxContentLength bounds the content carried on a signal. Scoring
	// prompts and fingerprints only need the head of the text.
	maxContentLength = 2000
)

var reWhitespace = regexp.MustCompile(`\s+`)

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

// stripHTML reduces an HTML fragment to collapsed plain text. Parse
// failures fall back to the raw input.
func stripHTML(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	doc.Find("script, style").Remove()
	return collapseWhitespace(doc.Text())
}

func collapseWhitespace(text string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(text, " "))
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := text[:limit]
	if idx := strings.LastIndex(cut, " "); idx > limit/2 {
		cut = cut[:idx]
	}
	return cut + "..."
}
