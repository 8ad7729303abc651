package discover

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Anchors collects every <a href> from list-page HTML, resolved against
// the base URL. Fragment-only and javascript: links are dropped;
// duplicates are removed preserving first-seen order. Allow-list and
// asset filtering are the caller's concern.
func Anchors(baseURL, htmlBody string) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base url %q: %w", baseURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return nil, fmt.Errorf("failed to parse list page html: %w", err)
	}

	var out []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		if strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return
		}

		ref, parseErr := url.Parse(href)
		if parseErr != nil {
			return
		}

		out = append(out, base.ResolveReference(ref).String())
	})

	return Dedupe(out), nil
}
