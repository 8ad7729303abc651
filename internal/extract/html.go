// Package extract turns fetched bodies into canonical page records. All
// extractors are pure functions of (url, body): no I/O, no globals, no
// errors — parse failures degrade to null fields with a defaulted title.
package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/hojomatch/hojocrawl/internal/domain"
	"github.com/hojomatch/hojocrawl/internal/textnorm"
)

// titleFallbackRunes is how much of the summary seeds a missing title.
const titleFallbackRunes = 40

// Field regexes. Applied to the flattened page text before NFKC folding,
// so both ASCII and full-width digits must be accepted.
var (
	fiscalYearRE = regexp.MustCompile(`(令和\s*[0-9０-９]+年度|20[0-9]{2}年度)`)
	callNoRE     = regexp.MustCompile(`第\s*([0-9０-９]+)\s*回`)
	rateRE       = regexp.MustCompile(`補助率[\s:：]*([0-9０-９]+(?:\s*/\s*[0-9０-９]+)? ?%?)`)
	capRE        = regexp.MustCompile(`上限[\s:：]*([0-9０-９,，]+ ?(?:円|万円|億円)?)`)
)

// targetLabels is the ordered label list for target/cost_items capture.
// Labels containing 経費 assign to cost_items, the rest to target; an
// earlier non-null assignment is never overwritten.
var targetLabels = []string{"対象経費", "対象者", "対象"}

var labelREs = func() map[string]*regexp.Regexp {
	res := make(map[string]*regexp.Regexp, len(targetLabels))
	for _, label := range targetLabels {
		res[label] = regexp.MustCompile(label + `[\s:：]*(.+?)\n`)
	}

	return res
}()

// FromHTML extracts a page record from an HTML body.
func FromHTML(pageURL, body string) *domain.Page {
	page := &domain.Page{URL: pageURL, Title: domain.UntitledTitle}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return page
	}

	title := textnorm.NormWS(doc.Find("title").First().Text())
	if title == "" {
		title = metaContent(doc, `meta[property='og:title']`, `meta[name='twitter:title']`)
	}

	summary := metaContent(doc, `meta[name='description']`, `meta[property='og:description']`)
	if summary == "" {
		summary = textnorm.NormWS(doc.Find("p").First().Text())
	}

	if title == "" {
		title = textnorm.Clip(summary, titleFallbackRunes)
		if title == "" {
			title = domain.UntitledTitle
		}
	}

	page.Title = title
	page.Summary = optional(textnorm.Clip(summary, textnorm.DefaultClipLimit))

	text := flattenText(doc)
	applyFieldRegexes(page, text)

	return page
}

// applyFieldRegexes fills the regex-driven fields from flattened text.
func applyFieldRegexes(page *domain.Page, text string) {
	page.FiscalYear = firstMatch(fiscalYearRE, text)
	page.CallNo = firstMatch(callNoRE, text)
	page.Rate = firstMatch(rateRE, text)
	page.Cap = firstMatch(capRE, text)

	for _, label := range targetLabels {
		m := labelREs[label].FindStringSubmatch(text)
		if m == nil {
			continue
		}

		val := optional(textnorm.NormWS(m[1]))
		if val == nil {
			continue
		}

		if strings.Contains(label, "経費") {
			if page.CostItems == nil {
				page.CostItems = val
			}
		} else if page.Target == nil {
			page.Target = val
		}
	}
}

// metaContent returns the first non-empty content attribute among the
// given selectors, whitespace-normalised.
func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			if normed := textnorm.NormWS(content); normed != "" {
				return normed
			}
		}
	}

	return ""
}

// flattenText joins every text node with single spaces, preserving the
// newlines inside text nodes that the label regexes anchor on.
func flattenText(doc *goquery.Document) string {
	var b strings.Builder

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, root := range doc.Nodes {
		walk(root)
	}

	return b.String()
}

// firstMatch returns the normalised first capture (or whole match when
// the pattern has no group), nil when absent.
func firstMatch(re *regexp.Regexp, text string) *string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	captured := m[0]
	if len(m) > 1 {
		captured = m[1]
	}

	return optional(textnorm.NormWS(captured))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
