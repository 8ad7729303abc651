package extract

import (
	"strings"

	"github.com/hojomatch/hojocrawl/internal/domain"
	"github.com/hojomatch/hojocrawl/internal/textnorm"
)

// Title length bounds for plaintext extraction: a usable title line is
// neither a stray word nor a paragraph.
const (
	textTitleMinRunes = 8
	textTitleMaxRunes = 80
)

// FromText extracts a page record from plain text, as returned by the
// deep-research provider. The regex field set matches FromHTML.
func FromText(pageURL, text string) *domain.Page {
	page := &domain.Page{URL: pageURL, Title: domain.UntitledTitle}

	for _, line := range strings.Split(text, "\n") {
		normed := textnorm.NormWS(line)

		n := len([]rune(normed))
		if n >= textTitleMinRunes && n <= textTitleMaxRunes {
			page.Title = normed
			break
		}
	}

	page.Summary = optional(textnorm.Clip(textnorm.NormWS(text), textnorm.DefaultClipLimit))

	applyFieldRegexes(page, text)

	return page
}

// researchTitleMaxRunes bounds the synthesised title length.
const researchTitleMaxRunes = 80

// FromResearchText synthesises a record from deep-research text: the
// first line becomes the title (clipped to 80 runes, placeholder when
// empty) and the normalised text becomes the summary. Used by the
// backfill ladder, which trusts the provider to have isolated main text
// already, so no field regexes run.
func FromResearchText(pageURL, text string) *domain.Page {
	firstLine, _, _ := strings.Cut(text, "\n")

	title := textnorm.Clip(textnorm.NormWS(firstLine), researchTitleMaxRunes)
	if title == "" {
		title = domain.ExcerptTitle
	}

	return &domain.Page{
		URL:     pageURL,
		Title:   title,
		Summary: optional(textnorm.Clip(textnorm.NormWS(text), textnorm.DefaultClipLimit)),
	}
}
