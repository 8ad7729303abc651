package extract

import (
	"net/url"
	"path"
	"strings"

	"github.com/hojomatch/hojocrawl/internal/domain"
)

// PDFRow builds the placeholder record for a PDF document: the base
// filename (without extension) as title and a fixed "body not parsed"
// summary. PDF bodies are never downloaded or parsed.
func PDFRow(pdfURL string) *domain.Page {
	title := "(PDF)"

	if u, err := url.Parse(pdfURL); err == nil {
		base := path.Base(u.Path)
		if base != "." && base != "/" && base != "" {
			base = strings.TrimSuffix(strings.TrimSuffix(base, ".pdf"), ".PDF")
			title = base + " (PDF)"
		}
	}

	summary := domain.PDFSummary

	return &domain.Page{
		URL:     pdfURL,
		Title:   title,
		Summary: &summary,
	}
}
