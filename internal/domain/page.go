// Package domain defines the core types shared across the crawler.
package domain

import "time"

// UntitledTitle is the placeholder title for pages whose title could not
// be extracted.
const UntitledTitle = "(無題)"

// PDFSummary is the placeholder summary for PDF documents whose body is
// not parsed.
const PDFSummary = "PDF（本文未解析）"

// ExcerptTitle is the placeholder title for records synthesised from
// provider-extracted text whose first line was empty.
const ExcerptTitle = "(本文抜粋)"

// SentinelURL marks the reserved ops-tooling row. It is excluded from
// page counts and run summaries.
const SentinelURL = "https://example.com/sentinel"

// Page is the canonical record for a fetched document, keyed by URL.
// Optional fields are nil when the extractor found nothing.
type Page struct {
	URL         string     `db:"url"          json:"url"`
	Title       string     `db:"title"        json:"title"`
	Summary     *string    `db:"summary"      json:"summary"`
	Rate        *string    `db:"rate"         json:"rate"`
	Cap         *string    `db:"cap"          json:"cap"`
	Target      *string    `db:"target"       json:"target"`
	CostItems   *string    `db:"cost_items"   json:"cost_items"`
	Deadline    *string    `db:"deadline"     json:"deadline"`
	FiscalYear  *string    `db:"fiscal_year"  json:"fiscal_year"`
	CallNo      *string    `db:"call_no"      json:"call_no"`
	SchemeType  *string    `db:"scheme_type"  json:"scheme_type"`
	PeriodFrom  *string    `db:"period_from"  json:"period_from"`
	PeriodTo    *string    `db:"period_to"    json:"period_to"`
	ContentHash string     `db:"content_hash" json:"content_hash,omitempty"`
	LastFetched *time.Time `db:"last_fetched" json:"last_fetched,omitempty"`
}

// HTTPCacheEntry holds the conditional-request freshness metadata for a URL.
type HTTPCacheEntry struct {
	URL           string    `db:"url"`
	ETag          *string   `db:"etag"`
	LastModified  *string   `db:"last_modified"`
	LastStatus    int       `db:"last_status"`
	LastCheckedAt time.Time `db:"last_checked_at"`
	LastChangedAt time.Time `db:"last_changed_at"`
}

// Candidate is a URL proposed for fetching in the current run, optionally
// carrying fields a discovery provider already extracted.
type Candidate struct {
	URL        string
	Title      string
	Summary    string
	Rate       string
	Cap        string
	FiscalYear string
	CallNo     string
}
