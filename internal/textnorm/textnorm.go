// Package textnorm provides the text normalisation and content hashing
// primitives used by the extractors and the page store.
package textnorm

import (
	"crypto/md5" //nolint:gosec // change-detection fingerprint, not security
	"encoding/hex"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/hojomatch/hojocrawl/internal/domain"
)

// DefaultClipLimit is the rune limit applied to summaries.
const DefaultClipLimit = 800

// wsRun matches runs of ASCII and Unicode whitespace.
var wsRun = regexp.MustCompile(`[\s\p{Zs}]+`)

// NormWS applies NFKC compatibility normalisation, collapses whitespace
// runs to a single space and trims. Empty input yields "".
func NormWS(s string) string {
	if s == "" {
		return ""
	}

	folded := norm.NFKC.String(s)

	return strings.TrimSpace(wsRun.ReplaceAllString(folded, " "))
}

// Clip truncates s to at most limit runes. The limit counts code points,
// not bytes, so multi-byte Japanese text clips correctly.
func Clip(s string, limit int) string {
	if limit <= 0 {
		return s
	}

	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit])
}

// ContentHash computes the MD5 fingerprint over the seven content-bearing
// fields joined by "||", rendering nil fields as empty strings. Records
// with identical hashed fields always produce the same hash.
func ContentHash(p *domain.Page) string {
	basis := strings.Join([]string{
		p.Title,
		deref(p.Summary),
		deref(p.Rate),
		deref(p.Cap),
		deref(p.Target),
		deref(p.CostItems),
		deref(p.Deadline),
	}, "||")

	sum := md5.Sum([]byte(basis)) //nolint:gosec // see above

	return hex.EncodeToString(sum[:])
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
