package discover

import (
	"net/url"
	"regexp"
	"strings"
)

// assetExtRE matches URLs whose path ends in a static-asset extension,
// optionally followed by a query string.
var assetExtRE = regexp.MustCompile(`(?i)\.(js|mjs|css|png|jpe?g|gif|svg|ico|json|map|woff2?|ttf|eot|mp4|webm)($|\?)`)

// IsDocumentURL reports whether u is an http(s) URL that does not look
// like a static asset.
func IsDocumentURL(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}

	return !assetExtRE.MatchString(u)
}

// HostAllowed reports whether host matches any allowed entry, either
// exactly or as a parent domain suffix.
func HostAllowed(host string, allowed []string) bool {
	host = strings.ToLower(host)
	for _, a := range allowed {
		a = strings.ToLower(a)
		if host == a || strings.HasSuffix(host, a) {
			return true
		}
	}

	return false
}

// URLAllowed reports whether u parses and its host is on the allow-list.
func URLAllowed(u string, allowed []string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}

	return HostAllowed(parsed.Hostname(), allowed)
}

// Dedupe removes duplicate URLs preserving first-seen order.
func Dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}

	return out
}
