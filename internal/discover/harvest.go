package discover

import (
	"net/url"
	"regexp"
)

// urlRE matches URL-shaped substrings in raw page bodies.
var urlRE = regexp.MustCompile(`(?i)https?://[^\s"'<>]+`)

// Harvest scans a raw body for URL-shaped substrings whose host is on
// the trusted-host list. List pages on government sites often carry
// plain-text URLs outside anchor tags; this lane picks those up.
func Harvest(body string, trustedHosts []string) []string {
	var out []string
	for _, match := range urlRE.FindAllString(body, -1) {
		u, err := url.Parse(match)
		if err != nil {
			continue
		}
		if !HostAllowed(u.Hostname(), trustedHosts) {
			continue
		}

		out = append(out, match)
	}

	return Dedupe(out)
}
