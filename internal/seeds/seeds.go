// Package seeds loads the crawl seed file: the host allow-list and the
// list-page sources with their link-selection rules.
package seeds

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultMaxNew caps candidates per source when the seed entry does not
// specify max_new.
const DefaultMaxNew = 20

var (
	// ErrNoSources indicates no sources were found in the seed file.
	ErrNoSources = errors.New("no sources found in seed file")
)

// Source describes one list page and its candidate-selection rules.
type Source struct {
	URL      string   `yaml:"url"`
	Include  []string `yaml:"include"`
	Exclude  []string `yaml:"exclude"`
	MaxNew   int      `yaml:"max_new"`
	Discover string   `yaml:"discover"`
	Query    string   `yaml:"query"`
}

// File is the parsed seed file.
type File struct {
	AllowedHosts []string `yaml:"allowed_hosts"`
	Sources      []Source `yaml:"sources"`
}

// Load reads and validates a seed file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var f File
	if unmarshalErr := yaml.Unmarshal(data, &f); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", unmarshalErr)
	}

	if len(f.Sources) == 0 {
		return nil, ErrNoSources
	}

	for i := range f.Sources {
		if f.Sources[i].URL == "" {
			return nil, fmt.Errorf("source %d: missing url", i)
		}
		if f.Sources[i].MaxNew <= 0 {
			f.Sources[i].MaxNew = DefaultMaxNew
		}
	}

	return &f, nil
}

// HostAllowed reports whether the URL's host equals or is a sub-domain of
// an allow-listed host.
func (f *File) HostAllowed(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	host := u.Host
	for _, allowed := range f.AllowedHosts {
		if host == allowed || strings.HasSuffix(host, allowed) {
			return true
		}
	}

	return false
}

// Matchers compiles the include/exclude regex lists for a source. Invalid
// patterns are reported rather than silently dropped.
func (s Source) Matchers() (include, exclude []*regexp.Regexp, err error) {
	for _, p := range s.Include {
		re, compileErr := regexp.Compile(p)
		if compileErr != nil {
			return nil, nil, fmt.Errorf("source %s: bad include pattern %q: %w", s.URL, p, compileErr)
		}

		include = append(include, re)
	}

	for _, p := range s.Exclude {
		re, compileErr := regexp.Compile(p)
		if compileErr != nil {
			return nil, nil, fmt.Errorf("source %s: bad exclude pattern %q: %w", s.URL, p, compileErr)
		}

		exclude = append(exclude, re)
	}

	return include, exclude, nil
}
