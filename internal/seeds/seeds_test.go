package seeds_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hojomatch/hojocrawl/internal/seeds"
)

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "seeds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	path := writeSeedFile(t, `
allowed_hosts:
  - www.chusho.meti.go.jp
  - jgrants-portal.go.jp
sources:
  - url: https://www.chusho.meti.go.jp/koukai/koubo/index.html
    include:
      - koubo
    exclude:
      - archive
    max_new: 30
  - url: https://jgrants-portal.go.jp/subsidies
    discover: tavily
    query: 公募 補助金 申請 2025
`)

	f, err := seeds.Load(path)
	require.NoError(t, err)

	assert.Len(t, f.AllowedHosts, 2)
	require.Len(t, f.Sources, 2)
	assert.Equal(t, 30, f.Sources[0].MaxNew)
	assert.Equal(t, seeds.DefaultMaxNew, f.Sources[1].MaxNew)
	assert.Equal(t, "tavily", f.Sources[1].Discover)
}

func TestLoad_NoSources(t *testing.T) {
	path := writeSeedFile(t, "allowed_hosts: [a.example]\n")

	_, err := seeds.Load(path)
	assert.ErrorIs(t, err, seeds.ErrNoSources)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := seeds.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestHostAllowed(t *testing.T) {
	f := &seeds.File{AllowedHosts: []string{"chusho.meti.go.jp", "jgrants-portal.go.jp"}}

	tests := []struct {
		url  string
		want bool
	}{
		{"https://chusho.meti.go.jp/koubo", true},
		{"https://www.chusho.meti.go.jp/koubo", true}, // sub-domain suffix
		{"https://evil.example/chusho.meti.go.jp", false},
		{"https://jgrants-portal.go.jp/x.pdf", true},
		{"https://other.go.jp/", false},
		{"://bad url", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, f.HostAllowed(tt.url), tt.url)
	}
}

func TestMatchers(t *testing.T) {
	src := seeds.Source{URL: "https://a.example/l", Include: []string{`koubo`}, Exclude: []string{`\.bak$`}}

	include, exclude, err := src.Matchers()
	require.NoError(t, err)
	assert.Len(t, include, 1)
	assert.Len(t, exclude, 1)

	_, _, err = seeds.Source{URL: "https://a.example/l", Include: []string{`[`}}.Matchers()
	assert.Error(t, err)
}
