package extract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hojomatch/hojocrawl/internal/domain"
	"github.com/hojomatch/hojocrawl/internal/extract"
)

const subsidyHTML = `<!DOCTYPE html>
<html>
<head>
<title>令和6年度 第3回 ○○補助金</title>
<meta name="description" content="中小企業向けの設備投資補助です。">
</head>
<body>
<p>公募のご案内</p>
<div>補助率: 2/3 上限: 1,000万円
対象者: 中小企業者
対象経費: 機械装置費
</div>
</body>
</html>`

func deref(t *testing.T, s *string) string {
	t.Helper()
	require.NotNil(t, s)

	return *s
}

func TestFromHTML_SubsidyFields(t *testing.T) {
	page := extract.FromHTML("https://www.chusho.meti.go.jp/koubo/a.html", subsidyHTML)

	assert.Equal(t, "令和6年度 第3回 ○○補助金", page.Title)
	assert.Equal(t, "中小企業向けの設備投資補助です。", deref(t, page.Summary))
	assert.Equal(t, "令和6年度", deref(t, page.FiscalYear))
	assert.Equal(t, "3", deref(t, page.CallNo))
	assert.Equal(t, "2/3", deref(t, page.Rate))
	assert.Equal(t, "1,000万円", deref(t, page.Cap))
	assert.Equal(t, "中小企業者", deref(t, page.Target))
	assert.Equal(t, "機械装置費", deref(t, page.CostItems))
	assert.Nil(t, page.Deadline)
	assert.Nil(t, page.SchemeType)
}

func TestFromHTML_TitleFallbacks(t *testing.T) {
	t.Run("og title", func(t *testing.T) {
		page := extract.FromHTML("https://h/x",
			`<html><head><meta property="og:title" content="OGタイトル"></head><body></body></html>`)
		assert.Equal(t, "OGタイトル", page.Title)
	})

	t.Run("twitter title", func(t *testing.T) {
		page := extract.FromHTML("https://h/x",
			`<html><head><meta name="twitter:title" content="TWタイトル"></head><body></body></html>`)
		assert.Equal(t, "TWタイトル", page.Title)
	})

	t.Run("summary head", func(t *testing.T) {
		page := extract.FromHTML("https://h/x",
			`<html><body><p>先頭段落の説明文がそのままタイトル候補になります。</p></body></html>`)
		assert.Equal(t, "先頭段落の説明文がそのままタイトル候補になります。", page.Title)
	})

	t.Run("untitled", func(t *testing.T) {
		page := extract.FromHTML("https://h/x", `<html><body></body></html>`)
		assert.Equal(t, domain.UntitledTitle, page.Title)
		assert.Nil(t, page.Summary)
	})
}

func TestFromHTML_FullwidthAndWesternYear(t *testing.T) {
	page := extract.FromHTML("https://h/x",
		`<html><head><title>ページ</title></head><body><p>２０２５年度ではなく2025年度の募集。第１２回。</p></body></html>`)

	assert.Equal(t, "2025年度", deref(t, page.FiscalYear))
	assert.Equal(t, "12", deref(t, page.CallNo)) // full-width digits folded by NFKC
}

func TestFromHTML_LaterLabelDoesNotOverwrite(t *testing.T) {
	page := extract.FromHTML("https://h/x",
		"<html><body><div>対象者: 小規模事業者\n対象: 個人事業主\n</div></body></html>")

	// 対象者 wins; the later 対象 match must not overwrite it.
	assert.Equal(t, "小規模事業者", deref(t, page.Target))
}

func TestFromHTML_Purity(t *testing.T) {
	first := extract.FromHTML("https://h/x", subsidyHTML)

	for range 5 {
		again := extract.FromHTML("https://h/x", subsidyHTML)
		assert.Equal(t, first, again)
	}
}

func TestFromHTML_MalformedInput(t *testing.T) {
	page := extract.FromHTML("https://h/x", "<<<not html>>>")

	assert.Equal(t, "https://h/x", page.URL)
	assert.NotEmpty(t, page.Title)
}
