package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadingID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello-world"},
		{"  Getting   Started!  ", "getting-started"},
		{"C++ & Rust: a comparison", "c-rust-a-comparison"},
		{"ROS 2 入门指南", "ros-2-入门指南"},
		{"already-hyphenated -- heading", "already-hyphenated-heading"},
		{"snake_case_stays", "snake_case_stays"},
		{"???", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HeadingID(tt.in), tt.in)
	}
}

func TestRenderArticleAddsHeadingIDsAndTOC(t *testing.T) {
	md := "# Intro\n\ntext\n\n## Setup\n\n### Setup\n\n## Setup\n\n##### Deep\n"

	r, err := RenderArticle(md)
	require.NoError(t, err)

	assert.Contains(t, r.HTML, `<h1 id="intro">Intro</h1>`)
	assert.Contains(t, r.HTML, `<h2 id="setup">Setup</h2>`)
	assert.Contains(t, r.HTML, `<h3 id="setup-1">Setup</h3>`)
	assert.Contains(t, r.HTML, `<h2 id="setup-2">Setup</h2>`)
	assert.NotContains(t, r.HTML, `<h5 id=`)

	require.Len(t, r.TOC, 4)
	assert.Equal(t, TOCEntryType{ID: "intro", Text: "Intro", Level: 1}, r.TOC[0])
	assert.Equal(t, TOCEntryType{ID: "setup-1", Text: "Setup", Level: 3}, r.TOC[2])
}

func TestRenderArticleSanitises(t *testing.T) {
	md := "Hello <script>alert(1)</script>\n\n[x](javascript:alert(1))\n\n" +
		"<h2 id=\"spoof\" onclick=\"evil()\">Raw</h2>\n"

	r, err := RenderArticle(md)
	require.NoError(t, err)

	assert.NotContains(t, r.HTML, "<script")
	assert.NotContains(t, r.HTML, "javascript:")
	assert.NotContains(t, r.HTML, "onclick")
	assert.NotContains(t, r.HTML, `id="spoof"`)
}

func TestRenderArticleKeepsCodeLanguage(t *testing.T) {
	r, err := RenderArticle("```go\nfmt.Println(1)\n```\n")
	require.NoError(t, err)

	assert.Contains(t, r.HTML, `class="language-go"`)
	assert.Empty(t, r.TOC)
}

func TestPlainTextSummary(t *testing.T) {
	assert.Equal(t,
		"Title Some bold & text.",
		PlainTextSummary("# Title\n\nSome **bold** &amp; text."),
	)

	long := PlainTextSummary(strings.Repeat("word ", 100))
	assert.True(t, strings.HasSuffix(long, "…"))
	assert.LessOrEqual(t, len([]rune(long)), summaryLength+1)
}
