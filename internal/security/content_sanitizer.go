// Package security は記事本文などの利用者入力を安全に扱うための機能を提供する。
package security

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizer は記事の説明文・本文に含まれるHTMLを許可リストでサニタイズする。
// 同一入力に対して常に同一出力を返す。並行呼び出しに対して安全。
type ContentSanitizer struct {
	policy *bluemonday.Policy
}

var codeLanguageClass = regexp.MustCompile(`^language-[a-zA-Z0-9_+-]+$`)

// NewContentSanitizer は記事コンテンツ用のポリシーでContentSanitizerを生成する。
//   - 見出し・段落・リスト・引用・コード・表などMarkdownが生成する要素を許可
//   - script, iframe, style, form と on* 属性は除去
//   - リンクは http/https/mailto と相対URLを許可し rel="nofollow noopener noreferrer" を付与
//   - 画像の src もリンクと同じスキームに限る
func NewContentSanitizer() *ContentSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"h1", "h2", "h3", "h4", "h5", "h6",
		"p", "br", "hr",
		"ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em", "del", "sup", "sub",
		"table", "thead", "tbody", "tr", "th", "td",
	)

	p.AllowAttrs("class").Matching(codeLanguageClass).OnElements("code")
	p.AllowAttrs("align").Matching(bluemonday.CellAlign).OnElements("th", "td")

	p.AllowAttrs("href", "title").OnElements("a")
	p.AllowStandardURLs()
	p.AllowURLSchemes("http", "https", "mailto")
	p.RequireNoFollowOnLinks(true)
	p.RequireNoReferrerOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)

	p.AllowAttrs("src", "alt", "title").OnElements("img")

	return &ContentSanitizer{policy: p}
}

// Sanitize はHTMLをサニタイズして返す。空文字列には空文字列を返す。
func (s *ContentSanitizer) Sanitize(rawHTML string) string {
	if rawHTML == "" {
		return ""
	}
	return s.policy.Sanitize(rawHTML)
}
