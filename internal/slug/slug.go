// Package slug は記事タイトルからURL用のslugを生成する。
package slug

import (
	"regexp"
	"strconv"
	"strings"
)

// MaxBaseLength はID接尾辞を付与する前のslug本体の最大文字数。
const MaxBaseLength = 45

var (
	invalidChars = regexp.MustCompile(`[^a-z0-9\s-]`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// Generate はタイトルと記事IDからslugを生成する。
// 同じ入力には常に同じslugを返す。タイトルが空の場合は false を返す。
//
//	Generate("A  Test!! Title", 42) => "a-test-title-42", true
func Generate(title string, id int64) (string, bool) {
	if title == "" {
		return "", false
	}

	s := strings.ToLower(title)
	s = invalidChars.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	if len(s) > MaxBaseLength {
		s = strings.TrimSpace(s[:MaxBaseLength])
	}
	s = whitespace.ReplaceAllString(s, "-")

	return s + "-" + strconv.FormatInt(id, 10), true
}
