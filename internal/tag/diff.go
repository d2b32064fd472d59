// Package tag は記事タグの差分適用（リコンサイル）と未参照タグの回収を提供する。
package tag

import (
	"strings"

	"github.com/hitoshi/conduit/internal/model"
)

// Normalize は希望タグリストを集合として正規化する。
// 前後の空白を除去し、空要素と重複を取り除く。順序は最初の出現順を保つ。
func Normalize(desired []string) []string {
	seen := make(map[string]struct{}, len(desired))
	out := make([]string, 0, len(desired))
	for _, raw := range desired {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Diff は現在のタグ付けと希望タグ集合の差分を計算する。
// toCreate は現在付いていない希望タグID、toDelete は希望集合に含まれない現在のタグ付け。
func Diff(current []model.ArticleTag, desired []string) (toCreate []string, toDelete []model.ArticleTag) {
	want := Normalize(desired)

	wantSet := make(map[string]struct{}, len(want))
	for _, id := range want {
		wantSet[id] = struct{}{}
	}
	have := make(map[string]struct{}, len(current))
	for _, at := range current {
		have[at.TagID] = struct{}{}
	}

	for _, id := range want {
		if _, ok := have[id]; !ok {
			toCreate = append(toCreate, id)
		}
	}
	for _, at := range current {
		if _, ok := wantSet[at.TagID]; !ok {
			toDelete = append(toDelete, at)
		}
	}
	return toCreate, toDelete
}
