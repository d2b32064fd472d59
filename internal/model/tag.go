package model

// Tag は記事に付与されるタグを表す。
// ID はタグ名そのもの（自然キー）で、サロゲートキーは持たない。
// 1件以上の ArticleTag から参照されている間だけ存在する。
type Tag struct {
	ID string
}

// ArticleTag は記事とタグの結合行を表す。
// Tag はリコンサイル時に解決済みのタグを指す。新規タグの場合は未保存の Tag を指す。
type ArticleTag struct {
	ArticleID int64
	TagID     string
	Tag       *Tag
}
