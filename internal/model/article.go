package model

import "time"

// Article は著者が公開する記事を表す。
// Author / ArticleTags / ArticleFavorites は明示的に読み込んだ場合のみ設定される。
type Article struct {
	ID          int64
	Slug        string
	Title       string
	Description string
	Body        string
	AuthorID    int64
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Author           *Person
	ArticleTags      []ArticleTag
	ArticleFavorites []ArticleFavorite

	// Favorited は閲覧者ごとのレスポンス用フラグ。永続化しない。
	Favorited bool
}

// TagList は記事に付与されたタグIDを関連付け順に返す。
func (a *Article) TagList() []string {
	tags := make([]string, 0, len(a.ArticleTags))
	for _, at := range a.ArticleTags {
		tags = append(tags, at.TagID)
	}
	return tags
}

// FavoritesCount は記事をお気に入り登録した人数を返す。
func (a *Article) FavoritesCount() int {
	return len(a.ArticleFavorites)
}

// ArticleFavorite は人物が記事をお気に入り登録したことを表す結合行。
type ArticleFavorite struct {
	ArticleID int64
	PersonID  int64
}

// ArticleFilter は記事一覧の絞り込み条件を表す。
// 各フィールドは解決済みのIDで、nil/空文字は条件なしを意味する。
type ArticleFilter struct {
	// FollowerID が設定されている場合、その人物がフォローしている著者の記事に限定する。
	FollowerID *int64
	// TagID が設定されている場合、そのタグが付与された記事に限定する。
	TagID string
	// AuthorID が設定されている場合、その著者の記事に限定する。
	AuthorID *int64
	// FavoritedByID が設定されている場合、その人物がお気に入り登録した記事に限定する。
	FavoritedByID *int64
}

// Page はオフセットベースのページネーション指定を表す。
type Page struct {
	Offset int
	Limit  int
}
