package article

import (
	"context"

	"github.com/hitoshi/conduit/internal/model"
	"github.com/hitoshi/conduit/internal/profile"
)

// Enricher は記事に閲覧者ごとの favorited / following を設定する。
// これらの値は永続化せず、レスポンスごとに算出する。
type Enricher struct {
	reader *profile.Reader
}

// NewEnricher は新しいEnricherを生成する。
func NewEnricher(reader *profile.Reader) *Enricher {
	return &Enricher{reader: reader}
}

// Enrich は記事群に閲覧者ごとのフラグを設定する。
// フォロー状態は記事数に関わらず1回の問い合わせで取得する。閲覧者がいなければ全て false。
func (e *Enricher) Enrich(ctx context.Context, viewer *model.Viewer, articles ...*model.Article) error {
	authorIDs := make([]int64, 0, len(articles))
	for _, a := range articles {
		authorIDs = append(authorIDs, a.AuthorID)
	}

	following, err := e.reader.FollowingSet(ctx, viewer, authorIDs)
	if err != nil {
		return err
	}

	for _, a := range articles {
		a.Favorited = favoritedBy(a, viewer)
		if a.Author != nil {
			a.Author.Following = following[a.AuthorID]
		}
	}
	return nil
}

func favoritedBy(a *model.Article, viewer *model.Viewer) bool {
	if viewer == nil {
		return false
	}
	for _, f := range a.ArticleFavorites {
		if f.PersonID == viewer.PersonID {
			return true
		}
	}
	return false
}
