package article

import (
	"context"
	"fmt"

	"github.com/hitoshi/conduit/internal/model"
)

// loadGraph は記事群の著者・タグ付け・お気に入りをまとめて読み込む。
// 記事数に関わらず問い合わせは関連ごとに1回。
func (s *Service) loadGraph(ctx context.Context, articles []*model.Article) error {
	if len(articles) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(articles))
	authorIDs := make([]int64, 0, len(articles))
	for _, a := range articles {
		ids = append(ids, a.ID)
		authorIDs = append(authorIDs, a.AuthorID)
	}

	tagRows, err := s.articleTags.ListByArticleIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("記事タグの取得に失敗しました: %w", err)
	}
	favRows, err := s.favorites.ListByArticleIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("お気に入りの取得に失敗しました: %w", err)
	}
	authors, err := s.persons.FindByIDs(ctx, authorIDs)
	if err != nil {
		return fmt.Errorf("著者の取得に失敗しました: %w", err)
	}

	tagsByArticle := make(map[int64][]model.ArticleTag, len(articles))
	for _, at := range tagRows {
		tagsByArticle[at.ArticleID] = append(tagsByArticle[at.ArticleID], at)
	}
	favsByArticle := make(map[int64][]model.ArticleFavorite, len(articles))
	for _, f := range favRows {
		favsByArticle[f.ArticleID] = append(favsByArticle[f.ArticleID], f)
	}
	authorByID := make(map[int64]*model.Person, len(authors))
	for _, p := range authors {
		authorByID[p.ID] = p
	}

	for _, a := range articles {
		a.ArticleTags = tagsByArticle[a.ID]
		a.ArticleFavorites = favsByArticle[a.ID]
		if p, ok := authorByID[a.AuthorID]; ok {
			// 記事ごとに following を設定するため著者はコピーして持たせる
			author := *p
			a.Author = &author
		}
	}
	return nil
}
