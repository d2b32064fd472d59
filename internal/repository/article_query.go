package repository

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/hitoshi/conduit/internal/model"
)

// psql はPostgreSQL向け（$n プレースホルダ）のステートメントビルダー。
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var articleColumns = []string{
	"a.article_id",
	"COALESCE(a.slug, '')",
	"a.title",
	"a.description",
	"a.body",
	"a.author_id",
	"a.created_at",
	"a.updated_at",
}

// applyFilter は一覧と件数の両方で共有する絞り込み条件を付与する。
// 条件は フィード → タグ → 著者 → お気に入り の順に積み上げる。
func applyFilter(b sq.SelectBuilder, f model.ArticleFilter) sq.SelectBuilder {
	if f.FollowerID != nil {
		b = b.Where("a.author_id IN (SELECT fp.target_id FROM followed_people fp WHERE fp.person_id = ?)", *f.FollowerID)
	}
	if f.TagID != "" {
		b = b.Where("EXISTS (SELECT 1 FROM article_tags atg WHERE atg.article_id = a.article_id AND atg.tag_id = ?)", f.TagID)
	}
	if f.AuthorID != nil {
		b = b.Where(sq.Eq{"a.author_id": *f.AuthorID})
	}
	if f.FavoritedByID != nil {
		b = b.Where("EXISTS (SELECT 1 FROM article_favorites fav WHERE fav.article_id = a.article_id AND fav.person_id = ?)", *f.FavoritedByID)
	}
	return b
}

// buildListQuery は記事一覧のSQLを組み立てる。
// 並び順は created_at 降順、同時刻は article_id 降順。
func buildListQuery(f model.ArticleFilter, page model.Page) (string, []any, error) {
	b := psql.Select(articleColumns...).From("articles a")
	b = applyFilter(b, f).
		OrderBy("a.created_at DESC", "a.article_id DESC").
		Limit(uint64(page.Limit)).
		Offset(uint64(page.Offset))
	return b.ToSql()
}

// buildCountQuery は一覧と同じ条件で総件数を数えるSQLを組み立てる。
func buildCountQuery(f model.ArticleFilter) (string, []any, error) {
	b := psql.Select("COUNT(*)").From("articles a")
	return applyFilter(b, f).ToSql()
}
