package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/conduit/internal/database"
	"github.com/hitoshi/conduit/internal/model"
)

// PostgresArticleTagRepo はPostgreSQLを使用した記事タグリポジトリ。
type PostgresArticleTagRepo struct {
	db *sql.DB
}

// NewPostgresArticleTagRepo はPostgresArticleTagRepoを生成する。
func NewPostgresArticleTagRepo(db *sql.DB) *PostgresArticleTagRepo {
	return &PostgresArticleTagRepo{db: db}
}

// ListByArticleIDs は指定記事群のタグ付けを記事ID・関連付け順で返す。
func (r *PostgresArticleTagRepo) ListByArticleIDs(ctx context.Context, articleIDs []int64) ([]model.ArticleTag, error) {
	if len(articleIDs) == 0 {
		return nil, nil
	}

	rows, err := database.ExecutorFrom(ctx, r.db).QueryContext(ctx,
		`SELECT article_id, tag_id FROM article_tags
		 WHERE article_id = ANY($1)
		 ORDER BY article_id, seq`,
		pq.Int64Array(articleIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("記事タグの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var result []model.ArticleTag
	for rows.Next() {
		var at model.ArticleTag
		if err := rows.Scan(&at.ArticleID, &at.TagID); err != nil {
			return nil, fmt.Errorf("記事タグ行の読み取りに失敗しました: %w", err)
		}
		at.Tag = &model.Tag{ID: at.TagID}
		result = append(result, at)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("記事タグの走査に失敗しました: %w", err)
	}
	return result, nil
}

// Insert はタグ付けをまとめて作成する。
func (r *PostgresArticleTagRepo) Insert(ctx context.Context, rows []model.ArticleTag) error {
	if len(rows) == 0 {
		return nil
	}

	b := psql.Insert("article_tags").Columns("article_id", "tag_id")
	for _, at := range rows {
		b = b.Values(at.ArticleID, at.TagID)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("記事タグ作成クエリの構築に失敗しました: %w", err)
	}

	if _, err := database.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("記事タグの作成に失敗しました: %w", err)
	}
	return nil
}

// Delete は記事から指定タグのタグ付けを削除する。
func (r *PostgresArticleTagRepo) Delete(ctx context.Context, articleID int64, tagIDs []string) error {
	if len(tagIDs) == 0 {
		return nil
	}

	_, err := database.ExecutorFrom(ctx, r.db).ExecContext(ctx,
		`DELETE FROM article_tags WHERE article_id = $1 AND tag_id = ANY($2)`,
		articleID, pq.StringArray(tagIDs),
	)
	if err != nil {
		return fmt.Errorf("記事タグの削除に失敗しました: %w", err)
	}
	return nil
}

var _ ArticleTagRepository = (*PostgresArticleTagRepo)(nil)
