package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/conduit/internal/database"
	"github.com/hitoshi/conduit/internal/model"
)

// PostgresFavoriteRepo はPostgreSQLを使用したお気に入りリポジトリ。
type PostgresFavoriteRepo struct {
	db *sql.DB
}

// NewPostgresFavoriteRepo はPostgresFavoriteRepoを生成する。
func NewPostgresFavoriteRepo(db *sql.DB) *PostgresFavoriteRepo {
	return &PostgresFavoriteRepo{db: db}
}

// ListByArticleIDs は指定記事群のお気に入りを返す。
func (r *PostgresFavoriteRepo) ListByArticleIDs(ctx context.Context, articleIDs []int64) ([]model.ArticleFavorite, error) {
	if len(articleIDs) == 0 {
		return nil, nil
	}

	rows, err := database.ExecutorFrom(ctx, r.db).QueryContext(ctx,
		`SELECT article_id, person_id FROM article_favorites
		 WHERE article_id = ANY($1)
		 ORDER BY article_id, created_at`,
		pq.Int64Array(articleIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("お気に入りの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var result []model.ArticleFavorite
	for rows.Next() {
		var f model.ArticleFavorite
		if err := rows.Scan(&f.ArticleID, &f.PersonID); err != nil {
			return nil, fmt.Errorf("お気に入り行の読み取りに失敗しました: %w", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("お気に入りの走査に失敗しました: %w", err)
	}
	return result, nil
}

// Create はお気に入りを作成する。既に存在する場合は何もしない。
func (r *PostgresFavoriteRepo) Create(ctx context.Context, articleID, personID int64) error {
	_, err := database.ExecutorFrom(ctx, r.db).ExecContext(ctx,
		`INSERT INTO article_favorites (article_id, person_id) VALUES ($1, $2)
		 ON CONFLICT (article_id, person_id) DO NOTHING`,
		articleID, personID,
	)
	if err != nil {
		return fmt.Errorf("お気に入りの作成に失敗しました: %w", err)
	}
	return nil
}

// Delete はお気に入りを削除する。
func (r *PostgresFavoriteRepo) Delete(ctx context.Context, articleID, personID int64) error {
	_, err := database.ExecutorFrom(ctx, r.db).ExecContext(ctx,
		`DELETE FROM article_favorites WHERE article_id = $1 AND person_id = $2`,
		articleID, personID,
	)
	if err != nil {
		return fmt.Errorf("お気に入りの削除に失敗しました: %w", err)
	}
	return nil
}

var _ FavoriteRepository = (*PostgresFavoriteRepo)(nil)
