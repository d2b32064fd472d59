package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/conduit/internal/database"
	"github.com/hitoshi/conduit/internal/model"
)

// PostgresArticleRepo はPostgreSQLを使用した記事リポジトリ。
type PostgresArticleRepo struct {
	db *sql.DB
}

// NewPostgresArticleRepo はPostgresArticleRepoを生成する。
func NewPostgresArticleRepo(db *sql.DB) *PostgresArticleRepo {
	return &PostgresArticleRepo{db: db}
}

func scanArticle(row interface{ Scan(dest ...any) error }) (*model.Article, error) {
	a := &model.Article{}
	err := row.Scan(&a.ID, &a.Slug, &a.Title, &a.Description, &a.Body, &a.AuthorID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return a, nil
}

// FindBySlug はslugで記事を取得する。見つからない場合はnilを返す。
func (r *PostgresArticleRepo) FindBySlug(ctx context.Context, slug string) (*model.Article, error) {
	query, args, err := psql.Select(articleColumns...).From("articles a").Where("a.slug = ?", slug).ToSql()
	if err != nil {
		return nil, fmt.Errorf("記事検索クエリの構築に失敗しました: %w", err)
	}

	a, err := scanArticle(database.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("slugによる記事の取得に失敗しました: %w", err)
	}
	return a, nil
}

// Create は記事を作成し、採番されたIDを設定する。
func (r *PostgresArticleRepo) Create(ctx context.Context, article *model.Article) error {
	err := database.ExecutorFrom(ctx, r.db).QueryRowContext(ctx,
		`INSERT INTO articles (title, description, body, author_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING article_id`,
		article.Title, article.Description, article.Body, article.AuthorID, article.CreatedAt, article.UpdatedAt,
	).Scan(&article.ID)
	if err != nil {
		return fmt.Errorf("記事の作成に失敗しました: %w", err)
	}
	return nil
}

// UpdateSlug は記事のslugを設定する。
func (r *PostgresArticleRepo) UpdateSlug(ctx context.Context, id int64, slug string) error {
	_, err := database.ExecutorFrom(ctx, r.db).ExecContext(ctx,
		`UPDATE articles SET slug = $1 WHERE article_id = $2`,
		slug, id,
	)
	if err != nil {
		return fmt.Errorf("slugの設定に失敗しました: %w", err)
	}
	return nil
}

// Update は記事のタイトル・概要・本文・slug・updated_atを上書きする。
func (r *PostgresArticleRepo) Update(ctx context.Context, article *model.Article) error {
	_, err := database.ExecutorFrom(ctx, r.db).ExecContext(ctx,
		`UPDATE articles
		 SET title = $1, description = $2, body = $3, slug = $4, updated_at = $5
		 WHERE article_id = $6`,
		article.Title, article.Description, article.Body, article.Slug, article.UpdatedAt, article.ID,
	)
	if err != nil {
		return fmt.Errorf("記事の更新に失敗しました: %w", err)
	}
	return nil
}

// Delete は記事を削除する。
// タグ付けとお気に入りはスキーマのCASCADEでも消えるが、同一トランザクション内で明示的に削除する。
func (r *PostgresArticleRepo) Delete(ctx context.Context, id int64) error {
	exec := database.ExecutorFrom(ctx, r.db)

	if _, err := exec.ExecContext(ctx, `DELETE FROM article_tags WHERE article_id = $1`, id); err != nil {
		return fmt.Errorf("記事タグの削除に失敗しました: %w", err)
	}
	if _, err := exec.ExecContext(ctx, `DELETE FROM article_favorites WHERE article_id = $1`, id); err != nil {
		return fmt.Errorf("お気に入りの削除に失敗しました: %w", err)
	}
	if _, err := exec.ExecContext(ctx, `DELETE FROM articles WHERE article_id = $1`, id); err != nil {
		return fmt.Errorf("記事の削除に失敗しました: %w", err)
	}
	return nil
}

// List は絞り込み条件に一致する記事を返す。
func (r *PostgresArticleRepo) List(ctx context.Context, filter model.ArticleFilter, page model.Page) ([]*model.Article, error) {
	query, args, err := buildListQuery(filter, page)
	if err != nil {
		return nil, fmt.Errorf("記事一覧クエリの構築に失敗しました: %w", err)
	}

	rows, err := database.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("記事一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	articles := make([]*model.Article, 0, page.Limit)
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("記事行の読み取りに失敗しました: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("記事一覧の走査に失敗しました: %w", err)
	}
	return articles, nil
}

// Count は絞り込み条件に一致する記事の総数を返す。
func (r *PostgresArticleRepo) Count(ctx context.Context, filter model.ArticleFilter) (int, error) {
	query, args, err := buildCountQuery(filter)
	if err != nil {
		return 0, fmt.Errorf("記事件数クエリの構築に失敗しました: %w", err)
	}

	var count int
	if err := database.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("記事件数の取得に失敗しました: %w", err)
	}
	return count, nil
}

var _ ArticleRepository = (*PostgresArticleRepo)(nil)
