package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/conduit/internal/database"
	"github.com/hitoshi/conduit/internal/model"
)

// PostgresTagRepo はPostgreSQLを使用したタグリポジトリ。
type PostgresTagRepo struct {
	db *sql.DB
}

// NewPostgresTagRepo はPostgresTagRepoを生成する。
func NewPostgresTagRepo(db *sql.DB) *PostgresTagRepo {
	return &PostgresTagRepo{db: db}
}

func (r *PostgresTagRepo) queryTags(ctx context.Context, query string, args ...any) ([]model.Tag, error) {
	rows, err := database.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []model.Tag
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// FindByIDs は指定IDのうち保存済みのタグを返す。
func (r *PostgresTagRepo) FindByIDs(ctx context.Context, ids []string) ([]model.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	tags, err := r.queryTags(ctx, `SELECT tag_id FROM tags WHERE tag_id = ANY($1)`, pq.StringArray(ids))
	if err != nil {
		return nil, fmt.Errorf("タグの検索に失敗しました: %w", err)
	}
	return tags, nil
}

// Create はタグをまとめて作成する。
func (r *PostgresTagRepo) Create(ctx context.Context, tags []model.Tag) error {
	if len(tags) == 0 {
		return nil
	}

	b := psql.Insert("tags").Columns("tag_id")
	for _, t := range tags {
		b = b.Values(t.ID)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("タグ作成クエリの構築に失敗しました: %w", err)
	}

	if _, err := database.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("タグの作成に失敗しました: %w", err)
	}
	return nil
}

// ListAll は全タグをID昇順で返す。
func (r *PostgresTagRepo) ListAll(ctx context.Context) ([]model.Tag, error) {
	tags, err := r.queryTags(ctx, `SELECT tag_id FROM tags ORDER BY tag_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("タグ一覧の取得に失敗しました: %w", err)
	}
	return tags, nil
}

// DeleteUnreferenced はどの記事からも参照されていないタグを1文で削除し、削除したIDを返す。
func (r *PostgresTagRepo) DeleteUnreferenced(ctx context.Context) ([]string, error) {
	tags, err := r.queryTags(ctx,
		`DELETE FROM tags t
		 WHERE NOT EXISTS (SELECT 1 FROM article_tags atg WHERE atg.tag_id = t.tag_id)
		 RETURNING t.tag_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("未参照タグの削除に失敗しました: %w", err)
	}

	ids := make([]string, 0, len(tags))
	for _, t := range tags {
		ids = append(ids, t.ID)
	}
	return ids, nil
}

var _ TagRepository = (*PostgresTagRepo)(nil)
