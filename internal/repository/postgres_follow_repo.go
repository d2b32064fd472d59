package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/conduit/internal/database"
)

// PostgresFollowRepo はPostgreSQLを使用したフォロー関係リポジトリ。
type PostgresFollowRepo struct {
	db *sql.DB
}

// NewPostgresFollowRepo はPostgresFollowRepoを生成する。
func NewPostgresFollowRepo(db *sql.DB) *PostgresFollowRepo {
	return &PostgresFollowRepo{db: db}
}

// Exists は personID が targetID をフォローしているかを返す。
func (r *PostgresFollowRepo) Exists(ctx context.Context, personID, targetID int64) (bool, error) {
	var exists bool
	err := database.ExecutorFrom(ctx, r.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM followed_people WHERE person_id = $1 AND target_id = $2)`,
		personID, targetID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("フォロー関係の確認に失敗しました: %w", err)
	}
	return exists, nil
}

// ListFollowedAmong は targetIDs のうち personID がフォローしているIDを返す。
func (r *PostgresFollowRepo) ListFollowedAmong(ctx context.Context, personID int64, targetIDs []int64) ([]int64, error) {
	if len(targetIDs) == 0 {
		return nil, nil
	}

	rows, err := database.ExecutorFrom(ctx, r.db).QueryContext(ctx,
		`SELECT target_id FROM followed_people WHERE person_id = $1 AND target_id = ANY($2)`,
		personID, pq.Int64Array(targetIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("フォロー先一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("フォロー先IDの読み取りに失敗しました: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("フォロー先一覧の走査に失敗しました: %w", err)
	}
	return ids, nil
}

// Create はフォロー関係を作成する。既に存在する場合は何もしない。
func (r *PostgresFollowRepo) Create(ctx context.Context, personID, targetID int64) error {
	_, err := database.ExecutorFrom(ctx, r.db).ExecContext(ctx,
		`INSERT INTO followed_people (person_id, target_id) VALUES ($1, $2)
		 ON CONFLICT (person_id, target_id) DO NOTHING`,
		personID, targetID,
	)
	if err != nil {
		return fmt.Errorf("フォローの作成に失敗しました: %w", err)
	}
	return nil
}

// Delete はフォロー関係を削除する。
func (r *PostgresFollowRepo) Delete(ctx context.Context, personID, targetID int64) error {
	_, err := database.ExecutorFrom(ctx, r.db).ExecContext(ctx,
		`DELETE FROM followed_people WHERE person_id = $1 AND target_id = $2`,
		personID, targetID,
	)
	if err != nil {
		return fmt.Errorf("フォローの削除に失敗しました: %w", err)
	}
	return nil
}

var _ FollowRepository = (*PostgresFollowRepo)(nil)
