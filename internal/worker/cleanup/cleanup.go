// Package cleanup はワーカーで定期実行するメンテナンスジョブを提供する。
// 期限切れセッションの削除と、未参照タグのスイープを行う。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// PurgeRecorder は削除したセッション数を記録するインターフェース。
type PurgeRecorder interface {
	RecordSessionsPurged(count int)
}

// SessionPurgeJob は有効期限から保持期間を過ぎたセッションを削除するジョブ。
// セッションの発行は認証サービスが行うため、ここでは削除のみを担う。
type SessionPurgeJob struct {
	db            Executor
	recorder      PurgeRecorder
	logger        *slog.Logger
	RetentionDays int // 期限切れ後の保持日数（デフォルト: 30）
}

// NewSessionPurgeJob は新しいSessionPurgeJobを生成する。recorder は nil でもよい。
func NewSessionPurgeJob(db Executor, recorder PurgeRecorder, logger *slog.Logger) *SessionPurgeJob {
	return &SessionPurgeJob{
		db:            db,
		recorder:      recorder,
		logger:        logger,
		RetentionDays: 30,
	}
}

// Name はジョブ名を返す。
func (j *SessionPurgeJob) Name() string { return "session_purge" }

// Run は expires_at が RetentionDays 日より前のセッションを削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *SessionPurgeJob) Run(ctx context.Context) error {
	start := time.Now()

	interval := fmt.Sprintf("%d days", j.RetentionDays)

	query := `DELETE FROM sessions WHERE expires_at < now() - $1::interval`
	result, err := j.db.ExecContext(ctx, query, interval)
	if err != nil {
		j.logger.Error("期限切れセッションの削除に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("期限切れセッションの削除に失敗: %w", err)
	}

	deletedCount, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	if j.recorder != nil && deletedCount > 0 {
		j.recorder.RecordSessionsPurged(int(deletedCount))
	}

	j.logger.Info("期限切れセッションの削除が完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}
