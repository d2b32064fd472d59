package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SweepFunc は未参照タグを回収し、削除したタグIDを返す。
// 呼び出し側で1つのトランザクションに包んで渡す。
type SweepFunc func(ctx context.Context) ([]string, error)

// TagSweepJob は記事から参照されなくなったタグを定期的に回収するジョブ。
// 記事の変更時にも回収は行われるため、取りこぼしの補完を目的とする。
type TagSweepJob struct {
	sweep  SweepFunc
	logger *slog.Logger
}

// NewTagSweepJob は新しいTagSweepJobを生成する。
func NewTagSweepJob(sweep SweepFunc, logger *slog.Logger) *TagSweepJob {
	return &TagSweepJob{sweep: sweep, logger: logger}
}

// Name はジョブ名を返す。
func (j *TagSweepJob) Name() string { return "tag_sweep" }

// Run は未参照タグを回収する。
func (j *TagSweepJob) Run(ctx context.Context) error {
	start := time.Now()

	deleted, err := j.sweep(ctx)
	if err != nil {
		j.logger.Error("未参照タグのスイープに失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("未参照タグのスイープに失敗: %w", err)
	}

	j.logger.Info("未参照タグのスイープが完了しました",
		slog.Int("deleted_count", len(deleted)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}
