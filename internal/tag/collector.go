package tag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/conduit/internal/repository"
)

// CollectRecorder は回収したタグ数を記録するインターフェース。
type CollectRecorder interface {
	RecordTagsCollected(count int)
}

// Collector はどの記事からも参照されていないタグを削除する。
// 記事の作成・編集・削除の直後と、ワーカーの定期スイープから呼ばれる。
type Collector struct {
	tags     repository.TagRepository
	recorder CollectRecorder
	logger   *slog.Logger
}

// NewCollector は新しいCollectorを生成する。recorder は nil でもよい。
func NewCollector(tags repository.TagRepository, recorder CollectRecorder, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{tags: tags, recorder: recorder, logger: logger}
}

// Collect は未参照タグを1回のバッチ削除で回収し、削除したタグIDを返す。
// 冪等: 対象がなければ空スライスを返す。
func (c *Collector) Collect(ctx context.Context) ([]string, error) {
	deleted, err := c.tags.DeleteUnreferenced(ctx)
	if err != nil {
		return nil, fmt.Errorf("未参照タグの回収に失敗しました: %w", err)
	}

	if len(deleted) > 0 {
		c.logger.DebugContext(ctx, "unreferenced tags collected",
			slog.Int("count", len(deleted)),
			slog.Any("tags", deleted),
		)
		if c.recorder != nil {
			c.recorder.RecordTagsCollected(len(deleted))
		}
	}
	return deleted, nil
}
