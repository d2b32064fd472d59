package tag

import (
	"context"
	"fmt"

	"github.com/hitoshi/conduit/internal/repository"
)

// Service はタグの参照系ユースケースを提供する。
type Service struct {
	tags repository.TagRepository
}

// NewService は新しいServiceを生成する。
func NewService(tags repository.TagRepository) *Service {
	return &Service{tags: tags}
}

// ListTags は全タグIDをアルファベット順で返す。タグがない場合は空スライス。
func (s *Service) ListTags(ctx context.Context) ([]string, error) {
	tags, err := s.tags.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("タグ一覧の取得に失敗しました: %w", err)
	}

	ids := make([]string, 0, len(tags))
	for _, t := range tags {
		ids = append(ids, t.ID)
	}
	return ids, nil
}
