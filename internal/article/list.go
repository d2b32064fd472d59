package article

import (
	"context"
	"fmt"
	"strings"

	"github.com/hitoshi/conduit/internal/model"
)

const (
	// DefaultLimit は limit 未指定時の取得件数。
	DefaultLimit = 20
	// DefaultMaxLimit は limit の上限の既定値。
	DefaultMaxLimit = 100
)

// ListInput は記事一覧の検索条件。空白のみの文字列・nil は条件なしを意味する。
type ListInput struct {
	Tag         string
	Author      string
	FavoritedBy string
	Limit       *int `json:"limit" validate:"omitempty,gte=1"`
	Offset      *int `json:"offset" validate:"omitempty,gte=0"`
	// Feed が true の場合、閲覧者がフォローしている著者の記事に限定する。
	Feed bool
}

// ListResult は記事一覧の結果。Count はページングに関わらない総件数。
type ListResult struct {
	Articles []*model.Article
	Count    int
}

// List は条件に一致する記事を新しい順に返す。
// 条件で指定したタグ・著者・人物が存在しない場合はエラーではなく空の結果を返す。
func (s *Service) List(ctx context.Context, viewer *model.Viewer, in ListInput) (*ListResult, error) {
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	filter, ok, err := s.resolveFilter(ctx, viewer, in)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &ListResult{Articles: []*model.Article{}, Count: 0}, nil
	}

	page := s.page(in)
	articles, err := s.articles.List(ctx, filter, page)
	if err != nil {
		return nil, fmt.Errorf("記事一覧の取得に失敗しました: %w", err)
	}
	count, err := s.articles.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("記事件数の取得に失敗しました: %w", err)
	}

	if err := s.loadGraph(ctx, articles); err != nil {
		return nil, err
	}
	if err := s.enricher.Enrich(ctx, viewer, articles...); err != nil {
		return nil, err
	}

	if articles == nil {
		articles = []*model.Article{}
	}
	return &ListResult{Articles: articles, Count: count}, nil
}

// resolveFilter は名前で指定された条件をIDに解決する。
// フィード → タグ → 著者 → お気に入り の順に評価し、解決できない条件があれば ok=false を返す。
func (s *Service) resolveFilter(ctx context.Context, viewer *model.Viewer, in ListInput) (model.ArticleFilter, bool, error) {
	var f model.ArticleFilter

	if in.Feed {
		if viewer == nil {
			return f, false, model.NewUnauthorizedError()
		}
		id := viewer.PersonID
		f.FollowerID = &id
	}

	tagID := strings.TrimSpace(in.Tag)
	author := strings.TrimSpace(in.Author)
	favoritedBy := strings.TrimSpace(in.FavoritedBy)

	if tagID != "" {
		tags, err := s.tags.FindByIDs(ctx, []string{tagID})
		if err != nil {
			return f, false, fmt.Errorf("タグの解決に失敗しました: %w", err)
		}
		if len(tags) == 0 {
			return f, false, nil
		}
		f.TagID = tags[0].ID
	}

	if author != "" {
		p, err := s.persons.FindByUsername(ctx, author)
		if err != nil {
			return f, false, fmt.Errorf("著者の解決に失敗しました: %w", err)
		}
		if p == nil {
			return f, false, nil
		}
		f.AuthorID = &p.ID
	}

	if favoritedBy != "" {
		p, err := s.persons.FindByUsername(ctx, favoritedBy)
		if err != nil {
			return f, false, fmt.Errorf("お気に入り登録者の解決に失敗しました: %w", err)
		}
		if p == nil {
			return f, false, nil
		}
		f.FavoritedByID = &p.ID
	}

	return f, true, nil
}

func (s *Service) page(in ListInput) model.Page {
	p := model.Page{Offset: 0, Limit: DefaultLimit}
	if in.Offset != nil {
		p.Offset = *in.Offset
	}
	if in.Limit != nil {
		p.Limit = *in.Limit
	}
	if p.Limit > s.maxLimit {
		p.Limit = s.maxLimit
	}
	return p
}
