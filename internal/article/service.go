// Package article は記事の作成・編集・削除・参照・お気に入り操作を提供する。
// 各メソッドは呼び出し側（パイプライン）が開始したトランザクション内で実行されることを前提とする。
package article

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/conduit/internal/model"
	"github.com/hitoshi/conduit/internal/profile"
	"github.com/hitoshi/conduit/internal/repository"
	"github.com/hitoshi/conduit/internal/slug"
	"github.com/hitoshi/conduit/internal/tag"
	"github.com/hitoshi/conduit/internal/validation"
)

// Sanitizer は本文などのHTMLを安全な形に変換する。
type Sanitizer interface {
	Sanitize(rawHTML string) string
}

// Deps はServiceの依存関係を表す。
type Deps struct {
	Articles    repository.ArticleRepository
	Persons     repository.PersonRepository
	Tags        repository.TagRepository
	ArticleTags repository.ArticleTagRepository
	Favorites   repository.FavoriteRepository

	Reconciler *tag.Reconciler
	Collector  *tag.Collector
	Reader     *profile.Reader

	Sanitizer Sanitizer             // nil の場合はサニタイズしない
	Validator *validation.Validator // nil の場合は validation.New()
	Now       func() time.Time      // nil の場合は time.Now
	MaxLimit  int                   // 0 の場合は DefaultMaxLimit
}

// Service は記事のユースケースを提供する。
type Service struct {
	articles    repository.ArticleRepository
	persons     repository.PersonRepository
	tags        repository.TagRepository
	articleTags repository.ArticleTagRepository
	favorites   repository.FavoriteRepository

	reconciler *tag.Reconciler
	collector  *tag.Collector
	enricher   *Enricher

	sanitizer Sanitizer
	validator *validation.Validator
	now       func() time.Time
	maxLimit  int
}

// NewService は新しいServiceを生成する。
func NewService(d Deps) *Service {
	s := &Service{
		articles:    d.Articles,
		persons:     d.Persons,
		tags:        d.Tags,
		articleTags: d.ArticleTags,
		favorites:   d.Favorites,
		reconciler:  d.Reconciler,
		collector:   d.Collector,
		enricher:    NewEnricher(d.Reader),
		sanitizer:   d.Sanitizer,
		validator:   d.Validator,
		now:         d.Now,
		maxLimit:    d.MaxLimit,
	}
	if s.validator == nil {
		s.validator = validation.New()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.maxLimit <= 0 {
		s.maxLimit = DefaultMaxLimit
	}
	return s
}

// CreateInput は記事作成の入力。
type CreateInput struct {
	Title       string   `json:"title" validate:"notblank"`
	Description string   `json:"description" validate:"notblank"`
	Body        string   `json:"body" validate:"notblank"`
	TagList     []string `json:"tagList" validate:"omitempty,dive,max=255"`
}

// EditInput は記事編集の入力。nil のフィールドは変更しない。
// TagList が nil の場合はタグを変更せず、空スライスの場合は全タグを外す。
type EditInput struct {
	Title       *string  `json:"title,omitempty" validate:"omitempty,notblank"`
	Description *string  `json:"description,omitempty" validate:"omitempty,notblank"`
	Body        *string  `json:"body,omitempty" validate:"omitempty,notblank"`
	TagList     []string `json:"tagList" validate:"omitempty,dive,max=255"`
}

// Create は閲覧者を著者として記事を作成する。
// 記事を挿入して採番されたIDからslugを導出し、タグを付与したうえで未参照タグを回収する。
func (s *Service) Create(ctx context.Context, viewer *model.Viewer, in CreateInput) (*model.Article, error) {
	if viewer == nil {
		return nil, model.NewUnauthorizedError()
	}
	// サニタイズ後に空になる入力も検証エラーにする
	in.Description = s.sanitize(in.Description)
	in.Body = s.sanitize(in.Body)
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	author, err := s.persons.FindByID(ctx, viewer.PersonID)
	if err != nil {
		return nil, fmt.Errorf("著者の取得に失敗しました: %w", err)
	}
	if author == nil {
		return nil, model.NewUnauthorizedError()
	}

	now := s.now().UTC()
	a := &model.Article{
		Title:       in.Title,
		Description: in.Description,
		Body:        in.Body,
		AuthorID:    author.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.articles.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("記事の作成に失敗しました: %w", err)
	}

	slugValue, ok := slug.Generate(a.Title, a.ID)
	if !ok {
		return nil, model.NewValidationError(map[string]string{"title": "入力してください"})
	}
	if err := s.articles.UpdateSlug(ctx, a.ID, slugValue); err != nil {
		return nil, fmt.Errorf("slugの設定に失敗しました: %w", err)
	}
	a.Slug = slugValue

	if _, err := s.reconciler.Reconcile(ctx, a, in.TagList); err != nil {
		return nil, err
	}
	if _, err := s.collector.Collect(ctx); err != nil {
		return nil, err
	}

	a.Author = author
	a.ArticleFavorites = []model.ArticleFavorite{}
	if err := s.enricher.Enrich(ctx, viewer, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Edit は閲覧者が著者である記事を更新する。
// タイトルから常にslugを再生成し、実際に変更があった場合のみ updatedAt を進める。
func (s *Service) Edit(ctx context.Context, viewer *model.Viewer, slugValue string, in EditInput) (*model.Article, error) {
	if viewer == nil {
		return nil, model.NewUnauthorizedError()
	}
	in.Description = s.sanitizePtr(in.Description)
	in.Body = s.sanitizePtr(in.Body)
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	a, err := s.findOwned(ctx, viewer, slugValue)
	if err != nil {
		return nil, err
	}

	current, err := s.articleTags.ListByArticleIDs(ctx, []int64{a.ID})
	if err != nil {
		return nil, fmt.Errorf("記事タグの取得に失敗しました: %w", err)
	}
	a.ArticleTags = current

	before := snapshotOf(a)
	if in.Title != nil {
		a.Title = *in.Title
	}
	if in.Description != nil {
		a.Description = *in.Description
	}
	if in.Body != nil {
		a.Body = *in.Body
	}
	if regenerated, ok := slug.Generate(a.Title, a.ID); ok {
		a.Slug = regenerated
	}

	changed := snapshotOf(a) != before
	if in.TagList != nil {
		plan, err := s.reconciler.Reconcile(ctx, a, in.TagList)
		if err != nil {
			return nil, err
		}
		changed = changed || !plan.Empty()
	}

	if changed {
		a.UpdatedAt = s.now().UTC()
		if err := s.articles.Update(ctx, a); err != nil {
			return nil, fmt.Errorf("記事の更新に失敗しました: %w", err)
		}
	}

	if _, err := s.collector.Collect(ctx); err != nil {
		return nil, err
	}

	return s.view(ctx, viewer, a)
}

// Delete は閲覧者が著者である記事を削除し、未参照になったタグを回収する。
func (s *Service) Delete(ctx context.Context, viewer *model.Viewer, slugValue string) error {
	if viewer == nil {
		return model.NewUnauthorizedError()
	}

	a, err := s.findOwned(ctx, viewer, slugValue)
	if err != nil {
		return err
	}

	if err := s.articles.Delete(ctx, a.ID); err != nil {
		return fmt.Errorf("記事の削除に失敗しました: %w", err)
	}
	if _, err := s.collector.Collect(ctx); err != nil {
		return err
	}
	return nil
}

// Get はslugの記事を閲覧者から見た状態で返す。
func (s *Service) Get(ctx context.Context, viewer *model.Viewer, slugValue string) (*model.Article, error) {
	a, err := s.find(ctx, slugValue)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, viewer, a)
}

// Favorite は閲覧者のお気に入りに記事を追加する。既に追加済みでもエラーにしない。
func (s *Service) Favorite(ctx context.Context, viewer *model.Viewer, slugValue string) (*model.Article, error) {
	if viewer == nil {
		return nil, model.NewUnauthorizedError()
	}
	a, err := s.find(ctx, slugValue)
	if err != nil {
		return nil, err
	}

	if err := s.favorites.Create(ctx, a.ID, viewer.PersonID); err != nil {
		return nil, fmt.Errorf("お気に入りの追加に失敗しました: %w", err)
	}
	return s.view(ctx, viewer, a)
}

// Unfavorite は閲覧者のお気に入りから記事を外す。未追加でもエラーにしない。
func (s *Service) Unfavorite(ctx context.Context, viewer *model.Viewer, slugValue string) (*model.Article, error) {
	if viewer == nil {
		return nil, model.NewUnauthorizedError()
	}
	a, err := s.find(ctx, slugValue)
	if err != nil {
		return nil, err
	}

	if err := s.favorites.Delete(ctx, a.ID, viewer.PersonID); err != nil {
		return nil, fmt.Errorf("お気に入りの削除に失敗しました: %w", err)
	}
	return s.view(ctx, viewer, a)
}

func (s *Service) find(ctx context.Context, slugValue string) (*model.Article, error) {
	a, err := s.articles.FindBySlug(ctx, slugValue)
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	if a == nil {
		return nil, model.NewArticleNotFoundError(slugValue)
	}
	return a, nil
}

func (s *Service) findOwned(ctx context.Context, viewer *model.Viewer, slugValue string) (*model.Article, error) {
	a, err := s.find(ctx, slugValue)
	if err != nil {
		return nil, err
	}
	if a.AuthorID != viewer.PersonID {
		return nil, model.NewForbiddenError()
	}
	return a, nil
}

// view は記事の関連を読み込み、閲覧者ごとのフラグを設定する。
func (s *Service) view(ctx context.Context, viewer *model.Viewer, a *model.Article) (*model.Article, error) {
	if err := s.loadGraph(ctx, []*model.Article{a}); err != nil {
		return nil, err
	}
	if err := s.enricher.Enrich(ctx, viewer, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) sanitize(v string) string {
	if s.sanitizer == nil {
		return v
	}
	return s.sanitizer.Sanitize(v)
}

func (s *Service) sanitizePtr(v *string) *string {
	if v == nil {
		return nil
	}
	sanitized := s.sanitize(*v)
	return &sanitized
}

// snapshot は updatedAt の判定に使う記事の可変フィールド。
type snapshot struct {
	title, description, body, slug string
}

func snapshotOf(a *model.Article) snapshot {
	return snapshot{title: a.Title, description: a.Description, body: a.Body, slug: a.Slug}
}
