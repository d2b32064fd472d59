package handler

import (
	"context"

	"github.com/hitoshi/conduit/internal/article"
	"github.com/hitoshi/conduit/internal/model"
	"github.com/hitoshi/conduit/internal/pipeline"
	"github.com/hitoshi/conduit/internal/profile"
	"github.com/hitoshi/conduit/internal/tag"
	"github.com/hitoshi/conduit/internal/user"
)

// トランザクションの操作名（メトリクスのoperationラベル）
const (
	opArticleCreate     = "article.create"
	opArticleEdit       = "article.edit"
	opArticleDelete     = "article.delete"
	opArticleGet        = "article.get"
	opArticleList       = "article.list"
	opArticleFavorite   = "article.favorite"
	opArticleUnfavorite = "article.unfavorite"
	opProfileGet        = "profile.get"
	opProfileFollow     = "profile.follow"
	opProfileUnfollow   = "profile.unfollow"
	opTagList           = "tag.list"
	opUserGet           = "user.get"
	opUserEdit          = "user.edit"
)

// articleRequest は記事操作の共通リクエスト。
type articleRequest struct {
	viewer *model.Viewer
	slug   string
	create article.CreateInput
	edit   article.EditInput
	list   article.ListInput
}

// ArticleServiceAdapter は article.Service の各操作をパイプラインで包み、
// ArticleServiceInterface に適合させるアダプタ。
type ArticleServiceAdapter struct {
	create     pipeline.Handler[articleRequest, *model.Article]
	edit       pipeline.Handler[articleRequest, *model.Article]
	remove     pipeline.Handler[articleRequest, struct{}]
	get        pipeline.Handler[articleRequest, *model.Article]
	list       pipeline.Handler[articleRequest, *article.ListResult]
	favorite   pipeline.Handler[articleRequest, *model.Article]
	unfavorite pipeline.Handler[articleRequest, *model.Article]
}

// NewArticleServiceAdapter はArticleServiceAdapterを生成する。
func NewArticleServiceAdapter[T pipeline.Tx](p *pipeline.Pipeline[T], svc *article.Service) *ArticleServiceAdapter {
	bySlug := func(fn func(context.Context, *model.Viewer, string) (*model.Article, error)) pipeline.Handler[articleRequest, *model.Article] {
		return func(ctx context.Context, req articleRequest) (*model.Article, error) {
			return fn(ctx, req.viewer, req.slug)
		}
	}

	return &ArticleServiceAdapter{
		create: pipeline.Wrap(p, opArticleCreate, func(ctx context.Context, req articleRequest) (*model.Article, error) {
			return svc.Create(ctx, req.viewer, req.create)
		}),
		edit: pipeline.Wrap(p, opArticleEdit, func(ctx context.Context, req articleRequest) (*model.Article, error) {
			return svc.Edit(ctx, req.viewer, req.slug, req.edit)
		}),
		remove: pipeline.Wrap(p, opArticleDelete, func(ctx context.Context, req articleRequest) (struct{}, error) {
			return struct{}{}, svc.Delete(ctx, req.viewer, req.slug)
		}),
		get: pipeline.Wrap(p, opArticleGet, bySlug(svc.Get)),
		list: pipeline.Wrap(p, opArticleList, func(ctx context.Context, req articleRequest) (*article.ListResult, error) {
			return svc.List(ctx, req.viewer, req.list)
		}),
		favorite:   pipeline.Wrap(p, opArticleFavorite, bySlug(svc.Favorite)),
		unfavorite: pipeline.Wrap(p, opArticleUnfavorite, bySlug(svc.Unfavorite)),
	}
}

// CreateArticle は記事を作成する。
func (a *ArticleServiceAdapter) CreateArticle(ctx context.Context, viewer *model.Viewer, in article.CreateInput) (*model.Article, error) {
	return a.create(ctx, articleRequest{viewer: viewer, create: in})
}

// EditArticle は記事を編集する。
func (a *ArticleServiceAdapter) EditArticle(ctx context.Context, viewer *model.Viewer, slug string, in article.EditInput) (*model.Article, error) {
	return a.edit(ctx, articleRequest{viewer: viewer, slug: slug, edit: in})
}

// DeleteArticle は記事を削除する。
func (a *ArticleServiceAdapter) DeleteArticle(ctx context.Context, viewer *model.Viewer, slug string) error {
	_, err := a.remove(ctx, articleRequest{viewer: viewer, slug: slug})
	return err
}

// GetArticle は記事を返す。
func (a *ArticleServiceAdapter) GetArticle(ctx context.Context, viewer *model.Viewer, slug string) (*model.Article, error) {
	return a.get(ctx, articleRequest{viewer: viewer, slug: slug})
}

// ListArticles は記事一覧を返す。
func (a *ArticleServiceAdapter) ListArticles(ctx context.Context, viewer *model.Viewer, in article.ListInput) (*article.ListResult, error) {
	return a.list(ctx, articleRequest{viewer: viewer, list: in})
}

// FavoriteArticle は記事をお気に入りに追加する。
func (a *ArticleServiceAdapter) FavoriteArticle(ctx context.Context, viewer *model.Viewer, slug string) (*model.Article, error) {
	return a.favorite(ctx, articleRequest{viewer: viewer, slug: slug})
}

// UnfavoriteArticle は記事をお気に入りから外す。
func (a *ArticleServiceAdapter) UnfavoriteArticle(ctx context.Context, viewer *model.Viewer, slug string) (*model.Article, error) {
	return a.unfavorite(ctx, articleRequest{viewer: viewer, slug: slug})
}

// profileRequest はプロフィール操作のリクエスト。
type profileRequest struct {
	viewer   *model.Viewer
	username string
}

// ProfileServiceAdapter は profile.Service をパイプラインで包むアダプタ。
type ProfileServiceAdapter struct {
	get      pipeline.Handler[profileRequest, *model.Person]
	follow   pipeline.Handler[profileRequest, *model.Person]
	unfollow pipeline.Handler[profileRequest, *model.Person]
}

// NewProfileServiceAdapter はProfileServiceAdapterを生成する。
func NewProfileServiceAdapter[T pipeline.Tx](p *pipeline.Pipeline[T], svc *profile.Service) *ProfileServiceAdapter {
	wrap := func(op string, fn func(context.Context, *model.Viewer, string) (*model.Person, error)) pipeline.Handler[profileRequest, *model.Person] {
		return pipeline.Wrap(p, op, func(ctx context.Context, req profileRequest) (*model.Person, error) {
			return fn(ctx, req.viewer, req.username)
		})
	}
	return &ProfileServiceAdapter{
		get:      wrap(opProfileGet, svc.GetProfile),
		follow:   wrap(opProfileFollow, svc.Follow),
		unfollow: wrap(opProfileUnfollow, svc.Unfollow),
	}
}

// GetProfile はプロフィールを返す。
func (a *ProfileServiceAdapter) GetProfile(ctx context.Context, viewer *model.Viewer, username string) (*model.Person, error) {
	return a.get(ctx, profileRequest{viewer: viewer, username: username})
}

// FollowUser はユーザーをフォローする。
func (a *ProfileServiceAdapter) FollowUser(ctx context.Context, viewer *model.Viewer, username string) (*model.Person, error) {
	return a.follow(ctx, profileRequest{viewer: viewer, username: username})
}

// UnfollowUser はユーザーのフォローを解除する。
func (a *ProfileServiceAdapter) UnfollowUser(ctx context.Context, viewer *model.Viewer, username string) (*model.Person, error) {
	return a.unfollow(ctx, profileRequest{viewer: viewer, username: username})
}

// userRequest はアカウント操作のリクエスト。
type userRequest struct {
	viewer *model.Viewer
	edit   user.EditInput
}

// UserServiceAdapter は user.Service をパイプラインで包むアダプタ。
type UserServiceAdapter struct {
	current pipeline.Handler[userRequest, *model.Person]
	edit    pipeline.Handler[userRequest, *model.Person]
}

// NewUserServiceAdapter はUserServiceAdapterを生成する。
func NewUserServiceAdapter[T pipeline.Tx](p *pipeline.Pipeline[T], svc *user.Service) *UserServiceAdapter {
	return &UserServiceAdapter{
		current: pipeline.Wrap(p, opUserGet, func(ctx context.Context, req userRequest) (*model.Person, error) {
			return svc.Current(ctx, req.viewer)
		}),
		edit: pipeline.Wrap(p, opUserEdit, func(ctx context.Context, req userRequest) (*model.Person, error) {
			return svc.Edit(ctx, req.viewer, req.edit)
		}),
	}
}

// CurrentUser はログイン中のアカウントを返す。
func (a *UserServiceAdapter) CurrentUser(ctx context.Context, viewer *model.Viewer) (*model.Person, error) {
	return a.current(ctx, userRequest{viewer: viewer})
}

// UpdateUser はログイン中のアカウントを編集する。
func (a *UserServiceAdapter) UpdateUser(ctx context.Context, viewer *model.Viewer, in user.EditInput) (*model.Person, error) {
	return a.edit(ctx, userRequest{viewer: viewer, edit: in})
}

// TagServiceAdapter は tag.Service をパイプラインで包むアダプタ。
type TagServiceAdapter struct {
	list pipeline.Handler[struct{}, []string]
}

// NewTagServiceAdapter はTagServiceAdapterを生成する。
func NewTagServiceAdapter[T pipeline.Tx](p *pipeline.Pipeline[T], svc *tag.Service) *TagServiceAdapter {
	return &TagServiceAdapter{
		list: pipeline.Wrap(p, opTagList, func(ctx context.Context, _ struct{}) ([]string, error) {
			return svc.ListTags(ctx)
		}),
	}
}

// ListTags はタグ一覧を返す。
func (a *TagServiceAdapter) ListTags(ctx context.Context) ([]string, error) {
	return a.list(ctx, struct{}{})
}

// --- compile-time interface checks ---

var _ ArticleServiceInterface = (*ArticleServiceAdapter)(nil)
var _ ProfileServiceInterface = (*ProfileServiceAdapter)(nil)
var _ TagServiceInterface = (*TagServiceAdapter)(nil)
var _ UserServiceInterface = (*UserServiceAdapter)(nil)
