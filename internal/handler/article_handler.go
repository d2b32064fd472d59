package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/conduit/internal/article"
	"github.com/hitoshi/conduit/internal/middleware"
	"github.com/hitoshi/conduit/internal/model"
)

// ArticleServiceInterface は記事ハンドラーが必要とするサービスインターフェース。
// 各メソッドは1回の呼び出しが1つのトランザクションに対応する。
type ArticleServiceInterface interface {
	CreateArticle(ctx context.Context, viewer *model.Viewer, in article.CreateInput) (*model.Article, error)
	EditArticle(ctx context.Context, viewer *model.Viewer, slug string, in article.EditInput) (*model.Article, error)
	DeleteArticle(ctx context.Context, viewer *model.Viewer, slug string) error
	GetArticle(ctx context.Context, viewer *model.Viewer, slug string) (*model.Article, error)
	ListArticles(ctx context.Context, viewer *model.Viewer, in article.ListInput) (*article.ListResult, error)
	FavoriteArticle(ctx context.Context, viewer *model.Viewer, slug string) (*model.Article, error)
	UnfavoriteArticle(ctx context.Context, viewer *model.Viewer, slug string) (*model.Article, error)
}

// ArticleHandler は記事のHTTPハンドラー。
type ArticleHandler struct {
	service ArticleServiceInterface
}

// NewArticleHandler はArticleHandlerを生成する。
func NewArticleHandler(service ArticleServiceInterface) *ArticleHandler {
	return &ArticleHandler{service: service}
}

type createArticleRequest struct {
	Article article.CreateInput `json:"article"`
}

type editArticleRequest struct {
	Article article.EditInput `json:"article"`
}

// ListArticles は記事一覧を取得する。
// GET /api/articles?tag=&author=&favorited=&limit=&offset=
func (h *ArticleHandler) ListArticles(w http.ResponseWriter, r *http.Request) {
	in, ok := parsePaging(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	in.Tag = q.Get("tag")
	in.Author = q.Get("author")
	in.FavoritedBy = q.Get("favorited")

	h.writeList(w, r, in)
}

// FeedArticles は閲覧者がフォローしている著者の記事一覧を取得する。
// GET /api/articles/feed?limit=&offset=
func (h *ArticleHandler) FeedArticles(w http.ResponseWriter, r *http.Request) {
	in, ok := parsePaging(w, r)
	if !ok {
		return
	}
	in.Feed = true

	h.writeList(w, r, in)
}

func (h *ArticleHandler) writeList(w http.ResponseWriter, r *http.Request, in article.ListInput) {
	result, err := h.service.ListArticles(r.Context(), middleware.ViewerFromContext(r.Context()), in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	articles := make([]articleResponse, len(result.Articles))
	for i, a := range result.Articles {
		articles[i] = toArticleResponse(a)
	}
	writeJSON(w, http.StatusOK, articlesEnvelope{Articles: articles, ArticlesCount: result.Count})
}

// GetArticle は記事を取得する。
// GET /api/articles/{slug}
func (h *ArticleHandler) GetArticle(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.GetArticle(r.Context(), middleware.ViewerFromContext(r.Context()), chi.URLParam(r, "slug"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, articleEnvelope{Article: toArticleResponse(a)})
}

// CreateArticle は記事を作成する。
// POST /api/articles
func (h *ArticleHandler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	var req createArticleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	a, err := h.service.CreateArticle(r.Context(), middleware.ViewerFromContext(r.Context()), req.Article)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, articleEnvelope{Article: toArticleResponse(a)})
}

// UpdateArticle は記事を編集する。
// PUT /api/articles/{slug}
func (h *ArticleHandler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	var req editArticleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	a, err := h.service.EditArticle(r.Context(), middleware.ViewerFromContext(r.Context()), chi.URLParam(r, "slug"), req.Article)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, articleEnvelope{Article: toArticleResponse(a)})
}

// DeleteArticle は記事を削除する。
// DELETE /api/articles/{slug}
func (h *ArticleHandler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteArticle(r.Context(), middleware.ViewerFromContext(r.Context()), chi.URLParam(r, "slug")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FavoriteArticle は記事をお気に入りに追加する。
// POST /api/articles/{slug}/favorite
func (h *ArticleHandler) FavoriteArticle(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.FavoriteArticle(r.Context(), middleware.ViewerFromContext(r.Context()), chi.URLParam(r, "slug"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, articleEnvelope{Article: toArticleResponse(a)})
}

// UnfavoriteArticle は記事をお気に入りから外す。
// DELETE /api/articles/{slug}/favorite
func (h *ArticleHandler) UnfavoriteArticle(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.UnfavoriteArticle(r.Context(), middleware.ViewerFromContext(r.Context()), chi.URLParam(r, "slug"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, articleEnvelope{Article: toArticleResponse(a)})
}

// parsePaging は limit / offset クエリを解析する。数値でない場合は400を書き込む。
func parsePaging(w http.ResponseWriter, r *http.Request) (article.ListInput, bool) {
	var in article.ListInput
	fields := map[string]string{}

	for _, p := range []struct {
		name string
		dst  **int
	}{
		{"limit", &in.Limit},
		{"offset", &in.Offset},
	} {
		raw := r.URL.Query().Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			fields[p.name] = "整数で指定してください"
			continue
		}
		*p.dst = &n
	}

	if len(fields) > 0 {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError(fields))
		return in, false
	}
	return in, true
}
