package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/conduit/internal/middleware"
)

// HealthChecker はヘルスチェックでDB疎通を確認するためのインターフェース。
// *sql.DB が実装する。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	StatusRecorder    middleware.StatusRecorder // nil の場合は記録しない
	Logger            *slog.Logger              // nil の場合は slog.Default()

	// ヘルスチェック・メトリクス
	HealthChecker  HealthChecker
	MetricsHandler http.Handler // nil の場合は /metrics を公開しない

	ArticleService ArticleServiceInterface
	ProfileService ProfileServiceInterface
	TagService     TagServiceInterface
	UserService    UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP → Recovery → Logging → APIHeaders → CORS → Viewer → RateLimit(General) → RateLimit(Write)
//
// /health と /metrics はAPIのミドルウェアチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware())

	r.Get("/health", healthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	articleHandler := NewArticleHandler(deps.ArticleService)
	profileHandler := NewProfileHandler(deps.ProfileService)
	tagHandler := NewTagHandler(deps.TagService)
	userHandler := NewUserHandler(deps.UserService)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewLoggingMiddleware(logger, deps.StatusRecorder))
		r.Use(middleware.NewAPIHeadersMiddleware())
		r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
		r.Use(middleware.NewViewerMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(deps.RateLimiter.WriteMiddleware())

		// --- 閲覧者が任意のルート ---
		r.Get("/articles", articleHandler.ListArticles)
		r.Get("/articles/{slug}", articleHandler.GetArticle)
		r.Get("/profiles/{username}", profileHandler.GetProfile)
		r.Get("/tags", tagHandler.ListTags)

		// --- 閲覧者が必須のルート ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireViewer)

			r.Get("/articles/feed", articleHandler.FeedArticles)
			r.Post("/articles", articleHandler.CreateArticle)
			r.Put("/articles/{slug}", articleHandler.UpdateArticle)
			r.Delete("/articles/{slug}", articleHandler.DeleteArticle)
			r.Post("/articles/{slug}/favorite", articleHandler.FavoriteArticle)
			r.Delete("/articles/{slug}/favorite", articleHandler.UnfavoriteArticle)

			r.Post("/profiles/{username}/follow", profileHandler.FollowUser)
			r.Delete("/profiles/{username}/follow", profileHandler.UnfollowUser)

			r.Get("/user", userHandler.CurrentUser)
			r.Put("/user", userHandler.UpdateUser)
		})
	})

	return r
}

// healthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
// GET /health
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			defer cancel()
			if err := checker.PingContext(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
