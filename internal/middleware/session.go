// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/conduit/internal/model"
)

const (
	sessionCookieName = "session_id"
	tokenScheme       = "Token "
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// viewerContextKey はリクエストコンテキストに閲覧者を格納するためのキー。
var viewerContextKey = contextKey("viewer")

// SessionFinder はセッションの検索に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// NewViewerMiddleware は Authorization: Token <id> ヘッダーまたは session_id Cookie から
// セッションを解決し、閲覧者をリクエストコンテキストに注入する。
// 資格情報がないリクエストは匿名として通過させる。
// 資格情報があるのに無効・期限切れの場合は401を返す。
func NewViewerMiddleware(sessionFinder SessionFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, ok := credentialFrom(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			session, err := sessionFinder.FindByID(r.Context(), sessionID)
			if err != nil {
				slog.ErrorContext(r.Context(), "failed to find session",
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}
			if session == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			noteViewer(r.Context(), session.Username)
			ctx := ContextWithViewer(r.Context(), &model.Viewer{
				PersonID: session.PersonID,
				Username: session.Username,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireViewer は閲覧者が解決されていないリクエストに401を返す。
// NewViewerMiddleware の後に配置する。
func RequireViewer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ViewerFromContext(r.Context()) == nil {
			WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// credentialFrom はヘッダーを優先してセッションIDを取り出す。
func credentialFrom(r *http.Request) (string, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		if id, ok := strings.CutPrefix(h, tokenScheme); ok && strings.TrimSpace(id) != "" {
			return strings.TrimSpace(id), true
		}
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}
	return "", false
}

// SessionToken はリクエストに付与されたセッションIDを返す。付与されていない場合は空文字列。
func SessionToken(r *http.Request) string {
	id, _ := credentialFrom(r)
	return id
}

// ViewerFromContext はリクエストコンテキストから閲覧者を取得する。
// 匿名の場合は nil を返す。
func ViewerFromContext(ctx context.Context) *model.Viewer {
	v, _ := ctx.Value(viewerContextKey).(*model.Viewer)
	return v
}

// ContextWithViewer はコンテキストに閲覧者を注入する。
func ContextWithViewer(ctx context.Context, viewer *model.Viewer) context.Context {
	return context.WithValue(ctx, viewerContextKey, viewer)
}
