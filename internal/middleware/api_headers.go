package middleware

import "net/http"

// NewAPIHeadersMiddleware はJSON APIのレスポンスに共通のヘッダーを付与するミドルウェアを返す。
// レスポンスはブラウザで描画・キャッシュされない前提とする。
func NewAPIHeadersMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Referrer-Policy", "no-referrer")
			// 閲覧者ごとに following / favorited が変わるため共有キャッシュさせない
			h.Set("Cache-Control", "no-store")
			h.Add("Vary", "Authorization, Cookie")
			next.ServeHTTP(w, r)
		})
	}
}
