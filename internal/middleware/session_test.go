package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/conduit/internal/model"
)

// --- モック定義 ---

type mockSessionRepository struct {
	findByIDFn func(ctx context.Context, id string) (*model.Session, error)
}

func (m *mockSessionRepository) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func validSessionRepo() *mockSessionRepository {
	return &mockSessionRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			if id == "valid-session-id" {
				return &model.Session{
					ID:        "valid-session-id",
					PersonID:  7,
					Username:  "alice",
					ExpiresAt: time.Now().Add(1 * time.Hour),
				}, nil
			}
			return nil, nil
		},
	}
}

// --- テスト ---

func TestViewerMiddleware_ResolvesCredential(t *testing.T) {
	tests := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{"Authorizationヘッダー", func(r *http.Request) { r.Header.Set("Authorization", "Token valid-session-id") }},
		{"Cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session-id"}) }},
		{"ヘッダーがCookieより優先される", func(r *http.Request) {
			r.Header.Set("Authorization", "Token valid-session-id")
			r.AddCookie(&http.Cookie{Name: "session_id", Value: "other"})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured *model.Viewer
			handler := NewViewerMiddleware(validSessionRepo())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				captured = ViewerFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/articles", nil)
			tt.setup(req)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
			}
			if captured == nil || captured.PersonID != 7 || captured.Username != "alice" {
				t.Errorf("viewer = %+v, want alice(7)", captured)
			}
		})
	}
}

func TestViewerMiddleware_NoCredential_PassesAnonymous(t *testing.T) {
	called := false
	handler := NewViewerMiddleware(validSessionRepo())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if v := ViewerFromContext(r.Context()); v != nil {
			t.Errorf("expected anonymous viewer, got %+v", v)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/articles", nil)
	req.Header.Set("Authorization", "Bearer something")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !called {
		t.Error("handler should be called for anonymous requests")
	}
}

func TestViewerMiddleware_InvalidSession_Returns401(t *testing.T) {
	handler := NewViewerMiddleware(validSessionRepo())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/articles", nil)
	req.Header.Set("Authorization", "Token expired-session")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.Code != model.ErrCodeUnauthorized {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeUnauthorized)
	}
}

func TestViewerMiddleware_RepositoryError_Returns500(t *testing.T) {
	repo := &mockSessionRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return nil, context.DeadlineExceeded
		},
	}
	handler := NewViewerMiddleware(repo)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/articles", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "some-session"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestRequireViewer(t *testing.T) {
	handler := RequireViewer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/articles", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/articles", nil)
	req = req.WithContext(ContextWithViewer(req.Context(), &model.Viewer{PersonID: 1, Username: "a"}))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("viewer: status = %d, want %d", w.Code, http.StatusNoContent)
	}
}

func TestViewerFromContext_Empty(t *testing.T) {
	if v := ViewerFromContext(context.Background()); v != nil {
		t.Errorf("expected nil, got %+v", v)
	}
}

func TestSessionToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := SessionToken(r); got != "" {
		t.Errorf("SessionToken = %q, want empty", got)
	}

	r.Header.Set("Authorization", "Token  abc ")
	if got := SessionToken(r); got != "abc" {
		t.Errorf("SessionToken = %q, want abc", got)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "session_id", Value: "from-cookie"})
	if got := SessionToken(r); got != "from-cookie" {
		t.Errorf("SessionToken = %q, want from-cookie", got)
	}
}
