package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/conduit/internal/article"
	"github.com/hitoshi/conduit/internal/metrics"
	"github.com/hitoshi/conduit/internal/middleware"
	"github.com/hitoshi/conduit/internal/model"
)

// --- モック定義 ---

type mockSessionFinder struct {
	sessions map[string]*model.Session
}

func (m *mockSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return m.sessions[id], nil
}

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.err
}

type routerFixture struct {
	router   http.Handler
	articles *mockArticleService
	profiles *mockProfileService
	tags     *mockTagService
	users    *mockUserService
	health   *mockHealthChecker
	registry *prometheus.Registry
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	rl := middleware.NewRateLimiter(middleware.RateLimiterConfigPerMinute(6000, 6000))
	t.Cleanup(rl.Stop)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	f := &routerFixture{
		articles: &mockArticleService{},
		profiles: &mockProfileService{},
		tags:     &mockTagService{},
		users:    &mockUserService{},
		health:   &mockHealthChecker{},
		registry: registry,
	}
	f.router = NewRouter(&RouterDeps{
		SessionFinder: &mockSessionFinder{sessions: map[string]*model.Session{
			"alice-token": {ID: "alice-token", PersonID: 7, Username: "alice", ExpiresAt: time.Now().Add(time.Hour)},
		}},
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       rl,
		StatusRecorder:    collector,
		Logger:            slog.New(slog.NewJSONHandler(io.Discard, nil)),
		HealthChecker:     f.health,
		MetricsHandler:    metrics.Handler(registry),
		ArticleService:    f.articles,
		ProfileService:    f.profiles,
		TagService:        f.tags,
		UserService:       f.users,
	})
	return f
}

func (f *routerFixture) do(method, path, token, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

// --- テスト ---

func TestRouter_ViewerRequiredRoutes(t *testing.T) {
	routes := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/api/articles/feed", ""},
		{http.MethodPost, "/api/articles", `{"article":{}}`},
		{http.MethodPut, "/api/articles/s", `{"article":{}}`},
		{http.MethodDelete, "/api/articles/s", ""},
		{http.MethodPost, "/api/articles/s/favorite", ""},
		{http.MethodDelete, "/api/articles/s/favorite", ""},
		{http.MethodPost, "/api/profiles/bob/follow", ""},
		{http.MethodDelete, "/api/profiles/bob/follow", ""},
		{http.MethodGet, "/api/user", ""},
		{http.MethodPut, "/api/user", `{"user":{}}`},
	}

	f := newRouterFixture(t)
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			w := f.do(rt.method, rt.path, "", rt.body)
			assertStatus(t, w, http.StatusUnauthorized)

			w = f.do(rt.method, rt.path, "alice-token", rt.body)
			if w.Code == http.StatusUnauthorized || w.Code == http.StatusNotFound || w.Code == http.StatusMethodNotAllowed {
				t.Errorf("authenticated status = %d, want routed to handler", w.Code)
			}
		})
	}
}

func TestRouter_AnonymousReadRoutes(t *testing.T) {
	f := newRouterFixture(t)
	for _, path := range []string{"/api/articles", "/api/articles/hello-world-1", "/api/profiles/alice", "/api/tags"} {
		t.Run(path, func(t *testing.T) {
			assertStatus(t, f.do(http.MethodGet, path, "", ""), http.StatusOK)
		})
	}
}

func TestRouter_InvalidTokenIsRejected(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(http.MethodGet, "/api/articles", "expired-token", "")

	assertStatus(t, w, http.StatusUnauthorized)
}

func TestRouter_FeedIsNotTreatedAsSlug(t *testing.T) {
	f := newRouterFixture(t)
	var feed bool
	var gotSlug string
	f.articles.listFn = func(ctx context.Context, viewer *model.Viewer, in article.ListInput) (*article.ListResult, error) {
		feed = in.Feed
		return &article.ListResult{Articles: []*model.Article{}}, nil
	}
	f.articles.getFn = func(ctx context.Context, viewer *model.Viewer, slug string) (*model.Article, error) {
		gotSlug = slug
		return sampleArticle(), nil
	}

	assertStatus(t, f.do(http.MethodGet, "/api/articles/feed", "alice-token", ""), http.StatusOK)
	if !feed {
		t.Error("GET /api/articles/feed should call the feed listing")
	}
	if gotSlug != "" {
		t.Errorf("GetArticle called with slug %q", gotSlug)
	}
}

func TestRouter_ViewerReachesService(t *testing.T) {
	f := newRouterFixture(t)
	var got *model.Viewer
	f.articles.createFn = func(ctx context.Context, viewer *model.Viewer, in article.CreateInput) (*model.Article, error) {
		got = viewer
		return sampleArticle(), nil
	}

	w := f.do(http.MethodPost, "/api/articles", "alice-token", `{"article":{"title":"t","description":"d","body":"b"}}`)

	assertStatus(t, w, http.StatusCreated)
	if got == nil || got.PersonID != 7 || got.Username != "alice" {
		t.Errorf("viewer = %+v, want alice(7)", got)
	}
	if w.Header().Get("X-Request-Id") == "" {
		t.Error("X-Request-Id header should be set")
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	f := newRouterFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/articles", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "http://localhost:3000")
	}
}

func TestRouter_Health(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(http.MethodGet, "/health", "", "")
	assertStatus(t, w, http.StatusOK)
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}

	f.health.err = errors.New("db unreachable")
	assertStatus(t, f.do(http.MethodGet, "/health", "", ""), http.StatusServiceUnavailable)
}

func TestRouter_MetricsExposesHTTPStatus(t *testing.T) {
	f := newRouterFixture(t)

	f.do(http.MethodGet, "/api/tags", "", "")
	f.do(http.MethodPost, "/api/articles", "", `{}`)

	w := f.do(http.MethodGet, "/metrics", "", "")
	assertStatus(t, w, http.StatusOK)
	body := w.Body.String()
	for _, want := range []string{`conduit_http_status_total{status_code="200"} 1`, `conduit_http_status_total{status_code="401"} 1`} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	f := newRouterFixture(t)

	assertStatus(t, f.do(http.MethodGet, "/api/unknown", "", ""), http.StatusNotFound)
}

func TestRouter_APIResponsesAreNotCached(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(http.MethodGet, "/api/tags", "", "")

	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want %q", got, "no-store")
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want %q", got, "nosniff")
	}
}

func TestRouter_CurrentUserEchoesToken(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(http.MethodGet, "/api/user", "alice-token", "")

	assertStatus(t, w, http.StatusOK)
	var body userEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.User.Username != "alice" || body.User.Token != "alice-token" {
		t.Errorf("user = %+v, want alice with its token", body.User)
	}
}
