package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/conduit/internal/middleware"
	"github.com/hitoshi/conduit/internal/model"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	GetProfile(ctx context.Context, viewer *model.Viewer, username string) (*model.Person, error)
	FollowUser(ctx context.Context, viewer *model.Viewer, username string) (*model.Person, error)
	UnfollowUser(ctx context.Context, viewer *model.Viewer, username string) (*model.Person, error)
}

// ProfileHandler はプロフィールのHTTPハンドラー。
type ProfileHandler struct {
	service ProfileServiceInterface
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// GetProfile はプロフィールを取得する。
// GET /api/profiles/{username}
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.service.GetProfile)
}

// FollowUser はユーザーをフォローする。
// POST /api/profiles/{username}/follow
func (h *ProfileHandler) FollowUser(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.service.FollowUser)
}

// UnfollowUser はユーザーのフォローを解除する。
// DELETE /api/profiles/{username}/follow
func (h *ProfileHandler) UnfollowUser(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.service.UnfollowUser)
}

func (h *ProfileHandler) respond(w http.ResponseWriter, r *http.Request, op func(context.Context, *model.Viewer, string) (*model.Person, error)) {
	p, err := op(r.Context(), middleware.ViewerFromContext(r.Context()), chi.URLParam(r, "username"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileEnvelope{Profile: toProfileResponse(p)})
}
