package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/conduit/internal/middleware"
	"github.com/hitoshi/conduit/internal/model"
	"github.com/hitoshi/conduit/internal/user"
)

// UserServiceInterface はアカウントハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	CurrentUser(ctx context.Context, viewer *model.Viewer) (*model.Person, error)
	UpdateUser(ctx context.Context, viewer *model.Viewer, in user.EditInput) (*model.Person, error)
}

// UserHandler はログイン中のアカウントのHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

type updateUserRequest struct {
	User user.EditInput `json:"user"`
}

// CurrentUser はログイン中のアカウントを返す。
// GET /api/user
func (h *UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.CurrentUser(r.Context(), middleware.ViewerFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userEnvelope{User: toUserResponse(p, middleware.SessionToken(r))})
}

// UpdateUser はログイン中のアカウントを編集する。
// PUT /api/user
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.service.UpdateUser(r.Context(), middleware.ViewerFromContext(r.Context()), req.User)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userEnvelope{User: toUserResponse(p, middleware.SessionToken(r))})
}
