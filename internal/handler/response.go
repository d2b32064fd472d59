package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/conduit/internal/middleware"
	"github.com/hitoshi/conduit/internal/model"
)

// uniqueViolation は PostgreSQL の一意制約違反コード。
const uniqueViolation = "23505"

// --- レスポンス型 ---

// profileResponse はプロフィールのレスポンス。
type profileResponse struct {
	Username  string `json:"username"`
	Bio       string `json:"bio"`
	Image     string `json:"image"`
	Following bool   `json:"following"`
}

// articleResponse は記事のレスポンス。
type articleResponse struct {
	Slug           string          `json:"slug"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Body           string          `json:"body"`
	TagList        []string        `json:"tagList"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	Favorited      bool            `json:"favorited"`
	FavoritesCount int             `json:"favoritesCount"`
	Author         profileResponse `json:"author"`
}

type articleEnvelope struct {
	Article articleResponse `json:"article"`
}

type articlesEnvelope struct {
	Articles      []articleResponse `json:"articles"`
	ArticlesCount int               `json:"articlesCount"`
}

type profileEnvelope struct {
	Profile profileResponse `json:"profile"`
}

// userResponse はログイン中のアカウントのレスポンス。Token はリクエストのセッションIDをそのまま返す。
type userResponse struct {
	Email    string `json:"email"`
	Token    string `json:"token"`
	Username string `json:"username"`
	Bio      string `json:"bio"`
	Image    string `json:"image"`
}

type userEnvelope struct {
	User userResponse `json:"user"`
}

type tagsEnvelope struct {
	Tags []string `json:"tags"`
}

func toProfileResponse(p *model.Person) profileResponse {
	if p == nil {
		return profileResponse{}
	}
	return profileResponse{
		Username:  p.Username,
		Bio:       p.Bio,
		Image:     p.Image,
		Following: p.Following,
	}
}

func toUserResponse(p *model.Person, token string) userResponse {
	return userResponse{
		Email:    p.Email,
		Token:    token,
		Username: p.Username,
		Bio:      p.Bio,
		Image:    p.Image,
	}
}

func toArticleResponse(a *model.Article) articleResponse {
	return articleResponse{
		Slug:           a.Slug,
		Title:          a.Title,
		Description:    a.Description,
		Body:           a.Body,
		TagList:        a.TagList(),
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
		Favorited:      a.Favorited,
		FavoritesCount: a.FavoritesCount(),
		Author:         toProfileResponse(a.Author),
	}
}

// --- 書き込みヘルパー ---

// writeJSON はステータスコードとJSONボディを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// decodeJSON はリクエストボディをデコードする。失敗時は400を書き込んで false を返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return false
	}
	return true
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
// ストレージの一意制約違反はコア層では変換されないため、ここで409に対応付ける。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		slog.WarnContext(r.Context(), "unique constraint conflict",
			slog.String("constraint", pqErr.Constraint),
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
		)
		middleware.WriteErrorResponse(w, http.StatusConflict, conflictError(pqErr.Constraint))
		return
	}

	if ctxErr := r.Context().Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		slog.InfoContext(r.Context(), "request cancelled",
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
		)
		return
	}

	slog.ErrorContext(r.Context(), "internal server error",
		slog.String("error", err.Error()),
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
	)
	middleware.WriteInternalServerError(w)
}

// conflictError は一意制約名に応じた409のエラーを返す。
func conflictError(constraint string) *model.APIError {
	switch constraint {
	case "persons_username_key":
		return &model.APIError{
			Code:     "CONFLICT",
			Message:  "このユーザー名は既に使用されています。",
			Category: "validation",
			Action:   "別のユーザー名を指定してください。",
			Fields:   map[string]string{"username": "既に使用されています"},
		}
	case "persons_email_key":
		return &model.APIError{
			Code:     "CONFLICT",
			Message:  "このメールアドレスは既に使用されています。",
			Category: "validation",
			Action:   "別のメールアドレスを指定してください。",
			Fields:   map[string]string{"email": "既に使用されています"},
		}
	default:
		return &model.APIError{
			Code:     "CONFLICT",
			Message:  "同時に行われた別の操作と競合しました。",
			Category: "system",
			Action:   "もう一度お試しください。",
		}
	}
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidation:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeArticleNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeSelfFollow:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
