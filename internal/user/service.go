// Package user はログイン中の人物自身のアカウント情報の参照・編集を提供する。
// パスワードなどの資格情報は外部の認証サービスが管理するため扱わない。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/conduit/internal/model"
	"github.com/hitoshi/conduit/internal/repository"
	"github.com/hitoshi/conduit/internal/validation"
)

// EditInput はアカウント編集の入力。nil のフィールドは変更しない。
// Bio と Image は空文字列で消去できる。
type EditInput struct {
	Username *string `json:"username,omitempty" validate:"omitempty,notblank,max=255"`
	Email    *string `json:"email,omitempty" validate:"omitempty,notblank,email,max=255"`
	Bio      *string `json:"bio,omitempty" validate:"omitempty,max=4096"`
	Image    *string `json:"image,omitempty" validate:"omitempty,max=2048"`
}

// Service はアカウントのユースケースを提供する。
type Service struct {
	persons   repository.PersonRepository
	validator *validation.Validator
}

// NewService は新しいServiceを生成する。validator が nil の場合は validation.New() を使用する。
func NewService(persons repository.PersonRepository, validator *validation.Validator) *Service {
	if validator == nil {
		validator = validation.New()
	}
	return &Service{persons: persons, validator: validator}
}

// Current は閲覧者自身の人物情報を返す。
func (s *Service) Current(ctx context.Context, viewer *model.Viewer) (*model.Person, error) {
	if viewer == nil {
		return nil, model.NewUnauthorizedError()
	}
	p, err := s.persons.FindByID(ctx, viewer.PersonID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	// セッションは有効だが人物が削除済み
	if p == nil {
		return nil, model.NewUnauthorizedError()
	}
	return p, nil
}

// Edit は閲覧者自身のユーザー名・メールアドレス・自己紹介・画像を更新する。
// 値が変わらない場合は保存しない。ユーザー名・メールアドレスの重複はストレージの一意制約違反として返る。
func (s *Service) Edit(ctx context.Context, viewer *model.Viewer, in EditInput) (*model.Person, error) {
	if viewer == nil {
		return nil, model.NewUnauthorizedError()
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	p, err := s.Current(ctx, viewer)
	if err != nil {
		return nil, err
	}

	before := *p
	if in.Username != nil {
		p.Username = strings.TrimSpace(*in.Username)
	}
	if in.Email != nil {
		p.Email = strings.TrimSpace(*in.Email)
	}
	if in.Bio != nil {
		p.Bio = *in.Bio
	}
	if in.Image != nil {
		p.Image = *in.Image
	}

	if p.Username == before.Username && p.Email == before.Email && p.Bio == before.Bio && p.Image == before.Image {
		return p, nil
	}

	if err := s.persons.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("ユーザーの更新に失敗しました: %w", err)
	}
	if p.Username != before.Username {
		slog.InfoContext(ctx, "username changed",
			slog.Int64("person_id", p.ID),
			slog.String("from", before.Username),
			slog.String("to", p.Username),
		)
	}
	return p, nil
}
