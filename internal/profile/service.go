package profile

import (
	"context"
	"fmt"

	"github.com/hitoshi/conduit/internal/model"
	"github.com/hitoshi/conduit/internal/repository"
)

// Service はフォロー・フォロー解除のユースケースを提供する。
type Service struct {
	reader  *Reader
	persons repository.PersonRepository
	follows repository.FollowRepository
}

// NewService は新しいServiceを生成する。
func NewService(persons repository.PersonRepository, follows repository.FollowRepository) *Service {
	return &Service{
		reader:  NewReader(persons, follows),
		persons: persons,
		follows: follows,
	}
}

// Reader はサービスが使用するReaderを返す。
func (s *Service) Reader() *Reader {
	return s.reader
}

// GetProfile はユーザー名のプロフィールを閲覧者から見た状態で返す。
func (s *Service) GetProfile(ctx context.Context, viewer *model.Viewer, username string) (*model.Person, error) {
	return s.reader.ReadProfile(ctx, viewer, username)
}

// Follow は閲覧者が username の人物をフォローする。既にフォロー済みでもエラーにしない。
// 自分自身はフォローできない。
func (s *Service) Follow(ctx context.Context, viewer *model.Viewer, username string) (*model.Person, error) {
	target, err := s.resolveTarget(ctx, viewer, username)
	if err != nil {
		return nil, err
	}
	if target.ID == viewer.PersonID {
		return nil, model.NewSelfFollowError()
	}

	if err := s.follows.Create(ctx, viewer.PersonID, target.ID); err != nil {
		return nil, fmt.Errorf("フォローに失敗しました: %w", err)
	}
	target.Following = true
	return target, nil
}

// Unfollow は閲覧者による username の人物へのフォローを解除する。未フォローでもエラーにしない。
func (s *Service) Unfollow(ctx context.Context, viewer *model.Viewer, username string) (*model.Person, error) {
	target, err := s.resolveTarget(ctx, viewer, username)
	if err != nil {
		return nil, err
	}

	if err := s.follows.Delete(ctx, viewer.PersonID, target.ID); err != nil {
		return nil, fmt.Errorf("フォロー解除に失敗しました: %w", err)
	}
	target.Following = false
	return target, nil
}

func (s *Service) resolveTarget(ctx context.Context, viewer *model.Viewer, username string) (*model.Person, error) {
	if viewer == nil {
		return nil, model.NewUnauthorizedError()
	}
	target, err := s.persons.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("フォロー対象の取得に失敗しました: %w", err)
	}
	if target == nil {
		return nil, model.NewUserNotFoundError(username)
	}
	return target, nil
}
