// Package profile は人物のプロフィール参照とフォロー関係の操作を提供する。
package profile

import (
	"context"
	"fmt"

	"github.com/hitoshi/conduit/internal/model"
	"github.com/hitoshi/conduit/internal/repository"
)

// Reader はフォロー関係を読み取り、閲覧者ごとの following フラグを算出する。
type Reader struct {
	persons repository.PersonRepository
	follows repository.FollowRepository
}

// NewReader は新しいReaderを生成する。
func NewReader(persons repository.PersonRepository, follows repository.FollowRepository) *Reader {
	return &Reader{persons: persons, follows: follows}
}

// IsFollowing は閲覧者が targetID をフォローしているかを返す。閲覧者がいなければ false。
func (r *Reader) IsFollowing(ctx context.Context, viewer *model.Viewer, targetID int64) (bool, error) {
	if viewer == nil {
		return false, nil
	}
	ok, err := r.follows.Exists(ctx, viewer.PersonID, targetID)
	if err != nil {
		return false, fmt.Errorf("フォロー状態の取得に失敗しました: %w", err)
	}
	return ok, nil
}

// FollowingSet は targetIDs のうち閲覧者がフォローしているIDの集合を1回の問い合わせで返す。
// 閲覧者がいなければ空集合。
func (r *Reader) FollowingSet(ctx context.Context, viewer *model.Viewer, targetIDs []int64) (map[int64]bool, error) {
	set := make(map[int64]bool)
	if viewer == nil || len(targetIDs) == 0 {
		return set, nil
	}

	ids, err := r.follows.ListFollowedAmong(ctx, viewer.PersonID, uniqueIDs(targetIDs))
	if err != nil {
		return nil, fmt.Errorf("フォロー状態の一括取得に失敗しました: %w", err)
	}
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// ReadProfile はユーザー名で人物を取得し、閲覧者から見た following を設定して返す。
func (r *Reader) ReadProfile(ctx context.Context, viewer *model.Viewer, username string) (*model.Person, error) {
	person, err := r.persons.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if person == nil {
		return nil, model.NewUserNotFoundError(username)
	}

	person.Following, err = r.IsFollowing(ctx, viewer, person.ID)
	if err != nil {
		return nil, err
	}
	return person, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
