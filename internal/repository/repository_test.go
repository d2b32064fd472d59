package repository

import "testing"

// 各Postgres実装がリポジトリインターフェースを満たすことを検証
func TestPostgresRepos_ImplementInterfaces(t *testing.T) {
	var _ PersonRepository = (*PostgresPersonRepo)(nil)
	var _ FollowRepository = (*PostgresFollowRepo)(nil)
	var _ ArticleRepository = (*PostgresArticleRepo)(nil)
	var _ TagRepository = (*PostgresTagRepo)(nil)
	var _ ArticleTagRepository = (*PostgresArticleTagRepo)(nil)
	var _ FavoriteRepository = (*PostgresFavoriteRepo)(nil)
	var _ SessionRepository = (*PostgresSessionRepo)(nil)
}

// 空のID集合ではDBに問い合わせずに空を返すことを検証（db=nilでもパニックしない）
func TestPostgresRepos_EmptyBatchesSkipQuery(t *testing.T) {
	ctx := t.Context()

	if got, err := NewPostgresPersonRepo(nil).FindByIDs(ctx, nil); err != nil || got != nil {
		t.Errorf("PersonRepo.FindByIDs(nil) = %v, %v", got, err)
	}
	if got, err := NewPostgresFollowRepo(nil).ListFollowedAmong(ctx, 1, nil); err != nil || got != nil {
		t.Errorf("FollowRepo.ListFollowedAmong(nil) = %v, %v", got, err)
	}
	if got, err := NewPostgresTagRepo(nil).FindByIDs(ctx, []string{}); err != nil || got != nil {
		t.Errorf("TagRepo.FindByIDs(empty) = %v, %v", got, err)
	}
	if err := NewPostgresTagRepo(nil).Create(ctx, nil); err != nil {
		t.Errorf("TagRepo.Create(nil) = %v", err)
	}
	if err := NewPostgresArticleTagRepo(nil).Insert(ctx, nil); err != nil {
		t.Errorf("ArticleTagRepo.Insert(nil) = %v", err)
	}
	if err := NewPostgresArticleTagRepo(nil).Delete(ctx, 1, nil); err != nil {
		t.Errorf("ArticleTagRepo.Delete(nil) = %v", err)
	}
	if got, err := NewPostgresFavoriteRepo(nil).ListByArticleIDs(ctx, nil); err != nil || got != nil {
		t.Errorf("FavoriteRepo.ListByArticleIDs(nil) = %v, %v", got, err)
	}
}
