// Package repository はデータ永続化のインターフェースを定義する。
// 実装はコンテキストに紐付いたトランザクションがあればそれを使用する（database.ExecutorFrom）。
package repository

import (
	"context"

	"github.com/hitoshi/conduit/internal/model"
)

// PersonRepository は人物データの永続化インターフェース。
// 人物の作成と資格情報（hash/salt）の管理は外部の認証サービスが行う。
type PersonRepository interface {
	// FindByID は指定IDの人物を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Person, error)

	// FindByUsername はユーザー名で人物を取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.Person, error)

	// FindByIDs は指定IDの人物をまとめて取得する。存在しないIDは無視する。
	FindByIDs(ctx context.Context, ids []int64) ([]*model.Person, error)

	// Update は人物のユーザー名・メールアドレス・自己紹介・画像を上書きする。
	// ユーザー名・メールアドレスの一意制約違反はそのままエラーとして返す。
	Update(ctx context.Context, person *model.Person) error
}

// FollowRepository はフォロー関係の永続化インターフェース。
type FollowRepository interface {
	// Exists は personID が targetID をフォローしているかを返す。
	Exists(ctx context.Context, personID, targetID int64) (bool, error)

	// ListFollowedAmong は targetIDs のうち personID がフォローしているIDを返す。
	ListFollowedAmong(ctx context.Context, personID int64, targetIDs []int64) ([]int64, error)

	// Create はフォロー関係を作成する。既に存在する場合は何もしない。
	Create(ctx context.Context, personID, targetID int64) error

	// Delete はフォロー関係を削除する。存在しない場合は何もしない。
	Delete(ctx context.Context, personID, targetID int64) error
}

// ArticleRepository は記事データの永続化インターフェース。
type ArticleRepository interface {
	// FindBySlug はslugで記事を取得する。見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, slug string) (*model.Article, error)

	// Create は記事を作成し、採番されたIDとタイムスタンプを article に設定する。
	// slug は未設定（NULL）のまま保存される。
	Create(ctx context.Context, article *model.Article) error

	// UpdateSlug は記事のslugを設定する。
	UpdateSlug(ctx context.Context, id int64, slug string) error

	// Update は記事のタイトル・概要・本文・slug・updated_atを上書きする。
	Update(ctx context.Context, article *model.Article) error

	// Delete は記事と、その記事のタグ付け・お気に入りを削除する。
	Delete(ctx context.Context, id int64) error

	// List は絞り込み条件に一致する記事を created_at 降順で返す。
	List(ctx context.Context, filter model.ArticleFilter, page model.Page) ([]*model.Article, error)

	// Count は絞り込み条件に一致する記事の総数を返す。
	Count(ctx context.Context, filter model.ArticleFilter) (int, error)
}

// TagRepository はタグデータの永続化インターフェース。
type TagRepository interface {
	// FindByIDs は指定IDのうち保存済みのタグを返す。
	FindByIDs(ctx context.Context, ids []string) ([]model.Tag, error)

	// Create はタグをまとめて作成する。
	// 既存タグとの一意制約違反はそのままエラーとして返す。
	Create(ctx context.Context, tags []model.Tag) error

	// ListAll は全タグをID昇順で返す。
	ListAll(ctx context.Context) ([]model.Tag, error)

	// DeleteUnreferenced はどの記事からも参照されていないタグを一括削除し、削除したIDを返す。
	DeleteUnreferenced(ctx context.Context) ([]string, error)
}

// ArticleTagRepository は記事とタグの関連の永続化インターフェース。
type ArticleTagRepository interface {
	// ListByArticleIDs は指定記事群のタグ付けを記事ID・関連付け順で返す。
	ListByArticleIDs(ctx context.Context, articleIDs []int64) ([]model.ArticleTag, error)

	// Insert はタグ付けをまとめて作成する。
	Insert(ctx context.Context, rows []model.ArticleTag) error

	// Delete は記事から指定タグのタグ付けを削除する。
	Delete(ctx context.Context, articleID int64, tagIDs []string) error
}

// FavoriteRepository はお気に入りの永続化インターフェース。
type FavoriteRepository interface {
	// ListByArticleIDs は指定記事群のお気に入りを返す。
	ListByArticleIDs(ctx context.Context, articleIDs []int64) ([]model.ArticleFavorite, error)

	// Create はお気に入りを作成する。既に存在する場合は何もしない。
	Create(ctx context.Context, articleID, personID int64) error

	// Delete はお気に入りを削除する。存在しない場合は何もしない。
	Delete(ctx context.Context, articleID, personID int64) error
}

// SessionRepository はセッションデータの読み取りインターフェース。
type SessionRepository interface {
	// FindByID は指定IDの有効なセッションをユーザー名付きで取得する。
	// 期限切れ、または存在しない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
}
