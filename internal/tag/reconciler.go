package tag

import (
	"context"
	"fmt"

	"github.com/hitoshi/conduit/internal/model"
	"github.com/hitoshi/conduit/internal/repository"
)

// Plan はリコンサイルで適用した変更内容を表す。
type Plan struct {
	// Attached は新たに作成したタグ付け。
	Attached []model.ArticleTag
	// Detached は削除したタグ付け。
	Detached []model.ArticleTag
	// NewTags はタグ表に新規挿入したタグID。既存タグへの付け替えは含まない。
	NewTags []string
}

// Empty は変更がなかった場合に true を返す。
func (p Plan) Empty() bool {
	return len(p.Attached) == 0 && len(p.Detached) == 0
}

// Reconciler は記事のタグ付けを希望集合に一致させる。
type Reconciler struct {
	tags        repository.TagRepository
	articleTags repository.ArticleTagRepository
}

// NewReconciler は新しいReconcilerを生成する。
func NewReconciler(tags repository.TagRepository, articleTags repository.ArticleTagRepository) *Reconciler {
	return &Reconciler{tags: tags, articleTags: articleTags}
}

// Reconcile は article.ArticleTags を現在の状態として差分を適用し、
// 完了後の article.ArticleTags を希望集合と一致させる。
// 保存済みのタグIDは既存レコードに付け替え、タグ表へは未保存のIDだけを挿入する。
func (r *Reconciler) Reconcile(ctx context.Context, article *model.Article, desired []string) (Plan, error) {
	toCreate, toDelete := Diff(article.ArticleTags, desired)

	var plan Plan

	if len(toCreate) > 0 {
		stored, err := r.tags.FindByIDs(ctx, toCreate)
		if err != nil {
			return Plan{}, fmt.Errorf("既存タグの解決に失敗しました: %w", err)
		}
		existing := make(map[string]*model.Tag, len(stored))
		for i := range stored {
			existing[stored[i].ID] = &stored[i]
		}

		var fresh []model.Tag
		for _, id := range toCreate {
			t, ok := existing[id]
			if !ok {
				t = &model.Tag{ID: id}
				fresh = append(fresh, *t)
				plan.NewTags = append(plan.NewTags, id)
			}
			plan.Attached = append(plan.Attached, model.ArticleTag{ArticleID: article.ID, TagID: id, Tag: t})
		}

		if err := r.tags.Create(ctx, fresh); err != nil {
			return Plan{}, fmt.Errorf("タグの作成に失敗しました: %w", err)
		}
		if err := r.articleTags.Insert(ctx, plan.Attached); err != nil {
			return Plan{}, fmt.Errorf("タグ付けの作成に失敗しました: %w", err)
		}
	}

	if len(toDelete) > 0 {
		ids := make([]string, 0, len(toDelete))
		for _, at := range toDelete {
			ids = append(ids, at.TagID)
		}
		if err := r.articleTags.Delete(ctx, article.ID, ids); err != nil {
			return Plan{}, fmt.Errorf("タグ付けの削除に失敗しました: %w", err)
		}
		plan.Detached = toDelete
	}

	article.ArticleTags = applyPlan(article.ArticleTags, plan)
	return plan, nil
}

// applyPlan は既存のタグ付けから削除分を除き、追加分を末尾に連結する。
func applyPlan(current []model.ArticleTag, plan Plan) []model.ArticleTag {
	removed := make(map[string]struct{}, len(plan.Detached))
	for _, at := range plan.Detached {
		removed[at.TagID] = struct{}{}
	}

	result := make([]model.ArticleTag, 0, len(current)+len(plan.Attached))
	for _, at := range current {
		if _, ok := removed[at.TagID]; !ok {
			result = append(result, at)
		}
	}
	return append(result, plan.Attached...)
}
