package article

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hitoshi/conduit/internal/model"
	"github.com/hitoshi/conduit/internal/repository"
)

// memState はインメモリストアの全データ。トランザクション開始時に複製される。
type memState struct {
	nextArticleID int64
	persons       map[int64]model.Person
	follows       map[[2]int64]bool
	articles      map[int64]model.Article
	tags          map[string]bool
	articleTags   []model.ArticleTag
	favorites     []model.ArticleFavorite
}

func (s memState) clone() memState {
	c := memState{
		nextArticleID: s.nextArticleID,
		persons:       make(map[int64]model.Person, len(s.persons)),
		follows:       make(map[[2]int64]bool, len(s.follows)),
		articles:      make(map[int64]model.Article, len(s.articles)),
		tags:          make(map[string]bool, len(s.tags)),
		articleTags:   append([]model.ArticleTag(nil), s.articleTags...),
		favorites:     append([]model.ArticleFavorite(nil), s.favorites...),
	}
	for k, v := range s.persons {
		c.persons[k] = v
	}
	for k, v := range s.follows {
		c.follows[k] = v
	}
	for k, v := range s.articles {
		c.articles[k] = v
	}
	for k, v := range s.tags {
		c.tags[k] = v
	}
	return c
}

// memStore はリポジトリインターフェースを満たすトランザクション対応のフェイク。
type memStore struct {
	mu    sync.Mutex
	state memState

	// 障害注入
	deleteUnreferencedErr error

	tagCreateCalls int
}

func newMemStore() *memStore {
	return &memStore{state: memState{
		nextArticleID: 1,
		persons:       map[int64]model.Person{},
		follows:       map[[2]int64]bool{},
		articles:      map[int64]model.Article{},
		tags:          map[string]bool{},
	}}
}

func (s *memStore) addPerson(id int64, username string) *model.Viewer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.persons[id] = model.Person{ID: id, Username: username, Email: username + "@example.com"}
	return &model.Viewer{PersonID: id, Username: username}
}

func (s *memStore) tagIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id := range s.state.tags {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *memStore) article(id int64) (model.Article, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.state.articles[id]
	return a, ok
}

// --- トランザクション ---

type memTx struct {
	store *memStore
	saved memState
	done  bool
}

func (s *memStore) begin(ctx context.Context) (*memTx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &memTx{store: s, saved: s.state.clone()}, nil
}

func (t *memTx) Commit() error {
	t.done = true
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.state = t.saved
	return nil
}

// --- repositories ---

type memPersons struct{ s *memStore }

func (r memPersons) FindByID(ctx context.Context, id int64) (*model.Person, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.state.persons[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r memPersons) FindByUsername(ctx context.Context, username string) (*model.Person, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.state.persons {
		if p.Username == username {
			return &p, nil
		}
	}
	return nil, nil
}

func (r memPersons) FindByIDs(ctx context.Context, ids []int64) ([]*model.Person, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Person
	for _, id := range ids {
		if p, ok := r.s.state.persons[id]; ok {
			out = append(out, &p)
		}
	}
	return out, nil
}

func (r memPersons) Update(ctx context.Context, p *model.Person) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.state.persons[p.ID]; !ok {
		return fmt.Errorf("person %d not found", p.ID)
	}
	r.s.state.persons[p.ID] = *p
	return nil
}

type memFollows struct{ s *memStore }

func (r memFollows) Exists(ctx context.Context, personID, targetID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.state.follows[[2]int64{personID, targetID}], nil
}

func (r memFollows) ListFollowedAmong(ctx context.Context, personID int64, targetIDs []int64) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []int64
	for _, id := range targetIDs {
		if r.s.state.follows[[2]int64{personID, id}] {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r memFollows) Create(ctx context.Context, personID, targetID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.state.follows[[2]int64{personID, targetID}] = true
	return nil
}

func (r memFollows) Delete(ctx context.Context, personID, targetID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.state.follows, [2]int64{personID, targetID})
	return nil
}

type memArticles struct{ s *memStore }

func (r memArticles) FindBySlug(ctx context.Context, slug string) (*model.Article, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.state.articles {
		if a.Slug == slug && slug != "" {
			return &a, nil
		}
	}
	return nil, nil
}

func (r memArticles) Create(ctx context.Context, a *model.Article) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a.ID = r.s.state.nextArticleID
	r.s.state.nextArticleID++
	r.s.state.articles[a.ID] = stripGraph(*a)
	return nil
}

func (r memArticles) UpdateSlug(ctx context.Context, id int64, slug string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.state.articles {
		if other.ID != id && other.Slug == slug {
			return fmt.Errorf("duplicate slug %q", slug)
		}
	}
	a := r.s.state.articles[id]
	a.Slug = slug
	r.s.state.articles[id] = a
	return nil
}

func (r memArticles) Update(ctx context.Context, a *model.Article) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored := r.s.state.articles[a.ID]
	stored.Title, stored.Description, stored.Body, stored.Slug, stored.UpdatedAt = a.Title, a.Description, a.Body, a.Slug, a.UpdatedAt
	r.s.state.articles[a.ID] = stored
	return nil
}

func (r memArticles) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.state.articles, id)
	r.s.state.articleTags = filterTags(r.s.state.articleTags, func(at model.ArticleTag) bool { return at.ArticleID != id })
	var favs []model.ArticleFavorite
	for _, f := range r.s.state.favorites {
		if f.ArticleID != id {
			favs = append(favs, f)
		}
	}
	r.s.state.favorites = favs
	return nil
}

func (r memArticles) matching(f model.ArticleFilter) []model.Article {
	var out []model.Article
	for _, a := range r.s.state.articles {
		if f.FollowerID != nil && !r.s.state.follows[[2]int64{*f.FollowerID, a.AuthorID}] {
			continue
		}
		if f.TagID != "" && !hasTag(r.s.state.articleTags, a.ID, f.TagID) {
			continue
		}
		if f.AuthorID != nil && a.AuthorID != *f.AuthorID {
			continue
		}
		if f.FavoritedByID != nil && !hasFavorite(r.s.state.favorites, a.ID, *f.FavoritedByID) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r memArticles) List(ctx context.Context, f model.ArticleFilter, page model.Page) ([]*model.Article, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := r.matching(f)
	var out []*model.Article
	for i := page.Offset; i < len(all) && i < page.Offset+page.Limit; i++ {
		a := all[i]
		out = append(out, &a)
	}
	return out, nil
}

func (r memArticles) Count(ctx context.Context, f model.ArticleFilter) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.matching(f)), nil
}

type memTags struct{ s *memStore }

func (r memTags) FindByIDs(ctx context.Context, ids []string) ([]model.Tag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Tag
	for _, id := range ids {
		if r.s.state.tags[id] {
			out = append(out, model.Tag{ID: id})
		}
	}
	return out, nil
}

// Create は既存IDに対して主キー違反相当のエラーを返す。
func (r memTags) Create(ctx context.Context, tags []model.Tag) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if len(tags) == 0 {
		return nil
	}
	r.s.tagCreateCalls++
	for _, t := range tags {
		if r.s.state.tags[t.ID] {
			return fmt.Errorf("duplicate key value violates unique constraint \"tags_pkey\": %s", t.ID)
		}
	}
	for _, t := range tags {
		r.s.state.tags[t.ID] = true
	}
	return nil
}

func (r memTags) ListAll(ctx context.Context) ([]model.Tag, error) {
	var out []model.Tag
	for _, id := range r.s.tagIDs() {
		out = append(out, model.Tag{ID: id})
	}
	return out, nil
}

func (r memTags) DeleteUnreferenced(ctx context.Context) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.deleteUnreferencedErr != nil {
		return nil, r.s.deleteUnreferencedErr
	}
	var deleted []string
	for id := range r.s.state.tags {
		referenced := false
		for _, at := range r.s.state.articleTags {
			if at.TagID == id {
				referenced = true
				break
			}
		}
		if !referenced {
			deleted = append(deleted, id)
		}
	}
	for _, id := range deleted {
		delete(r.s.state.tags, id)
	}
	sort.Strings(deleted)
	return deleted, nil
}

type memArticleTags struct{ s *memStore }

func (r memArticleTags) ListByArticleIDs(ctx context.Context, ids []int64) ([]model.ArticleTag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return filterTags(r.s.state.articleTags, func(at model.ArticleTag) bool { return want[at.ArticleID] }), nil
}

func (r memArticleTags) Insert(ctx context.Context, rows []model.ArticleTag) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, at := range rows {
		if !r.s.state.tags[at.TagID] {
			return fmt.Errorf("foreign key violation: tag %q", at.TagID)
		}
		if hasTag(r.s.state.articleTags, at.ArticleID, at.TagID) {
			return fmt.Errorf("duplicate article tag %d/%s", at.ArticleID, at.TagID)
		}
		r.s.state.articleTags = append(r.s.state.articleTags, model.ArticleTag{
			ArticleID: at.ArticleID, TagID: at.TagID, Tag: &model.Tag{ID: at.TagID},
		})
	}
	return nil
}

func (r memArticleTags) Delete(ctx context.Context, articleID int64, tagIDs []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	drop := make(map[string]bool, len(tagIDs))
	for _, id := range tagIDs {
		drop[id] = true
	}
	r.s.state.articleTags = filterTags(r.s.state.articleTags, func(at model.ArticleTag) bool {
		return at.ArticleID != articleID || !drop[at.TagID]
	})
	return nil
}

type memFavorites struct{ s *memStore }

func (r memFavorites) ListByArticleIDs(ctx context.Context, ids []int64) ([]model.ArticleFavorite, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []model.ArticleFavorite
	for _, f := range r.s.state.favorites {
		if want[f.ArticleID] {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r memFavorites) Create(ctx context.Context, articleID, personID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !hasFavorite(r.s.state.favorites, articleID, personID) {
		r.s.state.favorites = append(r.s.state.favorites, model.ArticleFavorite{ArticleID: articleID, PersonID: personID})
	}
	return nil
}

func (r memFavorites) Delete(ctx context.Context, articleID, personID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.ArticleFavorite
	for _, f := range r.s.state.favorites {
		if f.ArticleID != articleID || f.PersonID != personID {
			out = append(out, f)
		}
	}
	r.s.state.favorites = out
	return nil
}

var (
	_ repository.PersonRepository     = memPersons{}
	_ repository.FollowRepository     = memFollows{}
	_ repository.ArticleRepository    = memArticles{}
	_ repository.TagRepository        = memTags{}
	_ repository.ArticleTagRepository = memArticleTags{}
	_ repository.FavoriteRepository   = memFavorites{}
)

// --- helpers ---

func stripGraph(a model.Article) model.Article {
	a.Author, a.ArticleTags, a.ArticleFavorites, a.Favorited = nil, nil, nil, false
	return a
}

func filterTags(rows []model.ArticleTag, keep func(model.ArticleTag) bool) []model.ArticleTag {
	var out []model.ArticleTag
	for _, at := range rows {
		if keep(at) {
			out = append(out, at)
		}
	}
	return out
}

func hasTag(rows []model.ArticleTag, articleID int64, tagID string) bool {
	for _, at := range rows {
		if at.ArticleID == articleID && at.TagID == tagID {
			return true
		}
	}
	return false
}

func hasFavorite(rows []model.ArticleFavorite, articleID, personID int64) bool {
	for _, f := range rows {
		if f.ArticleID == articleID && f.PersonID == personID {
			return true
		}
	}
	return false
}
