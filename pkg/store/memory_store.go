package store

import (
	"math"
	"sort"
	"strings"
	"sync"

	"reviewbase/pkg/domain"
)

// MemoryStore keeps everything in-process. It backs tests and local runs
// without Postgres.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[string]domain.User     // key: user ID
	categories map[string]domain.Category // key: slug
	genres     map[string]domain.Genre    // key: slug
	titles     map[string]domain.Title
	reviews    map[string]domain.Review
	comments   map[string]domain.Comment
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]domain.User),
		categories: make(map[string]domain.Category),
		genres:     make(map[string]domain.Genre),
		titles:     make(map[string]domain.Title),
		reviews:    make(map[string]domain.Review),
		comments:   make(map[string]domain.Comment),
	}
}

// users

func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) GetUserByUsername(username string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, true, nil
		}
	}
	return domain.User{}, false, nil
}

func (m *MemoryStore) HasUserUsername(username string) (bool, error) {
	_, ok, _ := m.GetUserByUsername(username)
	return ok, nil
}

func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) ListUsers(search string) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		if search != "" && !containsFold(u.Username, search) {
			continue
		}
		res = append(res, u)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Username < res[j].Username })
	return res, nil
}

func (m *MemoryStore) DeleteUser(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	return nil
}

// categories & genres

func (m *MemoryStore) SaveCategory(c domain.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories[c.Slug] = c
	return nil
}

func (m *MemoryStore) GetCategoryBySlug(slug string) (domain.Category, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.categories[slug]
	return c, ok, nil
}

func (m *MemoryStore) ListCategories(search string) ([]domain.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Category, 0, len(m.categories))
	for _, c := range m.categories {
		if search != "" && !containsFold(c.Name, search) {
			continue
		}
		res = append(res, c)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}

func (m *MemoryStore) DeleteCategory(slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cat, ok := m.categories[slug]
	if ok {
		for id, t := range m.titles {
			if t.Category != nil && t.Category.ID == cat.ID {
				t.Category = nil
				m.titles[id] = t
			}
		}
	}
	delete(m.categories, slug)
	return nil
}

func (m *MemoryStore) SaveGenre(g domain.Genre) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.genres[g.Slug] = g
	return nil
}

func (m *MemoryStore) GetGenreBySlug(slug string) (domain.Genre, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.genres[slug]
	return g, ok, nil
}

func (m *MemoryStore) ListGenres(search string) ([]domain.Genre, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Genre, 0, len(m.genres))
	for _, g := range m.genres {
		if search != "" && !containsFold(g.Name, search) {
			continue
		}
		res = append(res, g)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}

func (m *MemoryStore) DeleteGenre(slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	genre, ok := m.genres[slug]
	if ok {
		for id, t := range m.titles {
			kept := t.Genres[:0]
			for _, g := range t.Genres {
				if g.ID != genre.ID {
					kept = append(kept, g)
				}
			}
			t.Genres = kept
			m.titles[id] = t
		}
	}
	delete(m.genres, slug)
	return nil
}

// titles

func (m *MemoryStore) SaveTitle(t domain.Title) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.Rating = nil
	m.titles[t.ID] = t
	return nil
}

func (m *MemoryStore) GetTitle(id string) (domain.Title, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.titles[id]
	if !ok {
		return domain.Title{}, false, nil
	}
	return m.hydrateTitleLocked(t), true, nil
}

func (m *MemoryStore) ListTitles(filter TitleFilter) ([]domain.Title, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Title, 0, len(m.titles))
	for _, t := range m.titles {
		if filter.Name != "" && !containsFold(t.Name, filter.Name) {
			continue
		}
		if filter.Year != 0 && t.Year != filter.Year {
			continue
		}
		if filter.CategorySlug != "" && (t.Category == nil || t.Category.Slug != filter.CategorySlug) {
			continue
		}
		if filter.GenreSlug != "" && !hasGenreSlug(t.Genres, filter.GenreSlug) {
			continue
		}
		res = append(res, m.hydrateTitleLocked(t))
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}

func (m *MemoryStore) DeleteTitle(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.titles, id)
	for rid, r := range m.reviews {
		if r.TitleID == id {
			for cid, c := range m.comments {
				if c.ReviewID == rid {
					delete(m.comments, cid)
				}
			}
			delete(m.reviews, rid)
		}
	}
	return nil
}

func (m *MemoryStore) TitleRating(titleID string) (int, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.titleRatingLocked(titleID)
}

func (m *MemoryStore) titleRatingLocked(titleID string) (int, bool, error) {
	sum, count := 0, 0
	for _, r := range m.reviews {
		if r.TitleID == titleID {
			sum += r.Score
			count++
		}
	}
	if count == 0 {
		return 0, false, nil
	}
	return int(math.Round(float64(sum) / float64(count))), true, nil
}

func (m *MemoryStore) hydrateTitleLocked(t domain.Title) domain.Title {
	if t.Genres == nil {
		t.Genres = []domain.Genre{}
	}
	if rating, ok, _ := m.titleRatingLocked(t.ID); ok {
		t.Rating = &rating
	} else {
		t.Rating = nil
	}
	return t
}

// reviews

func (m *MemoryStore) SaveReview(r domain.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviews[r.ID] = r
	return nil
}

func (m *MemoryStore) GetReview(titleID, reviewID string) (domain.Review, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reviews[reviewID]
	if !ok || r.TitleID != titleID {
		return domain.Review{}, false, nil
	}
	return m.withAuthorLocked(r), true, nil
}

func (m *MemoryStore) ListReviews(titleID string) ([]domain.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Review, 0)
	for _, r := range m.reviews {
		if r.TitleID == titleID {
			res = append(res, m.withAuthorLocked(r))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].PubDate.Before(res[j].PubDate) })
	return res, nil
}

func (m *MemoryStore) DeleteReview(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reviews, id)
	for cid, c := range m.comments {
		if c.ReviewID == id {
			delete(m.comments, cid)
		}
	}
	return nil
}

func (m *MemoryStore) HasReviewByAuthor(titleID, authorID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.reviews {
		if r.TitleID == titleID && r.AuthorID == authorID {
			return true, nil
		}
	}
	return false, nil
}

// comments

func (m *MemoryStore) SaveComment(c domain.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments[c.ID] = c
	return nil
}

func (m *MemoryStore) GetComment(reviewID, commentID string) (domain.Comment, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.comments[commentID]
	if !ok || c.ReviewID != reviewID {
		return domain.Comment{}, false, nil
	}
	return m.commentWithAuthorLocked(c), true, nil
}

func (m *MemoryStore) ListComments(reviewID string) ([]domain.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Comment, 0)
	for _, c := range m.comments {
		if c.ReviewID == reviewID {
			res = append(res, m.commentWithAuthorLocked(c))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].PubDate.Before(res[j].PubDate) })
	return res, nil
}

func (m *MemoryStore) DeleteComment(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.comments, id)
	return nil
}

func (m *MemoryStore) withAuthorLocked(r domain.Review) domain.Review {
	if u, ok := m.users[r.AuthorID]; ok {
		r.Author = u.Username
	}
	return r
}

func (m *MemoryStore) commentWithAuthorLocked(c domain.Comment) domain.Comment {
	if u, ok := m.users[c.AuthorID]; ok {
		c.Author = u.Username
	}
	return c
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func hasGenreSlug(genres []domain.Genre, slug string) bool {
	for _, g := range genres {
		if g.Slug == slug {
			return true
		}
	}
	return false
}
