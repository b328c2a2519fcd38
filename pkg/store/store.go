package store

import (
	"time"

	"reviewbase/pkg/domain"
)

// TitleFilter narrows title listings. Zero values mean "no filter".
type TitleFilter struct {
	Name         string // substring match on title name
	Year         int    // exact match, 0 disables
	CategorySlug string
	GenreSlug    string
}

// Store defines persistence operations for the catalog, reviews and users.
type Store interface {
	// users
	SaveUser(domain.User) error
	GetUserByID(id string) (domain.User, bool, error)
	GetUserByUsername(username string) (domain.User, bool, error)
	HasUserUsername(username string) (bool, error)
	HasUserEmail(email string) (bool, error)
	ListUsers(search string) ([]domain.User, error)
	DeleteUser(id string) error

	// categories & genres
	SaveCategory(domain.Category) error
	GetCategoryBySlug(slug string) (domain.Category, bool, error)
	ListCategories(search string) ([]domain.Category, error)
	DeleteCategory(slug string) error

	SaveGenre(domain.Genre) error
	GetGenreBySlug(slug string) (domain.Genre, bool, error)
	ListGenres(search string) ([]domain.Genre, error)
	DeleteGenre(slug string) error

	// titles
	SaveTitle(domain.Title) error
	GetTitle(id string) (domain.Title, bool, error)
	ListTitles(filter TitleFilter) ([]domain.Title, error)
	DeleteTitle(id string) error
	// TitleRating returns the average review score for a title, rounded to
	// the nearest integer, and false when the title has no reviews.
	TitleRating(titleID string) (int, bool, error)

	// reviews
	SaveReview(domain.Review) error
	GetReview(titleID, reviewID string) (domain.Review, bool, error)
	ListReviews(titleID string) ([]domain.Review, error)
	DeleteReview(id string) error
	HasReviewByAuthor(titleID, authorID string) (bool, error)

	// comments
	SaveComment(domain.Comment) error
	GetComment(reviewID, commentID string) (domain.Comment, bool, error)
	ListComments(reviewID string) ([]domain.Comment, error)
	DeleteComment(id string) error
}

// ConfirmationStore issues and validates time-limited confirmation codes.
// Verification must not consume a valid code: sign-in with a still-valid
// code is idempotent and codes retire by TTL.
type ConfirmationStore interface {
	Issue(userID string) (string, error)
	Verify(userID, code string) error
}

// SessionStore issues and validates access tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
}

// Clock abstracts time for tests.
type Clock func() time.Time
