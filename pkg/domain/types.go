package domain

import "time"

type UserRole string

const (
	RoleUser      UserRole = "user"
	RoleModerator UserRole = "moderator"
	RoleAdmin     UserRole = "admin"
)

type UserStatus string

const (
	// StatusPending marks an account created at signup that has not yet
	// presented a valid confirmation code.
	StatusPending UserStatus = "pending"
	StatusActive  UserStatus = "active"
)

type User struct {
	ID        string     `json:"-"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      UserRole   `json:"role"`
	Status    UserStatus `json:"-"`
	FirstName string     `json:"firstName,omitempty"`
	LastName  string     `json:"lastName,omitempty"`
	Bio       string     `json:"bio,omitempty"`
	CreatedAt time.Time  `json:"-"`
	UpdatedAt time.Time  `json:"-"`
}

type Category struct {
	ID   string `json:"-"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Genre struct {
	ID   string `json:"-"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Title is a cataloged work. Rating is the rounded average of its review
// scores and stays nil while the title has no reviews.
type Title struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Year        int       `json:"year"`
	Description string    `json:"description,omitempty"`
	Category    *Category `json:"category"`
	Genres      []Genre   `json:"genre"`
	Rating      *int      `json:"rating"`
}

type Review struct {
	ID       string    `json:"id"`
	TitleID  string    `json:"-"`
	Author   string    `json:"author"`
	AuthorID string    `json:"-"`
	Text     string    `json:"text"`
	Score    int       `json:"score"`
	PubDate  time.Time `json:"pubDate"`
}

type Comment struct {
	ID       string    `json:"id"`
	ReviewID string    `json:"-"`
	Author   string    `json:"author"`
	AuthorID string    `json:"-"`
	Text     string    `json:"text"`
	PubDate  time.Time `json:"pubDate"`
}

const (
	ScoreMin = 1
	ScoreMax = 10
)

// ValidScore reports whether a review score is inside the allowed range.
func ValidScore(score int) bool {
	return score >= ScoreMin && score <= ScoreMax
}
