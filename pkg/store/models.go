package store

import "time"

// GORM models used for persistence.
type UserModel struct {
	ID        string `gorm:"primaryKey"`
	Username  string `gorm:"uniqueIndex;not null"`
	Email     string `gorm:"uniqueIndex;not null"`
	Role      string `gorm:"not null"`
	Status    string `gorm:"not null"`
	FirstName string
	LastName  string
	Bio       string
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time
}

type CategoryModel struct {
	ID   string `gorm:"primaryKey"`
	Name string `gorm:"not null"`
	Slug string `gorm:"uniqueIndex;not null"`
}

type GenreModel struct {
	ID   string `gorm:"primaryKey"`
	Name string `gorm:"not null"`
	Slug string `gorm:"uniqueIndex;not null"`
}

type TitleModel struct {
	ID          string `gorm:"primaryKey"`
	Name        string `gorm:"not null;index"`
	Year        int    `gorm:"index"`
	Description string
	CategoryID  *string `gorm:"index"`
}

// TitleGenreModel is the explicit join table for the title<->genre
// many-to-many.
type TitleGenreModel struct {
	TitleID string `gorm:"primaryKey;index"`
	GenreID string `gorm:"primaryKey;index"`
}

type ReviewModel struct {
	ID       string    `gorm:"primaryKey"`
	TitleID  string    `gorm:"not null;index;uniqueIndex:idx_reviews_title_author"`
	AuthorID string    `gorm:"not null;uniqueIndex:idx_reviews_title_author"`
	Text     string    `gorm:"type:text;not null"`
	Score    int       `gorm:"not null"`
	PubDate  time.Time `gorm:"not null;index"`
}

type CommentModel struct {
	ID       string    `gorm:"primaryKey"`
	ReviewID string    `gorm:"not null;index"`
	AuthorID string    `gorm:"not null"`
	Text     string    `gorm:"type:text;not null"`
	PubDate  time.Time `gorm:"not null;index"`
}
