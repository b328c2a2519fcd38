package app

import (
	"fmt"
	"regexp"

	"reviewbase/internal/util"
	"reviewbase/pkg/domain"
	"reviewbase/pkg/store"
)

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

func validateSlug(slug string) error {
	if slug == "" {
		return invalidField("slug", "slug is required")
	}
	if !slugPattern.MatchString(slug) {
		return invalidField("slug", "slug contains forbidden characters")
	}
	return nil
}

// SlugInput is the payload for categories and genres.
type SlugInput struct {
	Name string
	Slug string
}

// TitleInput is the payload for creating a title. Category is required;
// genre slugs may be empty.
type TitleInput struct {
	Name         string
	Year         int
	Description  string
	CategorySlug string
	GenreSlugs   []string
}

// TitlePatch carries partial title updates; nil fields are left untouched.
type TitlePatch struct {
	Name         *string
	Year         *int
	Description  *string
	CategorySlug *string
	GenreSlugs   *[]string
}

// --- categories ---

func (a *App) CreateCategory(caller domain.User, in SlugInput) (domain.Category, error) {
	if !Allowed(KindCatalog, OpCreate, caller.Role, false) {
		return domain.Category{}, ErrForbidden
	}
	if in.Name == "" {
		return domain.Category{}, invalidField("name", "name is required")
	}
	if err := validateSlug(in.Slug); err != nil {
		return domain.Category{}, err
	}
	if _, found, err := a.store.GetCategoryBySlug(in.Slug); err != nil {
		return domain.Category{}, fmt.Errorf("look up category: %w", err)
	} else if found {
		return domain.Category{}, invalidField("slug", "slug is already in use")
	}
	category := domain.Category{ID: util.NewID(), Name: in.Name, Slug: in.Slug}
	if err := a.store.SaveCategory(category); err != nil {
		return domain.Category{}, fmt.Errorf("save category: %w", err)
	}
	return category, nil
}

func (a *App) ListCategories(search string) ([]domain.Category, error) {
	return a.store.ListCategories(search)
}

// DeleteCategory removes a category. Titles keep existing with their
// category cleared.
func (a *App) DeleteCategory(caller domain.User, slug string) error {
	if !Allowed(KindCatalog, OpDelete, caller.Role, false) {
		return ErrForbidden
	}
	if _, found, err := a.store.GetCategoryBySlug(slug); err != nil {
		return fmt.Errorf("look up category: %w", err)
	} else if !found {
		return ErrNotFound
	}
	if err := a.store.DeleteCategory(slug); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

// --- genres ---

func (a *App) CreateGenre(caller domain.User, in SlugInput) (domain.Genre, error) {
	if !Allowed(KindCatalog, OpCreate, caller.Role, false) {
		return domain.Genre{}, ErrForbidden
	}
	if in.Name == "" {
		return domain.Genre{}, invalidField("name", "name is required")
	}
	if err := validateSlug(in.Slug); err != nil {
		return domain.Genre{}, err
	}
	if _, found, err := a.store.GetGenreBySlug(in.Slug); err != nil {
		return domain.Genre{}, fmt.Errorf("look up genre: %w", err)
	} else if found {
		return domain.Genre{}, invalidField("slug", "slug is already in use")
	}
	genre := domain.Genre{ID: util.NewID(), Name: in.Name, Slug: in.Slug}
	if err := a.store.SaveGenre(genre); err != nil {
		return domain.Genre{}, fmt.Errorf("save genre: %w", err)
	}
	return genre, nil
}

func (a *App) ListGenres(search string) ([]domain.Genre, error) {
	return a.store.ListGenres(search)
}

func (a *App) DeleteGenre(caller domain.User, slug string) error {
	if !Allowed(KindCatalog, OpDelete, caller.Role, false) {
		return ErrForbidden
	}
	if _, found, err := a.store.GetGenreBySlug(slug); err != nil {
		return fmt.Errorf("look up genre: %w", err)
	} else if !found {
		return ErrNotFound
	}
	if err := a.store.DeleteGenre(slug); err != nil {
		return fmt.Errorf("delete genre: %w", err)
	}
	return nil
}

// --- titles ---

func (a *App) CreateTitle(caller domain.User, in TitleInput) (domain.Title, error) {
	if !Allowed(KindCatalog, OpCreate, caller.Role, false) {
		return domain.Title{}, ErrForbidden
	}
	if in.Name == "" {
		return domain.Title{}, invalidField("name", "name is required")
	}
	if err := a.validateYear(in.Year); err != nil {
		return domain.Title{}, err
	}
	category, err := a.resolveCategory(in.CategorySlug)
	if err != nil {
		return domain.Title{}, err
	}
	genres, err := a.resolveGenres(in.GenreSlugs)
	if err != nil {
		return domain.Title{}, err
	}
	title := domain.Title{
		ID:          util.NewID(),
		Name:        in.Name,
		Year:        in.Year,
		Description: in.Description,
		Category:    category,
		Genres:      genres,
	}
	if err := a.store.SaveTitle(title); err != nil {
		return domain.Title{}, fmt.Errorf("save title: %w", err)
	}
	return title, nil
}

func (a *App) GetTitle(id string) (domain.Title, error) {
	title, found, err := a.store.GetTitle(id)
	if err != nil {
		return domain.Title{}, fmt.Errorf("look up title: %w", err)
	}
	if !found {
		return domain.Title{}, ErrNotFound
	}
	return title, nil
}

func (a *App) ListTitles(filter store.TitleFilter) ([]domain.Title, error) {
	return a.store.ListTitles(filter)
}

func (a *App) UpdateTitle(caller domain.User, id string, patch TitlePatch) (domain.Title, error) {
	if !Allowed(KindCatalog, OpUpdate, caller.Role, false) {
		return domain.Title{}, ErrForbidden
	}
	title, found, err := a.store.GetTitle(id)
	if err != nil {
		return domain.Title{}, fmt.Errorf("look up title: %w", err)
	}
	if !found {
		return domain.Title{}, ErrNotFound
	}
	if patch.Name != nil {
		if *patch.Name == "" {
			return domain.Title{}, invalidField("name", "name is required")
		}
		title.Name = *patch.Name
	}
	if patch.Year != nil {
		if err := a.validateYear(*patch.Year); err != nil {
			return domain.Title{}, err
		}
		title.Year = *patch.Year
	}
	if patch.Description != nil {
		title.Description = *patch.Description
	}
	if patch.CategorySlug != nil {
		category, err := a.resolveCategory(*patch.CategorySlug)
		if err != nil {
			return domain.Title{}, err
		}
		title.Category = category
	}
	if patch.GenreSlugs != nil {
		genres, err := a.resolveGenres(*patch.GenreSlugs)
		if err != nil {
			return domain.Title{}, err
		}
		title.Genres = genres
	}
	if err := a.store.SaveTitle(title); err != nil {
		return domain.Title{}, fmt.Errorf("save title: %w", err)
	}
	return a.GetTitle(id)
}

func (a *App) DeleteTitle(caller domain.User, id string) error {
	if !Allowed(KindCatalog, OpDelete, caller.Role, false) {
		return ErrForbidden
	}
	if _, found, err := a.store.GetTitle(id); err != nil {
		return fmt.Errorf("look up title: %w", err)
	} else if !found {
		return ErrNotFound
	}
	if err := a.store.DeleteTitle(id); err != nil {
		return fmt.Errorf("delete title: %w", err)
	}
	return nil
}

func (a *App) validateYear(year int) error {
	if year <= 0 {
		return invalidField("year", "year must be positive")
	}
	if year > a.now().Year() {
		return invalidField("year", "year cannot be in the future")
	}
	return nil
}

func (a *App) resolveCategory(slug string) (*domain.Category, error) {
	if slug == "" {
		return nil, invalidField("category", "category is required")
	}
	category, found, err := a.store.GetCategoryBySlug(slug)
	if err != nil {
		return nil, fmt.Errorf("look up category: %w", err)
	}
	if !found {
		return nil, invalidField("category", "unknown category slug")
	}
	return &category, nil
}

func (a *App) resolveGenres(slugs []string) ([]domain.Genre, error) {
	genres := make([]domain.Genre, 0, len(slugs))
	for _, slug := range slugs {
		genre, found, err := a.store.GetGenreBySlug(slug)
		if err != nil {
			return nil, fmt.Errorf("look up genre: %w", err)
		}
		if !found {
			return nil, invalidField("genre", "unknown genre slug")
		}
		genres = append(genres, genre)
	}
	return genres, nil
}
