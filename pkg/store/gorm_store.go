package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"reviewbase/pkg/domain"
)

const migrateLockID int64 = 52145214

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations under an advisory lock
// so concurrent instances do not race on schema changes.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&UserModel{},
			&CategoryModel{},
			&GenreModel{},
			&TitleModel{},
			&TitleGenreModel{},
			&ReviewModel{},
			&CommentModel{},
		); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		if err := tx.Exec(`
			DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'review_models'
					AND constraint_name = 'review_models_title_id_fkey'
				) THEN
					ALTER TABLE review_models
					ADD CONSTRAINT review_models_title_id_fkey
					FOREIGN KEY (title_id) REFERENCES title_models(id) ON DELETE CASCADE;
				END IF;
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'comment_models'
					AND constraint_name = 'comment_models_review_id_fkey'
				) THEN
					ALTER TABLE comment_models
					ADD CONSTRAINT comment_models_review_id_fkey
					FOREIGN KEY (review_id) REFERENCES review_models(id) ON DELETE CASCADE;
				END IF;
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'title_genre_models'
					AND constraint_name = 'title_genre_models_title_id_fkey'
				) THEN
					ALTER TABLE title_genre_models
					ADD CONSTRAINT title_genre_models_title_id_fkey
					FOREIGN KEY (title_id) REFERENCES title_models(id) ON DELETE CASCADE;
				END IF;
			END $$;
		`).Error; err != nil {
			return fmt.Errorf("ensure foreign keys: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// users

// SaveUser registers or updates a user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "email", "role", "status", "first_name", "last_name", "bio", "updated_at"}),
	}).Create(&model).Error
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByUsername looks up a user by username.
func (s *GormStore) GetUserByUsername(username string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("username = ?", username).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// HasUserUsername checks if a username exists.
func (s *GormStore) HasUserUsername(username string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// HasUserEmail checks if an email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListUsers returns users ordered by username, optionally filtered by a
// username substring.
func (s *GormStore) ListUsers(search string) ([]domain.User, error) {
	var models []UserModel
	tx := s.db.Order("username ASC")
	if search != "" {
		tx = tx.Where("username ILIKE ?", "%"+search+"%")
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.User, 0, len(models))
	for _, m := range models {
		res = append(res, userFromModel(m))
	}
	return res, nil
}

// DeleteUser removes a user by ID.
func (s *GormStore) DeleteUser(id string) error {
	return s.db.Delete(&UserModel{}, "id = ?", id).Error
}

// categories & genres

// SaveCategory stores a category.
func (s *GormStore) SaveCategory(c domain.Category) error {
	model := CategoryModel{ID: c.ID, Name: c.Name, Slug: c.Slug}
	return s.db.Create(&model).Error
}

// GetCategoryBySlug looks up a category by its slug.
func (s *GormStore) GetCategoryBySlug(slug string) (domain.Category, bool, error) {
	var model CategoryModel
	if err := s.db.Where("slug = ?", slug).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Category{}, false, nil
		}
		return domain.Category{}, false, err
	}
	return domain.Category{ID: model.ID, Name: model.Name, Slug: model.Slug}, true, nil
}

// ListCategories returns categories ordered by name, optionally filtered by
// a name substring.
func (s *GormStore) ListCategories(search string) ([]domain.Category, error) {
	var models []CategoryModel
	tx := s.db.Order("name ASC")
	if search != "" {
		tx = tx.Where("name ILIKE ?", "%"+search+"%")
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Category, 0, len(models))
	for _, m := range models {
		res = append(res, domain.Category{ID: m.ID, Name: m.Name, Slug: m.Slug})
	}
	return res, nil
}

// DeleteCategory removes a category; titles keep running with a null
// category, matching SET NULL semantics.
func (s *GormStore) DeleteCategory(slug string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var model CategoryModel
		if err := tx.Where("slug = ?", slug).First(&model).Error; err != nil {
			return err
		}
		if err := tx.Model(&TitleModel{}).Where("category_id = ?", model.ID).
			Update("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&CategoryModel{}, "id = ?", model.ID).Error
	})
}

// SaveGenre stores a genre.
func (s *GormStore) SaveGenre(g domain.Genre) error {
	model := GenreModel{ID: g.ID, Name: g.Name, Slug: g.Slug}
	return s.db.Create(&model).Error
}

// GetGenreBySlug looks up a genre by its slug.
func (s *GormStore) GetGenreBySlug(slug string) (domain.Genre, bool, error) {
	var model GenreModel
	if err := s.db.Where("slug = ?", slug).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Genre{}, false, nil
		}
		return domain.Genre{}, false, err
	}
	return domain.Genre{ID: model.ID, Name: model.Name, Slug: model.Slug}, true, nil
}

// ListGenres returns genres ordered by name, optionally filtered by a name
// substring.
func (s *GormStore) ListGenres(search string) ([]domain.Genre, error) {
	var models []GenreModel
	tx := s.db.Order("name ASC")
	if search != "" {
		tx = tx.Where("name ILIKE ?", "%"+search+"%")
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Genre, 0, len(models))
	for _, m := range models {
		res = append(res, domain.Genre{ID: m.ID, Name: m.Name, Slug: m.Slug})
	}
	return res, nil
}

// DeleteGenre removes a genre and its title links.
func (s *GormStore) DeleteGenre(slug string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var model GenreModel
		if err := tx.Where("slug = ?", slug).First(&model).Error; err != nil {
			return err
		}
		if err := tx.Delete(&TitleGenreModel{}, "genre_id = ?", model.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&GenreModel{}, "id = ?", model.ID).Error
	})
}

// titles

// SaveTitle stores or updates a title and replaces its genre links.
func (s *GormStore) SaveTitle(t domain.Title) error {
	model := TitleModel{
		ID:          t.ID,
		Name:        t.Name,
		Year:        t.Year,
		Description: t.Description,
	}
	if t.Category != nil {
		model.CategoryID = &t.Category.ID
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "year", "description", "category_id"}),
		}).Create(&model).Error; err != nil {
			return err
		}
		if err := tx.Delete(&TitleGenreModel{}, "title_id = ?", t.ID).Error; err != nil {
			return err
		}
		for _, genre := range t.Genres {
			link := TitleGenreModel{TitleID: t.ID, GenreID: genre.ID}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetTitle retrieves a title with its category, genres and rating.
func (s *GormStore) GetTitle(id string) (domain.Title, bool, error) {
	var model TitleModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Title{}, false, nil
		}
		return domain.Title{}, false, err
	}
	title, err := s.hydrateTitle(model)
	if err != nil {
		return domain.Title{}, false, err
	}
	return title, true, nil
}

// ListTitles returns titles matching the filter, ordered by name.
func (s *GormStore) ListTitles(filter TitleFilter) ([]domain.Title, error) {
	tx := s.db.Model(&TitleModel{}).Order("title_models.name ASC")
	if filter.Name != "" {
		tx = tx.Where("title_models.name ILIKE ?", "%"+filter.Name+"%")
	}
	if filter.Year != 0 {
		tx = tx.Where("title_models.year = ?", filter.Year)
	}
	if filter.CategorySlug != "" {
		tx = tx.Joins("JOIN category_models ON category_models.id = title_models.category_id").
			Where("category_models.slug = ?", filter.CategorySlug)
	}
	if filter.GenreSlug != "" {
		tx = tx.Joins("JOIN title_genre_models ON title_genre_models.title_id = title_models.id").
			Joins("JOIN genre_models ON genre_models.id = title_genre_models.genre_id").
			Where("genre_models.slug = ?", filter.GenreSlug)
	}
	var models []TitleModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Title, 0, len(models))
	for _, m := range models {
		title, err := s.hydrateTitle(m)
		if err != nil {
			return nil, err
		}
		res = append(res, title)
	}
	return res, nil
}

// DeleteTitle removes a title; reviews, comments and genre links go with it
// via the FK cascades.
func (s *GormStore) DeleteTitle(id string) error {
	return s.db.Delete(&TitleModel{}, "id = ?", id).Error
}

// TitleRating computes the rounded average review score for a title.
func (s *GormStore) TitleRating(titleID string) (int, bool, error) {
	var avg sql.NullFloat64
	if err := s.db.Model(&ReviewModel{}).
		Where("title_id = ?", titleID).
		Select("AVG(score)").
		Scan(&avg).Error; err != nil {
		return 0, false, err
	}
	if !avg.Valid {
		return 0, false, nil
	}
	return int(math.Round(avg.Float64)), true, nil
}

func (s *GormStore) hydrateTitle(model TitleModel) (domain.Title, error) {
	title := domain.Title{
		ID:          model.ID,
		Name:        model.Name,
		Year:        model.Year,
		Description: model.Description,
		Genres:      []domain.Genre{},
	}
	if model.CategoryID != nil {
		var cat CategoryModel
		if err := s.db.First(&cat, "id = ?", *model.CategoryID).Error; err != nil {
			if err != gorm.ErrRecordNotFound {
				return domain.Title{}, err
			}
		} else {
			title.Category = &domain.Category{ID: cat.ID, Name: cat.Name, Slug: cat.Slug}
		}
	}
	var genres []GenreModel
	if err := s.db.
		Joins("JOIN title_genre_models ON title_genre_models.genre_id = genre_models.id").
		Where("title_genre_models.title_id = ?", model.ID).
		Order("genre_models.name ASC").
		Find(&genres).Error; err != nil {
		return domain.Title{}, err
	}
	for _, g := range genres {
		title.Genres = append(title.Genres, domain.Genre{ID: g.ID, Name: g.Name, Slug: g.Slug})
	}
	rating, ok, err := s.TitleRating(model.ID)
	if err != nil {
		return domain.Title{}, err
	}
	if ok {
		title.Rating = &rating
	}
	return title, nil
}

// reviews

type reviewRow struct {
	ReviewModel
	AuthorUsername string
}

// SaveReview stores or updates a review. The composite unique index on
// (title_id, author_id) rejects concurrent duplicate submissions.
func (s *GormStore) SaveReview(r domain.Review) error {
	model := ReviewModel{
		ID:       r.ID,
		TitleID:  r.TitleID,
		AuthorID: r.AuthorID,
		Text:     r.Text,
		Score:    r.Score,
		PubDate:  r.PubDate,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"text", "score"}),
	}).Create(&model).Error
}

// GetReview retrieves a review scoped to its title.
func (s *GormStore) GetReview(titleID, reviewID string) (domain.Review, bool, error) {
	var row reviewRow
	err := s.db.Model(&ReviewModel{}).
		Select("review_models.*, user_models.username AS author_username").
		Joins("JOIN user_models ON user_models.id = review_models.author_id").
		Where("review_models.id = ? AND review_models.title_id = ?", reviewID, titleID).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Review{}, false, nil
		}
		return domain.Review{}, false, err
	}
	return reviewFromRow(row), true, nil
}

// ListReviews returns a title's reviews in publication order.
func (s *GormStore) ListReviews(titleID string) ([]domain.Review, error) {
	var rows []reviewRow
	err := s.db.Model(&ReviewModel{}).
		Select("review_models.*, user_models.username AS author_username").
		Joins("JOIN user_models ON user_models.id = review_models.author_id").
		Where("review_models.title_id = ?", titleID).
		Order("review_models.pub_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	res := make([]domain.Review, 0, len(rows))
	for _, row := range rows {
		res = append(res, reviewFromRow(row))
	}
	return res, nil
}

// DeleteReview removes a review; its comments go via the FK cascade.
func (s *GormStore) DeleteReview(id string) error {
	return s.db.Delete(&ReviewModel{}, "id = ?", id).Error
}

// HasReviewByAuthor checks for an existing review by the author on a title.
func (s *GormStore) HasReviewByAuthor(titleID, authorID string) (bool, error) {
	var count int64
	if err := s.db.Model(&ReviewModel{}).
		Where("title_id = ? AND author_id = ?", titleID, authorID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// comments

type commentRow struct {
	CommentModel
	AuthorUsername string
}

// SaveComment stores or updates a comment.
func (s *GormStore) SaveComment(c domain.Comment) error {
	model := CommentModel{
		ID:       c.ID,
		ReviewID: c.ReviewID,
		AuthorID: c.AuthorID,
		Text:     c.Text,
		PubDate:  c.PubDate,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"text"}),
	}).Create(&model).Error
}

// GetComment retrieves a comment scoped to its review.
func (s *GormStore) GetComment(reviewID, commentID string) (domain.Comment, bool, error) {
	var row commentRow
	err := s.db.Model(&CommentModel{}).
		Select("comment_models.*, user_models.username AS author_username").
		Joins("JOIN user_models ON user_models.id = comment_models.author_id").
		Where("comment_models.id = ? AND comment_models.review_id = ?", commentID, reviewID).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Comment{}, false, nil
		}
		return domain.Comment{}, false, err
	}
	return commentFromRow(row), true, nil
}

// ListComments returns a review's comments in publication order.
func (s *GormStore) ListComments(reviewID string) ([]domain.Comment, error) {
	var rows []commentRow
	err := s.db.Model(&CommentModel{}).
		Select("comment_models.*, user_models.username AS author_username").
		Joins("JOIN user_models ON user_models.id = comment_models.author_id").
		Where("comment_models.review_id = ?", reviewID).
		Order("comment_models.pub_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	res := make([]domain.Comment, 0, len(rows))
	for _, row := range rows {
		res = append(res, commentFromRow(row))
	}
	return res, nil
}

// DeleteComment removes a comment by ID.
func (s *GormStore) DeleteComment(id string) error {
	return s.db.Delete(&CommentModel{}, "id = ?", id).Error
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      string(u.Role),
		Status:    string(u.Status),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Bio:       u.Bio,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	role := domain.UserRole(m.Role)
	if role == "" {
		role = domain.RoleUser
	}
	return domain.User{
		ID:        m.ID,
		Username:  m.Username,
		Email:     m.Email,
		Role:      role,
		Status:    domain.UserStatus(m.Status),
		FirstName: m.FirstName,
		LastName:  m.LastName,
		Bio:       m.Bio,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func reviewFromRow(row reviewRow) domain.Review {
	return domain.Review{
		ID:       row.ID,
		TitleID:  row.TitleID,
		Author:   row.AuthorUsername,
		AuthorID: row.AuthorID,
		Text:     row.Text,
		Score:    row.Score,
		PubDate:  row.PubDate,
	}
}

func commentFromRow(row commentRow) domain.Comment {
	return domain.Comment{
		ID:       row.ID,
		ReviewID: row.ReviewID,
		Author:   row.AuthorUsername,
		AuthorID: row.AuthorID,
		Text:     row.Text,
		PubDate:  row.PubDate,
	}
}
