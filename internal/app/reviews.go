package app

import (
	"fmt"

	"reviewbase/internal/util"
	"reviewbase/pkg/domain"
)

// ReviewPatch carries partial review updates; nil fields are left untouched.
type ReviewPatch struct {
	Text  *string
	Score *int
}

func scoreError() error {
	return invalidField("score", fmt.Sprintf("score must be between %d and %d", domain.ScoreMin, domain.ScoreMax))
}

// CreateReview adds a review to a title. The author and the title are taken
// from the caller and the route, never from the payload, and one author may
// review a title only once.
func (a *App) CreateReview(caller domain.User, titleID, text string, score int) (domain.Review, error) {
	if !Allowed(KindContent, OpCreate, caller.Role, true) {
		return domain.Review{}, ErrForbidden
	}
	if _, found, err := a.store.GetTitle(titleID); err != nil {
		return domain.Review{}, fmt.Errorf("look up title: %w", err)
	} else if !found {
		return domain.Review{}, ErrNotFound
	}
	if text == "" {
		return domain.Review{}, invalidField("text", "text is required")
	}
	if !domain.ValidScore(score) {
		return domain.Review{}, scoreError()
	}
	if dup, err := a.store.HasReviewByAuthor(titleID, caller.ID); err != nil {
		return domain.Review{}, fmt.Errorf("look up review: %w", err)
	} else if dup {
		return domain.Review{}, invalidField("detail", "you have already reviewed this title")
	}
	review := domain.Review{
		ID:       util.NewID(),
		TitleID:  titleID,
		Author:   caller.Username,
		AuthorID: caller.ID,
		Text:     text,
		Score:    score,
		PubDate:  a.now(),
	}
	if err := a.store.SaveReview(review); err != nil {
		return domain.Review{}, fmt.Errorf("save review: %w", err)
	}
	return review, nil
}

func (a *App) GetReview(titleID, reviewID string) (domain.Review, error) {
	review, found, err := a.store.GetReview(titleID, reviewID)
	if err != nil {
		return domain.Review{}, fmt.Errorf("look up review: %w", err)
	}
	if !found {
		return domain.Review{}, ErrNotFound
	}
	return review, nil
}

// ListReviews returns all reviews for a title, newest first.
func (a *App) ListReviews(titleID string) ([]domain.Review, error) {
	if _, found, err := a.store.GetTitle(titleID); err != nil {
		return nil, fmt.Errorf("look up title: %w", err)
	} else if !found {
		return nil, ErrNotFound
	}
	return a.store.ListReviews(titleID)
}

// UpdateReview edits a review. Authors edit their own; moderators and
// admins edit anyone's.
func (a *App) UpdateReview(caller domain.User, titleID, reviewID string, patch ReviewPatch) (domain.Review, error) {
	review, err := a.GetReview(titleID, reviewID)
	if err != nil {
		return domain.Review{}, err
	}
	if !Allowed(KindContent, OpUpdate, caller.Role, review.AuthorID == caller.ID) {
		return domain.Review{}, ErrForbidden
	}
	if patch.Text != nil {
		if *patch.Text == "" {
			return domain.Review{}, invalidField("text", "text is required")
		}
		review.Text = *patch.Text
	}
	if patch.Score != nil {
		if !domain.ValidScore(*patch.Score) {
			return domain.Review{}, scoreError()
		}
		review.Score = *patch.Score
	}
	if err := a.store.SaveReview(review); err != nil {
		return domain.Review{}, fmt.Errorf("save review: %w", err)
	}
	return review, nil
}

func (a *App) DeleteReview(caller domain.User, titleID, reviewID string) error {
	review, err := a.GetReview(titleID, reviewID)
	if err != nil {
		return err
	}
	if !Allowed(KindContent, OpDelete, caller.Role, review.AuthorID == caller.ID) {
		return ErrForbidden
	}
	if err := a.store.DeleteReview(review.ID); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	return nil
}

// --- comments ---

// CreateComment adds a comment under a review. The parent chain from the
// route must exist end to end.
func (a *App) CreateComment(caller domain.User, titleID, reviewID, text string) (domain.Comment, error) {
	if !Allowed(KindContent, OpCreate, caller.Role, true) {
		return domain.Comment{}, ErrForbidden
	}
	review, err := a.GetReview(titleID, reviewID)
	if err != nil {
		return domain.Comment{}, err
	}
	if text == "" {
		return domain.Comment{}, invalidField("text", "text is required")
	}
	comment := domain.Comment{
		ID:       util.NewID(),
		ReviewID: review.ID,
		Author:   caller.Username,
		AuthorID: caller.ID,
		Text:     text,
		PubDate:  a.now(),
	}
	if err := a.store.SaveComment(comment); err != nil {
		return domain.Comment{}, fmt.Errorf("save comment: %w", err)
	}
	return comment, nil
}

func (a *App) GetComment(titleID, reviewID, commentID string) (domain.Comment, error) {
	review, err := a.GetReview(titleID, reviewID)
	if err != nil {
		return domain.Comment{}, err
	}
	comment, found, err := a.store.GetComment(review.ID, commentID)
	if err != nil {
		return domain.Comment{}, fmt.Errorf("look up comment: %w", err)
	}
	if !found {
		return domain.Comment{}, ErrNotFound
	}
	return comment, nil
}

func (a *App) ListComments(titleID, reviewID string) ([]domain.Comment, error) {
	review, err := a.GetReview(titleID, reviewID)
	if err != nil {
		return nil, err
	}
	return a.store.ListComments(review.ID)
}

func (a *App) UpdateComment(caller domain.User, titleID, reviewID, commentID, text string) (domain.Comment, error) {
	comment, err := a.GetComment(titleID, reviewID, commentID)
	if err != nil {
		return domain.Comment{}, err
	}
	if !Allowed(KindContent, OpUpdate, caller.Role, comment.AuthorID == caller.ID) {
		return domain.Comment{}, ErrForbidden
	}
	if text == "" {
		return domain.Comment{}, invalidField("text", "text is required")
	}
	comment.Text = text
	if err := a.store.SaveComment(comment); err != nil {
		return domain.Comment{}, fmt.Errorf("save comment: %w", err)
	}
	return comment, nil
}

func (a *App) DeleteComment(caller domain.User, titleID, reviewID, commentID string) error {
	comment, err := a.GetComment(titleID, reviewID, commentID)
	if err != nil {
		return err
	}
	if !Allowed(KindContent, OpDelete, caller.Role, comment.AuthorID == caller.ID) {
		return ErrForbidden
	}
	if err := a.store.DeleteComment(comment.ID); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}
