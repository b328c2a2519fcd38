package server

import (
	"net/http"

	"reviewbase/internal/app"
	"reviewbase/pkg/domain"
)

type reviewRequest struct {
	Text  string `json:"text"`
	Score int    `json:"score"`
}

type reviewPatchRequest struct {
	Text  *string `json:"text"`
	Score *int    `json:"score"`
}

type commentRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := s.app.ListReviews(r.PathValue("titleID"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeList(w, reviews, len(reviews))
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request, caller domain.User) {
	var req reviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	review, err := s.app.CreateReview(caller, r.PathValue("titleID"), req.Text, req.Score)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (s *Server) handleGetReview(w http.ResponseWriter, r *http.Request) {
	review, err := s.app.GetReview(r.PathValue("titleID"), r.PathValue("reviewID"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (s *Server) handleUpdateReview(w http.ResponseWriter, r *http.Request, caller domain.User) {
	var req reviewPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	review, err := s.app.UpdateReview(caller, r.PathValue("titleID"), r.PathValue("reviewID"), app.ReviewPatch{
		Text:  req.Text,
		Score: req.Score,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (s *Server) handleDeleteReview(w http.ResponseWriter, r *http.Request, caller domain.User) {
	if err := s.app.DeleteReview(caller, r.PathValue("titleID"), r.PathValue("reviewID")); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.app.ListComments(r.PathValue("titleID"), r.PathValue("reviewID"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeList(w, comments, len(comments))
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request, caller domain.User) {
	var req commentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	comment, err := s.app.CreateComment(caller, r.PathValue("titleID"), r.PathValue("reviewID"), req.Text)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (s *Server) handleGetComment(w http.ResponseWriter, r *http.Request) {
	comment, err := s.app.GetComment(r.PathValue("titleID"), r.PathValue("reviewID"), r.PathValue("commentID"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (s *Server) handleUpdateComment(w http.ResponseWriter, r *http.Request, caller domain.User) {
	var req commentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	comment, err := s.app.UpdateComment(caller, r.PathValue("titleID"), r.PathValue("reviewID"), r.PathValue("commentID"), req.Text)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request, caller domain.User) {
	if err := s.app.DeleteComment(caller, r.PathValue("titleID"), r.PathValue("reviewID"), r.PathValue("commentID")); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
