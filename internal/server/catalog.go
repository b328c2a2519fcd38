package server

import (
	"net/http"
	"strconv"

	"reviewbase/internal/app"
	"reviewbase/pkg/domain"
	"reviewbase/pkg/store"
)

type slugRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// --- categories ---

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.app.ListCategories(r.URL.Query().Get("search"))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeList(w, categories, len(categories))
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request, caller domain.User) {
	var req slugRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	category, err := s.app.CreateCategory(caller, app.SlugInput{Name: req.Name, Slug: req.Slug})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request, caller domain.User) {
	if err := s.app.DeleteCategory(caller, r.PathValue("slug")); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- genres ---

func (s *Server) handleListGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := s.app.ListGenres(r.URL.Query().Get("search"))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeList(w, genres, len(genres))
}

func (s *Server) handleCreateGenre(w http.ResponseWriter, r *http.Request, caller domain.User) {
	var req slugRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	genre, err := s.app.CreateGenre(caller, app.SlugInput{Name: req.Name, Slug: req.Slug})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, genre)
}

func (s *Server) handleDeleteGenre(w http.ResponseWriter, r *http.Request, caller domain.User) {
	if err := s.app.DeleteGenre(caller, r.PathValue("slug")); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- titles ---

type titleRequest struct {
	Name        string   `json:"name"`
	Year        int      `json:"year"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Genre       []string `json:"genre"`
}

type titlePatchRequest struct {
	Name        *string   `json:"name"`
	Year        *int      `json:"year"`
	Description *string   `json:"description"`
	Category    *string   `json:"category"`
	Genre       *[]string `json:"genre"`
}

func (s *Server) handleListTitles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.TitleFilter{
		Name:         q.Get("name"),
		CategorySlug: q.Get("category"),
		GenreSlug:    q.Get("genre"),
	}
	if yearStr := q.Get("year"); yearStr != "" {
		year, err := strconv.Atoi(yearStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "year must be an integer")
			return
		}
		filter.Year = year
	}
	titles, err := s.app.ListTitles(filter)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeList(w, titles, len(titles))
}

func (s *Server) handleCreateTitle(w http.ResponseWriter, r *http.Request, caller domain.User) {
	var req titleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	title, err := s.app.CreateTitle(caller, app.TitleInput{
		Name:         req.Name,
		Year:         req.Year,
		Description:  req.Description,
		CategorySlug: req.Category,
		GenreSlugs:   req.Genre,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, title)
}

func (s *Server) handleGetTitle(w http.ResponseWriter, r *http.Request) {
	title, err := s.app.GetTitle(r.PathValue("titleID"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, title)
}

func (s *Server) handleUpdateTitle(w http.ResponseWriter, r *http.Request, caller domain.User) {
	var req titlePatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	title, err := s.app.UpdateTitle(caller, r.PathValue("titleID"), app.TitlePatch{
		Name:         req.Name,
		Year:         req.Year,
		Description:  req.Description,
		CategorySlug: req.Category,
		GenreSlugs:   req.Genre,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, title)
}

func (s *Server) handleDeleteTitle(w http.ResponseWriter, r *http.Request, caller domain.User) {
	if err := s.app.DeleteTitle(caller, r.PathValue("titleID")); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
