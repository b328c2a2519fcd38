package server

import (
	"net/http"

	"reviewbase/internal/app"
	"reviewbase/pkg/domain"
)

type userRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Bio       string `json:"bio"`
}

type userPatchRequest struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	Role      *string `json:"role"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Bio       *string `json:"bio"`
}

func (r userPatchRequest) patch() app.UserPatch {
	p := app.UserPatch{
		Username:  r.Username,
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Bio:       r.Bio,
	}
	if r.Role != nil {
		role := domain.UserRole(*r.Role)
		p.Role = &role
	}
	return p
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request, caller domain.User) {
	users, err := s.app.ListUsers(caller, r.URL.Query().Get("search"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeList(w, users, len(users))
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request, caller domain.User) {
	var req userRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := s.app.CreateUser(caller, app.UserInput{
		Username:  req.Username,
		Email:     req.Email,
		Role:      domain.UserRole(req.Role),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request, caller domain.User) {
	user, err := s.app.GetUser(caller, r.PathValue("username"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request, caller domain.User) {
	var req userPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := s.app.UpdateUser(caller, r.PathValue("username"), req.patch())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request, caller domain.User) {
	if err := s.app.DeleteUser(caller, r.PathValue("username")); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, _ *http.Request, caller domain.User) {
	writeJSON(w, http.StatusOK, caller)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request, caller domain.User) {
	var req userPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := s.app.UpdateProfile(caller, req.patch())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
