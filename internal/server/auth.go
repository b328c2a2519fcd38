package server

import (
	"errors"
	"net/http"

	"reviewbase/internal/app"
)

type signUpRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	if s.signupLimiter != nil && !s.signupLimiter.Allow("signup:"+clientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "too many signup attempts, try again later")
		return
	}
	var req signUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := s.app.SignUp(r.Context(), req.Username, req.Email)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"username": user.Username,
		"email":    user.Email,
	})
}

type tokenRequest struct {
	Username         string `json:"username"`
	ConfirmationCode string `json:"confirmationCode"`
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if s.tokenLimiter != nil && !s.tokenLimiter.Allow("token:"+clientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "too many token attempts, try again later")
		return
	}
	var req tokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	token, err := s.app.SignIn(req.Username, req.ConfirmationCode)
	if err != nil {
		// A bad code is answered in plain text, not the JSON envelope.
		if errors.Is(err, app.ErrInvalidConfirmationCode) {
			http.Error(w, "invalid confirmation code", http.StatusBadRequest)
			return
		}
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}
