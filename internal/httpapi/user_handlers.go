package httpapi

import (
	"net/http"

	"greektutor/internal/apierr"
)

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var payload createUserRequest
	if err := decodeJSON(r, &payload); err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	if payload.Username == "" || payload.Password == "" {
		apierr.WriteJSON(w, apierr.Validation("username and password are required"))
		return
	}

	user, err := s.users.Create(payload.Username, payload.Password, payload.Email)
	if err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type setLevelRequest struct {
	Level string `json:"level"`
}

func (s *Server) handleSetLevel(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")

	var payload setLevelRequest
	if err := decodeJSON(r, &payload); err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	if payload.Level == "" {
		apierr.WriteJSON(w, apierr.Validation("level is required"))
		return
	}

	if err := s.users.SetLevel(userID, payload.Level); err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "level": payload.Level})
}
