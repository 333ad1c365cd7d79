package api

import (
	"net/http"

	"github.com/tgienger/taskboard/internal/models"
	"github.com/tgienger/taskboard/internal/services"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	u, token, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, "logged in", loginResponse{Token: token, User: u})
}

// createUser registers a member for anonymous callers; admins may pick any role
func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var in services.UserInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	var u *models.User
	var err error
	if actor := UserFrom(r.Context()); actor != nil {
		u, err = h.svc.CreateUser(r.Context(), actor, in)
	} else {
		u, err = h.svc.Register(r.Context(), in)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCreated(w, r, "user created", u)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	writeOK(w, r, "current user", UserFrom(r.Context()))
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context(), UserFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, "users", users)
}

type roleRequest struct {
	Role models.Role `json:"role"`
}

func (h *Handler) setRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req roleRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.svc.SetRole(r.Context(), UserFrom(r.Context()), id, req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, "role updated", u)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.DeleteUser(r.Context(), UserFrom(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, "user deleted", nil)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context(), UserFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, "stats", st)
}
