package api

import (
	"context"
	"net/http"

	"github.com/tgienger/taskboard/internal/models"
	"github.com/tgienger/taskboard/internal/services"
)

type memberOp func(ctx context.Context, actor *models.User, projectID, userID int64) error

func (h *Handler) listProjects(w http.ResponseWriter, r *http.Request) {
	f, err := projectFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	projects, err := h.svc.ListProjects(r.Context(), UserFrom(r.Context()), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, "projects", projects)
}

func (h *Handler) createProject(w http.ResponseWriter, r *http.Request) {
	var in services.ProjectInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.svc.CreateProject(r.Context(), UserFrom(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCreated(w, r, "project created", p)
}

func (h *Handler) getProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.svc.GetProject(r.Context(), UserFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, "project", p)
}

func (h *Handler) updateProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var upd services.ProjectUpdate
	if err := decode(r, &upd); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.svc.UpdateProject(r.Context(), UserFrom(r.Context()), id, upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, "project updated", p)
}

func (h *Handler) deleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.DeleteProject(r.Context(), UserFrom(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, "project deleted", nil)
}

func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	members, err := h.svc.ListMembers(r.Context(), UserFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, "members", members)
}

func (h *Handler) addMember(w http.ResponseWriter, r *http.Request) {
	h.changeMember(w, r, h.svc.AddMember, "member added")
}

func (h *Handler) removeMember(w http.ResponseWriter, r *http.Request) {
	h.changeMember(w, r, h.svc.RemoveMember, "member removed")
}

func (h *Handler) changeMember(w http.ResponseWriter, r *http.Request, op memberOp, message string) {
	projectID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	userID, err := pathID(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := op(r.Context(), UserFrom(r.Context()), projectID, userID); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, message, nil)
}
