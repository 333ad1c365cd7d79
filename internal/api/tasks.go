package api

import (
	"net/http"

	"github.com/tgienger/taskboard/internal/services"
)

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	f, err := taskFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	tasks, err := h.svc.ListTasks(r.Context(), UserFrom(r.Context()), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, "tasks", tasks)
}

func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	var in services.TaskInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.svc.CreateTask(r.Context(), UserFrom(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCreated(w, r, "task created", t)
}

func (h *Handler) getTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.svc.GetTask(r.Context(), UserFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, "task", t)
}

func (h *Handler) updateTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var upd services.TaskUpdate
	if err := decode(r, &upd); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.svc.UpdateTask(r.Context(), UserFrom(r.Context()), id, upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, "task updated", t)
}

func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.DeleteTask(r.Context(), UserFrom(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, "task deleted", nil)
}

func (h *Handler) taskHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := h.svc.TaskHistory(r.Context(), UserFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, "history", entries)
}

type commentRequest struct {
	Content string `json:"content"`
}

func (h *Handler) listComments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	comments, err := h.svc.ListComments(r.Context(), UserFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, "comments", comments)
}

func (h *Handler) addComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req commentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.svc.AddComment(r.Context(), UserFrom(r.Context()), id, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCreated(w, r, "comment added", c)
}
