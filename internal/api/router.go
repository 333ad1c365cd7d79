// Package api exposes the services as a JSON HTTP API.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/tgienger/taskboard/internal/perrors"
	"github.com/tgienger/taskboard/internal/services"
)

// Options tune the router
type Options struct {
	// LoginRate is the sustained login attempts per second per client address
	LoginRate float64
	// LoginBurst is how many login attempts may arrive at once
	LoginBurst int
}

// Handler serves every API route
type Handler struct {
	svc *services.Service
}

// NewRouter wires every route onto a mux router
func NewRouter(svc *services.Service, opts Options) *mux.Router {
	if opts.LoginRate <= 0 {
		opts.LoginRate = 1
	}
	if opts.LoginBurst <= 0 {
		opts.LoginBurst = 5
	}

	h := &Handler{svc: svc}
	limiter := newIPLimiter(rate.Limit(opts.LoginRate), opts.LoginBurst)

	r := mux.NewRouter()
	r.Use(requestLogger, recovery)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, perrors.New(perrors.ErrCodeNotFound, "route not found", nil))
	})

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(h.authenticate)

	// anonymous callers may log in and register
	api.Handle("/auth/login", limiter.middleware(http.HandlerFunc(h.login))).Methods(http.MethodPost)
	api.HandleFunc("/users", h.createUser).Methods(http.MethodPost)

	route := func(path string, fn http.HandlerFunc, method string) {
		api.Handle(path, requireUser(fn)).Methods(method)
	}

	route("/me", h.me, http.MethodGet)
	route("/users", h.listUsers, http.MethodGet)
	route("/users/{id:[0-9]+}/role", h.setRole, http.MethodPut)
	route("/users/{id:[0-9]+}", h.deleteUser, http.MethodDelete)

	route("/projects", h.listProjects, http.MethodGet)
	route("/projects", h.createProject, http.MethodPost)
	route("/projects/{id:[0-9]+}", h.getProject, http.MethodGet)
	route("/projects/{id:[0-9]+}", h.updateProject, http.MethodPut)
	route("/projects/{id:[0-9]+}", h.deleteProject, http.MethodDelete)
	route("/projects/{id:[0-9]+}/members", h.listMembers, http.MethodGet)
	route("/projects/{id:[0-9]+}/members/{userID:[0-9]+}", h.addMember, http.MethodPut)
	route("/projects/{id:[0-9]+}/members/{userID:[0-9]+}", h.removeMember, http.MethodDelete)

	route("/tasks", h.listTasks, http.MethodGet)
	route("/tasks", h.createTask, http.MethodPost)
	route("/tasks/{id:[0-9]+}", h.getTask, http.MethodGet)
	route("/tasks/{id:[0-9]+}", h.updateTask, http.MethodPut)
	route("/tasks/{id:[0-9]+}", h.deleteTask, http.MethodDelete)
	route("/tasks/{id:[0-9]+}/comments", h.listComments, http.MethodGet)
	route("/tasks/{id:[0-9]+}/comments", h.addComment, http.MethodPost)
	route("/tasks/{id:[0-9]+}/history", h.taskHistory, http.MethodGet)

	route("/notifications", h.listNotifications, http.MethodGet)
	route("/notifications/unread-count", h.unreadCount, http.MethodGet)
	route("/notifications/read-all", h.markAllRead, http.MethodPost)
	route("/notifications/{id:[0-9]+}/read", h.markRead, http.MethodPost)

	route("/stats", h.stats, http.MethodGet)

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeOK(w, r, "ok", map[string]string{"status": "up"})
}
