package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/calebwray/tandem/internal/auth"
	"github.com/calebwray/tandem/internal/model"
	"github.com/calebwray/tandem/internal/store"
	"github.com/calebwray/tandem/internal/task"
)

type TaskHandler struct {
	taskStore *store.TaskStore
	service   *task.Service
	logger    *slog.Logger
}

func NewTaskHandler(ts *store.TaskStore, svc *task.Service, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{taskStore: ts, service: svc, logger: logger}
}

type taskRequest struct {
	Title       string  `json:"title"`
	PointsValue int     `json:"points_value"`
	AssignedTo  []int64 `json:"assigned_to"`
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}
	if req.PointsValue < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "points_value must not be negative"})
		return
	}
	if len(req.AssignedTo) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "assigned_to is required"})
		return
	}

	t, err := h.taskStore.Create(auth.HouseholdID(r.Context()), req.Title, req.PointsValue, req.AssignedTo)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, t)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.taskStore.ListByHousehold(auth.HouseholdID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	t, err := h.taskStore.GetByID(id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if t == nil || t.HouseholdID != auth.HouseholdID(r.Context()) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	t, err := h.service.Complete(r.Context(), id, auth.MemberProfileID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TaskHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	t, err := h.service.Approve(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
