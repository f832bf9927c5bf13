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

type RoutineHandler struct {
	routineStore *store.RoutineStore
	service      *task.Service
	logger       *slog.Logger
}

func NewRoutineHandler(rs *store.RoutineStore, svc *task.Service, logger *slog.Logger) *RoutineHandler {
	return &RoutineHandler{routineStore: rs, service: svc, logger: logger}
}

func (h *RoutineHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string `json:"title"`
		PointsValue int    `json:"points_value"`
	}
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

	routine, err := h.routineStore.Create(auth.HouseholdID(r.Context()), req.Title, req.PointsValue)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, routine)
}

func (h *RoutineHandler) List(w http.ResponseWriter, r *http.Request) {
	routines, err := h.routineStore.ListByHousehold(auth.HouseholdID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if routines == nil {
		routines = []model.Routine{}
	}
	writeJSON(w, http.StatusOK, routines)
}

func (h *RoutineHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	completion, err := h.service.CompleteRoutine(r.Context(), id, auth.MemberProfileID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, completion)
}
