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

type RewardHandler struct {
	rewardStore *store.RewardStore
	service     *task.Service
	logger      *slog.Logger
}

func NewRewardHandler(rs *store.RewardStore, svc *task.Service, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{rewardStore: rs, service: svc, logger: logger}
}

func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title     string `json:"title"`
		PointCost int    `json:"point_cost"`
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
	if req.PointCost <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "point_cost must be positive"})
		return
	}

	reward, err := h.rewardStore.Create(auth.HouseholdID(r.Context()), req.Title, req.PointCost)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, reward)
}

func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.rewardStore.ListByHousehold(auth.HouseholdID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if rewards == nil {
		rewards = []model.Reward{}
	}
	writeJSON(w, http.StatusOK, rewards)
}

func (h *RewardHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	purchase, err := h.service.PurchaseReward(r.Context(), id, auth.MemberProfileID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, purchase)
}
