package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/calebwray/tandem/internal/auth"
	"github.com/calebwray/tandem/internal/link"
	"github.com/calebwray/tandem/internal/model"
)

type LinkHandler struct {
	service *link.Service
	logger  *slog.Logger
}

func NewLinkHandler(svc *link.Service, logger *slog.Logger) *LinkHandler {
	return &LinkHandler{service: svc, logger: logger}
}

func (h *LinkHandler) IssueCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChildFamilyMemberID int64 `json:"child_family_member_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	code, err := h.service.IssueCode(auth.HouseholdID(r.Context()), req.ChildFamilyMemberID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, code)
}

func (h *LinkHandler) RedeemCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "code is required"})
		return
	}

	l, err := h.service.RedeemCode(req.Code, auth.HouseholdID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (h *LinkHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	l, err := h.service.GetLink(id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if _, ok := l.Counterpart(auth.HouseholdID(r.Context())); !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "link not found"})
		return
	}

	changes, err := h.service.ListChanges(id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	history, err := h.service.ListHistory(id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"link":             l,
		"pending_changes":  orEmptyChanges(changes),
		"proposal_history": orEmptyHistory(history),
	})
}

func (h *LinkHandler) ProposeChange(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req struct {
		Setting string `json:"setting"`
		Value   string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	ac, _ := auth.FromContext(r.Context())
	change, err := h.service.ProposeChange(id, req.Setting, req.Value, ac.HouseholdID, ac.MemberProfileID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, change)
}

func (h *LinkHandler) ApproveChange(w http.ResponseWriter, r *http.Request) {
	linkID, err := parseIDParam(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	changeID, err := parseIDParam(r, "change_id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid change_id"})
		return
	}

	l, err := h.service.ApproveChange(r.Context(), linkID, changeID, auth.HouseholdID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *LinkHandler) RejectChange(w http.ResponseWriter, r *http.Request) {
	linkID, err := parseIDParam(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	changeID, err := parseIDParam(r, "change_id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid change_id"})
		return
	}

	change, err := h.service.RejectChange(linkID, changeID, auth.HouseholdID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, change)
}

func (h *LinkHandler) Unlink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChildFamilyMemberID int64 `json:"child_family_member_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if err := h.service.UnlinkChild(r.Context(), req.ChildFamilyMemberID, auth.HouseholdID(r.Context())); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func orEmptyChanges(changes []model.PendingChange) []model.PendingChange {
	if changes == nil {
		return []model.PendingChange{}
	}
	return changes
}

func orEmptyHistory(entries []model.ProposalEntry) []model.ProposalEntry {
	if entries == nil {
		return []model.ProposalEntry{}
	}
	return entries
}
