package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/calebwray/tandem/internal/auth"
	"github.com/calebwray/tandem/internal/model"
	"github.com/calebwray/tandem/internal/store"
)

type MemberHandler struct {
	households *store.HouseholdStore
	members    *store.FamilyMemberStore
	logger     *slog.Logger
}

func NewMemberHandler(hs *store.HouseholdStore, ms *store.FamilyMemberStore, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{households: hs, members: ms, logger: logger}
}

// Create registers a new family member and their profile in the calling
// household.
func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if !model.ValidRole(req.Role) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "role must be parent or child"})
		return
	}

	householdID := auth.HouseholdID(r.Context())

	member, err := h.members.Create(req.Name)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.members.AddHousehold(member.ID, householdID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	profile, err := h.households.CreateProfile(householdID, member.ID, req.Name, model.Role(req.Role))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.households.ListProfiles(auth.HouseholdID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if profiles == nil {
		profiles = []model.MemberProfile{}
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (h *MemberHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	profile, err := h.households.GetProfile(id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if profile == nil || profile.HouseholdID != auth.HouseholdID(r.Context()) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "member profile not found"})
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *MemberHandler) SetPIN(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if len(req.PIN) < 4 || !isDigits(req.PIN) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "PIN must be at least 4 digits"})
		return
	}

	profile, err := h.households.GetProfile(id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if profile == nil || profile.HouseholdID != auth.HouseholdID(r.Context()) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "member profile not found"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.members.SetPIN(profile.FamilyMemberID, string(hash)); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "pin set"})
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
