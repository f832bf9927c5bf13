package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/calebwray/tandem/internal/model"
	"github.com/calebwray/tandem/internal/store"
)

const sessionCookieName = "tandem_session"

type AuthHandler struct {
	households *store.HouseholdStore
	members    *store.FamilyMemberStore
	sessions   *store.SessionStore
	sessionTTL time.Duration
	logger     *slog.Logger
}

func NewAuthHandler(hs *store.HouseholdStore, ms *store.FamilyMemberStore, ss *store.SessionStore, sessionTTL time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{households: hs, members: ms, sessions: ss, sessionTTL: sessionTTL, logger: logger}
}

// Bootstrap creates a household together with its first parent member and
// logs them in. This is the only unauthenticated write in the API.
func (h *AuthHandler) Bootstrap(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HouseholdName string `json:"household_name"`
		ParentName    string `json:"parent_name"`
		PIN           string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.HouseholdName = strings.TrimSpace(req.HouseholdName)
	req.ParentName = strings.TrimSpace(req.ParentName)
	if req.HouseholdName == "" || req.ParentName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "household_name and parent_name are required"})
		return
	}
	if len(req.PIN) < 4 || !isDigits(req.PIN) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "PIN must be at least 4 digits"})
		return
	}

	household, err := h.households.Create(req.HouseholdName)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	member, err := h.members.Create(req.ParentName)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.members.SetPIN(member.ID, string(hash)); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.members.AddHousehold(member.ID, household.ID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	profile, err := h.households.CreateProfile(household.ID, member.ID, req.ParentName, model.RoleParent)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	sess, err := h.sessions.Create(profile.ID, household.ID, h.sessionTTL)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.setSessionCookie(w, sess.Token)

	writeJSON(w, http.StatusCreated, map[string]any{
		"household": household,
		"profile":   profile,
	})
}

// Login exchanges a member profile id and PIN for a session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MemberProfileID int64  `json:"member_profile_id"`
		PIN             string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	profile, err := h.households.GetProfile(req.MemberProfileID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if profile == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	hash, err := h.members.GetPINHash(profile.FamilyMemberID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.PIN)) != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	sess, err := h.sessions.Create(profile.ID, profile.HouseholdID, h.sessionTTL)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.setSessionCookie(w, sess.Token)

	writeJSON(w, http.StatusOK, profile)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		if err := h.sessions.Delete(cookie.Value); err != nil {
			h.logger.Warn("delete session", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
