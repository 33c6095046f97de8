package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"melodex/apperr"
	"melodex/logger"
	"melodex/model"

	"github.com/gorilla/mux"
)

// MeHandler returns the principal's own profile.
func (h *APIHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r.Context())

	user, err := h.userRepo.GetUserByID(r.Context(), principal.UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if user == nil {
		h.respondError(w, apperr.NotFound("user"))
		return
	}

	respondData(w, http.StatusOK, userProfile(user))
}

// UpdateProfileHandler updates the principal's display name.
func (h *APIHandler) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r.Context())

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, apperr.New(apperr.KindValidation, "invalid request body"))
		return
	}
	if len(strings.TrimSpace(req.Name)) < 2 {
		h.respondError(w, apperr.Validation("invalid profile",
			apperr.FieldError{Field: "name", Message: "name must be at least 2 characters"}))
		return
	}

	if err := h.userRepo.UpdateProfile(r.Context(), principal.UserID, strings.TrimSpace(req.Name)); err != nil {
		h.respondError(w, err)
		return
	}
	respondMessage(w, http.StatusOK, "profile updated")
}

// UpdateSettingsHandler replaces the principal's preference settings.
func (h *APIHandler) UpdateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r.Context())

	var settings json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		h.respondError(w, apperr.New(apperr.KindValidation, "settings must be a JSON document"))
		return
	}

	if err := h.userRepo.UpdateSettings(r.Context(), principal.UserID, string(settings)); err != nil {
		h.respondError(w, err)
		return
	}
	respondMessage(w, http.StatusOK, "settings updated")
}

// UpgradeHandler moves the principal to the premium tier.
func (h *APIHandler) UpgradeHandler(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r.Context())

	var req struct {
		Months int `json:"months"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, apperr.New(apperr.KindValidation, "invalid request body"))
		return
	}
	if req.Months < 1 || req.Months > 24 {
		h.respondError(w, apperr.Validation("invalid upgrade",
			apperr.FieldError{Field: "months", Message: "months must be between 1 and 24"}))
		return
	}

	now := time.Now()
	until := now.AddDate(0, req.Months, 0)
	if err := h.userRepo.UpgradeTier(r.Context(), principal.UserID, now, until); err != nil {
		h.respondError(w, err)
		return
	}

	logger.Info("[Upgrade] user upgraded to premium",
		logger.Int64("userId", principal.UserID), logger.Int("months", req.Months))
	respondData(w, http.StatusOK, map[string]interface{}{
		"tier":         model.TierPremium,
		"premiumUntil": until,
	})
}

// ListUsersHandler returns a page of all accounts (admin dashboard).
func (h *APIHandler) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	p := parsePagination(r)

	users, total, err := h.userRepo.ListUsers(r.Context(), p.Page, p.Limit)
	if err != nil {
		h.respondError(w, err)
		return
	}

	profiles := make([]map[string]interface{}, 0, len(users))
	for _, user := range users {
		profiles = append(profiles, userProfile(user))
	}
	respondData(w, http.StatusOK, listPayload("users", profiles, total, p))
}

// GetUserHandler returns one account by id (admin).
func (h *APIHandler) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, err)
		return
	}

	user, err := h.userRepo.GetUserByID(r.Context(), userID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if user == nil {
		h.respondError(w, apperr.NotFound("user"))
		return
	}
	respondData(w, http.StatusOK, userProfile(user))
}

// UpdateUserHandler edits an account's role and tier (admin).
func (h *APIHandler) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, err)
		return
	}

	var req struct {
		Role string `json:"role"`
		Tier string `json:"tier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, apperr.New(apperr.KindValidation, "invalid request body"))
		return
	}
	if req.Role != model.RoleUser && req.Role != model.RoleAdmin {
		h.respondError(w, apperr.Validation("invalid user update",
			apperr.FieldError{Field: "role", Message: "role must be user or admin"}))
		return
	}
	if req.Tier != model.TierRegular && req.Tier != model.TierPremium {
		h.respondError(w, apperr.Validation("invalid user update",
			apperr.FieldError{Field: "tier", Message: "tier must be regular or premium"}))
		return
	}

	user, err := h.userRepo.GetUserByID(r.Context(), userID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if user == nil {
		h.respondError(w, apperr.NotFound("user"))
		return
	}

	if err := h.userRepo.UpdateRoleAndTier(r.Context(), userID, req.Role, req.Tier); err != nil {
		h.respondError(w, err)
		return
	}

	logger.Info("[AdminUpdateUser] account updated", logger.Int64("userId", userID),
		logger.String("role", req.Role), logger.String("tier", req.Tier))
	respondMessage(w, http.StatusOK, "user updated")
}

// DeleteUserHandler removes an account (admin). Admins may not delete
// their own account through this endpoint.
func (h *APIHandler) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r.Context())

	userID, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, err)
		return
	}

	if err := h.authorizer.RequireNotSelf(principal, userID); err != nil {
		h.respondError(w, err)
		return
	}

	user, err := h.userRepo.GetUserByID(r.Context(), userID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if user == nil {
		h.respondError(w, apperr.NotFound("user"))
		return
	}

	if err := h.userRepo.DeleteUser(r.Context(), userID); err != nil {
		h.respondError(w, err)
		return
	}

	logger.Info("[AdminDeleteUser] account deleted", logger.Int64("userId", userID),
		logger.Int64("deletedBy", principal.UserID))
	respondMessage(w, http.StatusOK, "user deleted")
}

// userProfile flattens a user record for API responses, exposing
// nullable columns only when set.
func userProfile(user *model.User) map[string]interface{} {
	profile := map[string]interface{}{
		"id":           user.ID,
		"name":         user.Name,
		"email":        user.Email,
		"role":         user.Role,
		"tier":         user.Tier,
		"totalPlays":   user.TotalPlays,
		"totalSeconds": user.TotalSeconds,
		"createdAt":    user.CreatedAt,
		"updatedAt":    user.UpdatedAt,
	}
	if user.PremiumSince.Valid {
		profile["premiumSince"] = user.PremiumSince.Time
	}
	if user.PremiumUntil.Valid {
		profile["premiumUntil"] = user.PremiumUntil.Time
	}
	if user.Settings.Valid {
		profile["settings"] = json.RawMessage(user.Settings.String)
	}
	return profile
}

// pathID parses the named mux path variable as an id.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid path parameter",
			apperr.FieldError{Field: name, Message: "must be a positive integer"})
	}
	return id, nil
}
