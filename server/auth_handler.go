package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"melodex/apperr"
	"melodex/core/auth"
	"melodex/logger"
	"melodex/model"
	"melodex/repository"
)

// RegisterRequest is the registration request body.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the login request body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func validateRegistration(req *RegisterRequest) []apperr.FieldError {
	var fields []apperr.FieldError
	if len(strings.TrimSpace(req.Name)) < 2 {
		fields = append(fields, apperr.FieldError{Field: "name", Message: "name must be at least 2 characters"})
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") || strings.HasPrefix(email, "@") || strings.HasSuffix(email, "@") {
		fields = append(fields, apperr.FieldError{Field: "email", Message: "a valid email address is required"})
	}
	if len(req.Password) < 6 {
		fields = append(fields, apperr.FieldError{Field: "password", Message: "password must be at least 6 characters"})
	}
	return fields
}

// RegisterHandler handles user registration.
func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, apperr.New(apperr.KindValidation, "invalid request body"))
		return
	}

	if fields := validateRegistration(&req); len(fields) > 0 {
		h.respondError(w, apperr.Validation("invalid registration", fields...))
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		h.respondError(w, err)
		return
	}

	user := &model.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hashedPassword,
		Role:         model.RoleUser,
		Tier:         model.TierRegular,
	}

	userID, err := h.userRepo.CreateUser(r.Context(), user)
	if err != nil {
		if err == repository.ErrDuplicate {
			logger.Warn("[Register] email already registered", logger.String("email", user.Email))
			h.respondError(w, apperr.New(apperr.KindConflict, "email already registered"))
			return
		}
		h.respondError(w, err)
		return
	}
	user.ID = userID

	token, err := h.tokens.Generate(userID, user.Email, user.Role)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.setSessionCookie(w, token)

	logger.Info("[Register] user created", logger.Int64("userId", userID), logger.String("email", user.Email))
	respondData(w, http.StatusCreated, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// LoginHandler handles user login. Unknown users and wrong passwords
// share one response so the two cases cannot be told apart.
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, apperr.New(apperr.KindValidation, "invalid request body"))
		return
	}
	if req.Email == "" || req.Password == "" {
		h.respondError(w, apperr.Validation("invalid login",
			apperr.FieldError{Field: "email", Message: "email and password are required"}))
		return
	}

	invalidCredentials := apperr.New(apperr.KindAuth, "invalid email or password")

	user, err := h.userRepo.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if user == nil || !auth.VerifyPassword(req.Password, user.PasswordHash) {
		logger.Warn("[Login] invalid credentials", logger.String("email", req.Email))
		h.respondError(w, invalidCredentials)
		return
	}

	token, err := h.tokens.Generate(user.ID, user.Email, user.Role)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.setSessionCookie(w, token)

	logger.Info("[Login] login succeeded", logger.Int64("userId", user.ID))
	respondData(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// LogoutHandler clears the session cookie.
func (h *APIHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
	})
	respondMessage(w, http.StatusOK, "logged out")
}

// ChangePasswordHandler replaces the principal's credential after
// re-verifying the current one.
func (h *APIHandler) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r.Context())

	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, apperr.New(apperr.KindValidation, "invalid request body"))
		return
	}
	if len(req.NewPassword) < 6 {
		h.respondError(w, apperr.Validation("invalid password",
			apperr.FieldError{Field: "newPassword", Message: "password must be at least 6 characters"}))
		return
	}

	user, err := h.userRepo.GetUserByID(r.Context(), principal.UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if user == nil {
		h.respondError(w, apperr.NotFound("user"))
		return
	}

	if !auth.VerifyPassword(req.CurrentPassword, user.PasswordHash) {
		h.respondError(w, apperr.Forbidden("current password is incorrect"))
		return
	}

	hashedPassword, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if err := h.userRepo.UpdatePassword(r.Context(), user.ID, hashedPassword); err != nil {
		h.respondError(w, err)
		return
	}

	logger.Info("[ChangePassword] password updated", logger.Int64("userId", user.ID))
	respondMessage(w, http.StatusOK, "password updated")
}

func (h *APIHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(time.Duration(h.cfg.JWTExpiryHour) * time.Hour),
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
