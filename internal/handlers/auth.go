package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/freight-dispatch/internal/apperr"
	"github.com/ukydev/freight-dispatch/internal/auth"
	"github.com/ukydev/freight-dispatch/internal/db"
	"github.com/ukydev/freight-dispatch/internal/middleware"
	"github.com/ukydev/freight-dispatch/internal/models"
)

// AuthHandler handles authentication and user administration requests
type AuthHandler struct {
	authService    *auth.Service
	userCollection db.UserCollection
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *auth.Service, userCollection db.UserCollection) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		userCollection: userCollection,
	}
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var loginReq models.LoginRequest
	if err := decodeJSON(r, &loginReq); err != nil {
		writeError(w, err)
		return
	}

	// Find user by username
	user, err := h.userCollection.FindUserByUsername(r.Context(), loginReq.Username)
	if err != nil {
		if apperr.KindOf(err) != apperr.NotFound {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: auth.ErrInvalidCredentials.Error()})
		return
	}

	// Check if user is active
	if !user.IsActive {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: auth.ErrUserInactive.Error()})
		return
	}

	// Verify password
	if !h.authService.CheckPassword(loginReq.Password, user.PasswordHash) {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: auth.ErrInvalidCredentials.Error()})
		return
	}

	// Generate tokens
	token, err := h.authService.GenerateToken(user)
	if err != nil {
		writeError(w, err)
		return
	}
	refreshToken, err := h.authService.GenerateRefreshToken()
	if err != nil {
		writeError(w, err)
		return
	}

	// Failing to record the login does not fail it
	if err := h.userCollection.UpdateLastLogin(r.Context(), user.Key()); err != nil {
		log.WithError(err).WithField("user", user.Username).Warn("Failed to update last login")
	}

	log.WithField("user", user.Username).Info("User logged in")
	writeJSON(w, http.StatusOK, models.LoginResponse{
		Token:        token,
		RefreshToken: refreshToken,
		User:         *user,
	})
}

// GetProfile returns the current user's profile
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "user context not found"})
		return
	}

	user, err := h.userCollection.FindUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// ChangePassword changes the current user's password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "user context not found"})
		return
	}

	var passwordReq changePasswordRequest
	if err := decodeJSON(r, &passwordReq); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.userCollection.FindUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	// Verify current password
	if !h.authService.CheckPassword(passwordReq.CurrentPassword, user.PasswordHash) {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "current password is incorrect"})
		return
	}

	newPasswordHash, err := h.authService.HashPassword(passwordReq.NewPassword)
	if err != nil {
		writeError(w, err)
		return
	}

	user.PasswordHash = newPasswordHash
	if err := h.userCollection.UpdateUser(r.Context(), user); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password changed successfully")
}

// CreateUser adds a regular user. Only administrators reach this handler.
func (h *AuthHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.authService.ValidatePermissions(req.Permissions); err != nil {
		writeError(w, apperr.Wrap(apperr.Validation, err, "invalid permissions"))
		return
	}

	passwordHash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	user := &models.User{
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: passwordHash,
		Role:         models.RoleUser,
		Permissions:  req.Permissions,
		IsActive:     true,
	}
	if user.Permissions == nil {
		user.Permissions = models.Permissions{}
	}
	// Duplicate usernames surface as a conflict from the collection
	if err := h.userCollection.InsertUser(r.Context(), user); err != nil {
		writeError(w, err)
		return
	}

	log.WithField("user", user.Username).Info("User created")
	writeJSON(w, http.StatusCreated, user)
}

// ListUsers returns every user
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userCollection.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

type permissionsRequest struct {
	Permissions models.Permissions `json:"permissions" validate:"required"`
}

// UpdatePermissions replaces the permission set of a user
func (h *AuthHandler) UpdatePermissions(w http.ResponseWriter, r *http.Request) {
	var req permissionsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.authService.ValidatePermissions(req.Permissions); err != nil {
		writeError(w, apperr.Wrap(apperr.Validation, err, "invalid permissions"))
		return
	}

	user, err := h.userCollection.FindUserByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	user.Permissions = req.Permissions
	if err := h.userCollection.UpdateUser(r.Context(), user); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
