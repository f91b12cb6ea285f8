package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dynamicdna/academy/internal/rpc"
	"github.com/dynamicdna/academy/internal/session"
	"github.com/dynamicdna/academy/pkg/models"
	"github.com/dynamicdna/academy/pkg/repository"
)

// AuthHandler serves the email-only local login used when OAuth is not available.
type AuthHandler struct {
	users   repository.UserRepo
	tokens  *session.TokenManager
	enabled bool
	limiter *rpc.IPLimiter
	now     func() time.Time
}

// NewAuthHandler creates a new AuthHandler. A nil limiter disables throttling.
func NewAuthHandler(users repository.UserRepo, tokens *session.TokenManager, enabled bool, limiter *rpc.IPLimiter) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, enabled: enabled, limiter: limiter, now: time.Now}
}

type localLoginRequest struct {
	Email string `json:"email"`
}

type loginUser struct {
	ID    int64   `json:"id"`
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Role  string  `json:"role"`
}

type localLoginResponse struct {
	Success bool      `json:"success"`
	User    loginUser `json:"user"`
}

func (h *AuthHandler) LocalLogin(w http.ResponseWriter, r *http.Request) {
	if !h.enabled {
		writeError(w, http.StatusForbidden, "Local login is not enabled. Set ALLOW_LOCAL_LOGIN=true to enable.")
		return
	}
	if h.limiter != nil && !h.limiter.Allow(rpc.ClientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "Too many login attempts. Please wait a moment and try again.")
		return
	}

	var req localLoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	ctx := r.Context()
	user, err := h.users.GetUserByEmail(ctx, email)
	if err != nil {
		logger.Error("local login lookup", "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error during login")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found. Please check your email or create a user in the database first.")
		return
	}
	if user.Role != models.RoleAdmin {
		writeError(w, http.StatusForbidden, "Access denied. Only admin users can log in.")
		return
	}

	openID := user.OpenID
	if openID == "" {
		openID = "local:" + email
	}
	name := ""
	if user.Name != nil {
		name = *user.Name
	}

	token, err := h.tokens.Sign(session.Claims{OpenID: openID, Name: name, Email: email, Role: user.Role})
	if err != nil {
		logger.Error("local login sign", "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error during login")
		return
	}

	now := h.now()
	if err := h.users.UpsertUser(ctx, &models.UserUpsert{
		OpenID:       openID,
		Name:         user.Name,
		Email:        user.Email,
		LoginMethod:  user.LoginMethod,
		LastSignedIn: &now,
	}); err != nil {
		logger.Error("local login upsert", "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error during login")
		return
	}

	session.SetCookie(w, r, token, h.tokens.TTL())
	logger.Info("local login", "user_id", user.ID, "request_id", RequestIDFrom(ctx))

	writeJSON(w, http.StatusOK, localLoginResponse{
		Success: true,
		User:    loginUser{ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role},
	})
}
