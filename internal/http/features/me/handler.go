package me

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/schoolbell/schoolbell-auth/internal/auth"
	"github.com/schoolbell/schoolbell-auth/internal/domain"
	"github.com/schoolbell/schoolbell-auth/internal/http/middleware"
	"github.com/schoolbell/schoolbell-auth/internal/httputil"
)

type Handler struct {
	logger *slog.Logger
	users  auth.UserStore
}

func NewHandler(logger *slog.Logger, users auth.UserStore) *Handler {
	return &Handler{logger: logger, users: users}
}

type UserResponse struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	EmailVerified     bool       `json:"email_verified"`
	Phone             *string    `json:"phone,omitempty"`
	PhoneVerified     bool       `json:"phone_verified"`
	Name              *string    `json:"name,omitempty"`
	PreferredDelivery *string    `json:"preferred_delivery,omitempty"`
	LastActivityAt    *time.Time `json:"last_activity_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// GetMe returns the signed-in user's profile.
// GET /v1/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r.Context())
	if !ok || !session.IsAuthenticated() {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := h.users.GetByID(r.Context(), *session.UserID)
	if err != nil {
		h.logger.Error("failed to load user", "error", err, "user_id", session.UserID)
		httputil.Error(w, http.StatusInternalServerError, "failed to load account")
		return
	}

	httputil.JSON(w, http.StatusOK, toUserResponse(user))
}

func toUserResponse(user *domain.User) UserResponse {
	resp := UserResponse{
		ID:             user.ID.String(),
		Email:          user.Email,
		EmailVerified:  user.EmailVerified,
		Phone:          user.Phone,
		PhoneVerified:  user.PhoneVerified,
		Name:           user.Name,
		LastActivityAt: user.LastActivityAt,
		CreatedAt:      user.CreatedAt,
	}
	if user.PreferredDelivery != nil {
		method := string(*user.PreferredDelivery)
		resp.PreferredDelivery = &method
	}
	return resp
}
