package verify

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/schoolbell/schoolbell-auth/internal/auth"
	"github.com/schoolbell/schoolbell-auth/internal/domain"
	"github.com/schoolbell/schoolbell-auth/internal/http/middleware"
	"github.com/schoolbell/schoolbell-auth/internal/httputil"
	"github.com/schoolbell/schoolbell-auth/internal/notification"
)

type Handler struct {
	logger       *slog.Logger
	verification *auth.VerificationService
	users        auth.UserStore
	email        notification.Channel
	sms          notification.Channel
}

func NewHandler(
	logger *slog.Logger,
	verification *auth.VerificationService,
	users auth.UserStore,
	email notification.Channel,
	sms notification.Channel,
) *Handler {
	return &Handler{
		logger:       logger,
		verification: verification,
		users:        users,
		email:        email,
		sms:          sms,
	}
}

type VerifyTokenRequest struct {
	Token string `json:"token"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// VerifyEmail consumes an email verification link.
// GET /v1/auth/verify-email?token=...
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		httputil.Error(w, http.StatusBadRequest, "token is required")
		return
	}

	userID, err := h.verification.VerifyEmailLink(r.Context(), token)
	if err != nil {
		h.writeLinkError(w, err)
		return
	}

	h.logger.Info("email verified", "user_id", userID)

	httputil.JSON(w, http.StatusOK, MessageResponse{Message: "email verified"})
}

// VerifyPhone consumes a phone verification link. The token arrives in
// the body or, for clicked links, as a query parameter.
// POST /v1/auth/verify-phone
func (h *Handler) VerifyPhone(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		var req VerifyTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid request")
			return
		}
		token = req.Token
	}
	if token == "" {
		httputil.Error(w, http.StatusBadRequest, "token is required")
		return
	}

	userID, err := h.verification.VerifyPhoneLink(r.Context(), token)
	if err != nil {
		h.writeLinkError(w, err)
		return
	}

	h.logger.Info("phone verified", "user_id", userID)

	httputil.JSON(w, http.StatusOK, MessageResponse{Message: "phone verified"})
}

// RequestEmailVerification issues a fresh email verification link for the
// signed-in user. Requires authentication.
// POST /v1/me/verify-email/request
func (h *Handler) RequestEmailVerification(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	if user.EmailVerified {
		httputil.Error(w, http.StatusBadRequest, "email already verified")
		return
	}
	if h.email == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "email delivery not configured")
		return
	}

	link, err := h.verification.CreateEmailVerificationLink(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to create verification link", "error", err, "user_id", user.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to create verification link")
		return
	}
	if err := h.email.SendVerificationLink(r.Context(), user.Email, link); err != nil {
		h.logger.Error("failed to send verification link", "error", err, "user_id", user.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to send verification link")
		return
	}

	h.logger.Info("email verification link sent", "user_id", user.ID)

	httputil.JSON(w, http.StatusOK, MessageResponse{Message: "verification link sent"})
}

// RequestPhoneVerification issues a fresh phone verification link for the
// signed-in user. Requires authentication and a phone on file.
// POST /v1/me/verify-phone/request
func (h *Handler) RequestPhoneVerification(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	if user.Phone == nil || *user.Phone == "" {
		httputil.Error(w, http.StatusBadRequest, "no phone number on file")
		return
	}
	if user.PhoneVerified {
		httputil.Error(w, http.StatusBadRequest, "phone already verified")
		return
	}
	if h.sms == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "sms delivery not configured")
		return
	}

	link, err := h.verification.CreatePhoneVerificationLink(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to create verification link", "error", err, "user_id", user.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to create verification link")
		return
	}
	if err := h.sms.SendVerificationLink(r.Context(), *user.Phone, link); err != nil {
		h.logger.Error("failed to send verification link", "error", err, "user_id", user.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to send verification link")
		return
	}

	h.logger.Info("phone verification link sent", "user_id", user.ID)

	httputil.JSON(w, http.StatusOK, MessageResponse{Message: "verification link sent"})
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	session, ok := middleware.GetSession(r.Context())
	if !ok || !session.IsAuthenticated() {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	user, err := h.users.GetByID(r.Context(), *session.UserID)
	if err != nil {
		h.logger.Error("failed to load user", "error", err, "user_id", session.UserID)
		httputil.Error(w, http.StatusInternalServerError, "failed to load account")
		return nil, false
	}
	return user, true
}

func (h *Handler) writeLinkError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrInvalidLink) {
		// One message for forged, expired and consumed links alike.
		httputil.Error(w, http.StatusBadRequest, domain.ErrInvalidLink.Error())
		return
	}
	h.logger.Error("failed to verify link", "error", err)
	httputil.Error(w, http.StatusInternalServerError, "verification failed")
}
