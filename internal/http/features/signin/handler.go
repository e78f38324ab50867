package signin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schoolbell/schoolbell-auth/internal/auth"
	"github.com/schoolbell/schoolbell-auth/internal/device"
	"github.com/schoolbell/schoolbell-auth/internal/domain"
	"github.com/schoolbell/schoolbell-auth/internal/http/middleware"
	"github.com/schoolbell/schoolbell-auth/internal/httputil"
	"github.com/schoolbell/schoolbell-auth/internal/notification"
	"github.com/schoolbell/schoolbell-auth/internal/phone"
)

// codeSentMessage is returned whether or not the identifier matched an
// account. The response must not let a caller probe which addresses are
// registered.
const codeSentMessage = "if an account exists, a sign-in code has been sent"

type Handler struct {
	logger       *slog.Logger
	sessions     *auth.SessionService
	otp          *auth.OTPService
	continuation *auth.Continuation
	users        auth.UserStore
	email        notification.Channel
	sms          notification.Channel
	cookies      httputil.CookieConfig
	anonymousTTL time.Duration
}

func NewHandler(
	logger *slog.Logger,
	sessions *auth.SessionService,
	otp *auth.OTPService,
	continuation *auth.Continuation,
	users auth.UserStore,
	email notification.Channel,
	sms notification.Channel,
	cookies httputil.CookieConfig,
	anonymousTTL time.Duration,
) *Handler {
	return &Handler{
		logger:       logger,
		sessions:     sessions,
		otp:          otp,
		continuation: continuation,
		users:        users,
		email:        email,
		sms:          sms,
		cookies:      cookies,
		anonymousTTL: anonymousTTL,
	}
}

type RequestCodeRequest struct {
	Identifier string `json:"identifier"`
	Delivery   string `json:"delivery,omitempty"`
}

type VerifyCodeRequest struct {
	Code string `json:"code"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type VerifyCodeErrorResponse struct {
	Error             string `json:"error"`
	RemainingAttempts *int   `json:"remaining_attempts,omitempty"`
}

type RedirectResponse struct {
	Redirect string `json:"redirect"`
}

// Start is the sign-in entry point. It guarantees a session exists to
// carry the flow and records where the caller was headed.
// GET /v1/auth/signin?next=/grades/123
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	session, err := h.ensureSession(w, r)
	if err != nil {
		h.logger.Error("failed to start session", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to start sign-in")
		return
	}

	next := r.URL.Query().Get("next")
	if err := h.continuation.Begin(r.Context(), session, next); err != nil {
		h.logger.Error("failed to record continuation", "error", err, "session_id", session.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to start sign-in")
		return
	}

	httputil.JSON(w, http.StatusOK, MessageResponse{Message: "sign-in started"})
}

// RequestCode issues a one-time code to the identifier's account. The
// response is the same whether the identifier matched an account, the
// account lacked the requested channel, or delivery failed.
// POST /v1/auth/otp/request
func (h *Handler) RequestCode(w http.ResponseWriter, r *http.Request) {
	var req RequestCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request")
		return
	}

	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" {
		httputil.Error(w, http.StatusBadRequest, "identifier is required")
		return
	}
	if req.Delivery != "" && !domain.ValidDeliveryMethod(domain.DeliveryMethod(req.Delivery)) {
		httputil.Error(w, http.StatusBadRequest, "delivery must be email or sms")
		return
	}

	session, err := h.ensureSession(w, r)
	if err != nil {
		h.logger.Error("failed to start session", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to process request")
		return
	}

	user, delivery, err := h.resolveAccount(r, identifier, req.Delivery)
	if err != nil {
		var verr *phone.ValidationError
		if errors.As(err, &verr) {
			httputil.Error(w, http.StatusBadRequest, verr.Message)
			return
		}
		// Unknown identifier. Same response as success.
		httputil.JSON(w, http.StatusOK, MessageResponse{Message: codeSentMessage})
		return
	}

	destination, channel, ok := h.channelFor(user, delivery)
	if !ok {
		// Account cannot receive this channel. Same response as success.
		h.logger.Info("sign-in code channel unavailable", "user_id", user.ID, "delivery", delivery)
		httputil.JSON(w, http.StatusOK, MessageResponse{Message: codeSentMessage})
		return
	}

	code, tokenID, err := h.otp.Generate(r.Context(), user.ID, delivery)
	if err != nil {
		h.logger.Error("failed to generate sign-in code", "error", err, "user_id", user.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to process request")
		return
	}

	if err := channel.SendSigninCode(r.Context(), destination, code); err != nil {
		h.logger.Error("failed to deliver sign-in code", "error", err, "user_id", user.ID, "delivery", delivery)
		httputil.JSON(w, http.StatusOK, MessageResponse{Message: codeSentMessage})
		return
	}

	session.Data.OTPTokenID = tokenID.String()
	session.Data.DeliveryMethod = string(delivery)
	session.Data.PendingUserID = user.ID.String()
	if err := h.sessions.Save(r.Context(), session); err != nil {
		h.logger.Error("failed to save session", "error", err, "session_id", session.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to process request")
		return
	}

	h.logger.Info("sign-in code issued", "user_id", user.ID, "delivery", delivery)

	httputil.JSON(w, http.StatusOK, MessageResponse{Message: codeSentMessage})
}

// VerifyCode checks the submitted code against the session's pending
// sign-in. On success the session is bound to the user, the cookie token
// rotates, and the caller learns where to go next.
// POST /v1/auth/otp/verify
func (h *Handler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Code == "" {
		httputil.Error(w, http.StatusBadRequest, "code is required")
		return
	}

	session, ok := middleware.GetSession(r.Context())
	if !ok || session.Data.OTPTokenID == "" {
		httputil.Error(w, http.StatusBadRequest, domain.ErrTokenNotFound.Error())
		return
	}

	tokenID, err := uuid.Parse(session.Data.OTPTokenID)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, domain.ErrTokenNotFound.Error())
		return
	}

	userID, err := h.otp.Verify(r.Context(), tokenID, req.Code)
	if err != nil {
		h.writeVerifyError(w, err)
		return
	}

	cls := device.Classify(r)
	isPWA := cls.IsPWA
	now := time.Now()
	session.Data.IsPWA = &isPWA
	session.Data.DurationSeconds = int(cls.Duration.Seconds())
	session.Data.ClassifiedAt = &now

	rawToken, err := h.sessions.Authenticate(r.Context(), session, userID, cls.Duration)
	if err != nil {
		h.logger.Error("failed to authenticate session", "error", err, "session_id", session.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to complete sign-in")
		return
	}
	httputil.SetSessionCookie(w, rawToken, cls.Duration, h.cookies)

	redirect, err := h.continuation.Resolve(r.Context(), session)
	if err != nil {
		h.logger.Error("failed to resolve continuation", "error", err, "session_id", session.ID)
		redirect = auth.DefaultRedirectPath
	}

	h.logger.Info("sign-in completed", "user_id", userID, "is_pwa", isPWA)

	httputil.JSON(w, http.StatusOK, RedirectResponse{Redirect: redirect})
}

// Logout revokes the session and clears the cookie.
// POST /v1/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if session, ok := middleware.GetSession(r.Context()); ok {
		if err := h.sessions.Revoke(r.Context(), session); err != nil {
			h.logger.Error("failed to revoke session", "error", err, "session_id", session.ID)
		}
	}
	httputil.ClearSessionCookie(w, h.cookies)
	httputil.JSON(w, http.StatusOK, MessageResponse{Message: "signed out"})
}

// ensureSession returns the request's session, creating an anonymous one
// and setting its cookie when the request carries none.
func (h *Handler) ensureSession(w http.ResponseWriter, r *http.Request) (*domain.Session, error) {
	if session, ok := middleware.GetSession(r.Context()); ok {
		return session, nil
	}
	session, rawToken, err := h.sessions.Start(r.Context())
	if err != nil {
		return nil, err
	}
	httputil.SetSessionCookie(w, rawToken, h.anonymousTTL, h.cookies)
	return session, nil
}

// resolveAccount maps an identifier to an account and a delivery channel.
// Identifiers with an @ are emails; anything else is treated as a phone
// number and normalized before lookup.
func (h *Handler) resolveAccount(r *http.Request, identifier, requested string) (*domain.User, domain.DeliveryMethod, error) {
	if strings.Contains(identifier, "@") {
		user, err := h.users.GetByEmail(r.Context(), identifier)
		if err != nil {
			return nil, "", err
		}
		return user, h.pickDelivery(requested, domain.DeliveryEmail), nil
	}

	normalized, err := phone.Normalize(identifier)
	if err != nil {
		return nil, "", err
	}
	user, err := h.users.GetByPhone(r.Context(), normalized)
	if err != nil {
		return nil, "", err
	}
	return user, h.pickDelivery(requested, domain.DeliverySMS), nil
}

// pickDelivery honors an explicit request, falling back to the channel
// implied by the identifier type.
func (h *Handler) pickDelivery(requested string, fallback domain.DeliveryMethod) domain.DeliveryMethod {
	if requested != "" {
		return domain.DeliveryMethod(requested)
	}
	return fallback
}

// channelFor returns the destination and channel for the delivery method,
// or ok=false when the account or deployment lacks it.
func (h *Handler) channelFor(user *domain.User, delivery domain.DeliveryMethod) (string, notification.Channel, bool) {
	switch delivery {
	case domain.DeliverySMS:
		if h.sms == nil || user.Phone == nil || *user.Phone == "" {
			return "", nil, false
		}
		return *user.Phone, h.sms, true
	default:
		if h.email == nil || user.Email == "" {
			return "", nil, false
		}
		return user.Email, h.email, true
	}
}

func (h *Handler) writeVerifyError(w http.ResponseWriter, err error) {
	if mismatch, ok := domain.AsMismatch(err); ok {
		remaining := mismatch.Remaining
		httputil.JSON(w, http.StatusBadRequest, VerifyCodeErrorResponse{
			Error:             "incorrect code",
			RemainingAttempts: &remaining,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrTokenExpired):
		httputil.Error(w, http.StatusBadRequest, domain.ErrTokenExpired.Error())
	case errors.Is(err, domain.ErrTokenLocked):
		httputil.Error(w, http.StatusTooManyRequests, domain.ErrTokenLocked.Error())
	case errors.Is(err, domain.ErrTokenNotFound):
		httputil.Error(w, http.StatusBadRequest, domain.ErrTokenNotFound.Error())
	default:
		h.logger.Error("failed to verify sign-in code", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to complete sign-in")
	}
}
