package auth

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sentinel-iam/sentinel/internal/platform/httpx"
	"github.com/sentinel-iam/sentinel/internal/rbac"
	"github.com/sentinel-iam/sentinel/internal/token"
	"github.com/sentinel-iam/sentinel/internal/users"
)

// invalidLoginMessage is the byte-identical message for every login
// failure. The wording never reveals which half of the pair was wrong.
const invalidLoginMessage = "Invalid username or password"

// LoginObserver counts login outcomes. Implemented by the metrics
// registry; nil disables observation.
type LoginObserver interface {
	ObserveLogin(outcome string)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	codec     *token.Codec
	throttle  *Throttle
	users     *users.Service
	observer  LoginObserver
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, codec *token.Codec, throttle *Throttle, userService *users.Service, observer LoginObserver) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		codec:     codec,
		throttle:  throttle,
		users:     userService,
		observer:  observer,
		validator: validator.New(),
	}
}

func (h *Handler) observe(outcome string) {
	if h.observer != nil {
		h.observer.ObserveLogin(outcome)
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Get("/me", h.handleMe)
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type meResponse struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, httpx.FailureValidation, nil)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, httpx.FailureValidation, nil)
		return
	}

	ip := clientIP(r)
	if !h.throttle.Allow(r.Context(), ip, req.Username) {
		h.observe("throttled")
		httpx.Fail(w, httpx.FailureThrottled, nil)
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.observe("failed")
			httpx.FailWithMessage(w, httpx.FailureUnauthenticated, invalidLoginMessage)
			return
		}
		h.logger.Error("login", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	raw, expiresAt, err := h.codec.Mint(user.ID)
	if err != nil {
		h.logger.Error("mint token", slog.Any("error", err))
		httpx.Fail(w, httpx.FailureInternal, nil)
		return
	}
	h.throttle.Reset(r.Context(), ip, req.Username)
	h.observe("succeeded")

	httpx.JSON(w, http.StatusOK, loginResponse{Token: raw, ExpiresAt: expiresAt})
}

// clientIP strips the ephemeral port from RemoteAddr so throttle counters
// key on the host alone. Reconnecting must not reset the counter. The
// RealIP middleware may have already rewritten RemoteAddr to a bare IP.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	principal := rbac.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.Fail(w, httpx.FailureUnauthenticated, nil)
		return
	}

	user, err := h.users.Get(r.Context(), principal.ID)
	if err != nil {
		// A valid token for a since-removed user is a stale credential.
		if httpx.Classify(err) == httpx.FailureNotFound {
			httpx.Fail(w, httpx.FailureUnauthenticated, nil)
			return
		}
		h.logger.Error("resolve principal", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	roles, err := h.users.Roles(r.Context(), principal.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	perms, err := h.users.Permissions(r.Context(), principal.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if roles == nil {
		roles = []string{}
	}
	if perms == nil {
		perms = []string{}
	}

	httpx.JSON(w, http.StatusOK, meResponse{
		ID:          user.ID.String(),
		Username:    user.Username,
		Roles:       roles,
		Permissions: perms,
	})
}
