package auth

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aegis-admin/aegis/internal/platform/httpx"
	"github.com/aegis-admin/aegis/internal/rbac"
	"github.com/aegis-admin/aegis/internal/shared"
)

// CaptchaIssuer abstracts challenge issuance for the handler.
type CaptchaIssuer interface {
	Issue(ctx context.Context, ip, userAgent string) (string, error)
}

// Handler wires HTTP endpoints for the session lifecycle.
type Handler struct {
	logger    *slog.Logger
	captcha   CaptchaIssuer
	service   *Service
	resolver  *rbac.Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, captcha CaptchaIssuer, service *Service, resolver *rbac.Service) *Handler {
	return &Handler{
		logger:    logger,
		captcha:   captcha,
		service:   service,
		resolver:  resolver,
		validator: validator.New(),
	}
}

// MountPublicRoutes registers the unauthenticated auth routes.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Get("/captcha", h.GetCaptcha)
	r.Post("/login", h.Login)
}

// MountProtectedRoutes registers routes that require a live session.
func (h *Handler) MountProtectedRoutes(r chi.Router) {
	r.Get("/logout", h.Logout)
	r.Get("/userinfo", h.UserInfo)
}

type captchaResponse struct {
	Captcha string `json:"captcha"`
}

// GetCaptcha issues a challenge bound to the requester identity.
func (h *Handler) GetCaptcha(w http.ResponseWriter, r *http.Request) {
	image, err := h.captcha.Issue(r.Context(), clientIP(r), r.UserAgent())
	if err != nil {
		h.logger.Error("issue captcha", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, captchaResponse{Captcha: image})
}

type loginRequest struct {
	UserName string `json:"userName" validate:"required"`
	Password string `json:"password" validate:"required"`
	Captcha  string `json:"captcha" validate:"required"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login authenticates credentials and returns a session token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "userName, password and captcha are required")
		return
	}

	token, err := h.service.Login(r.Context(), LoginInput{
		UserName:  req.UserName,
		Password:  req.Password,
		Captcha:   req.Captcha,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		if _, soft := shared.SoftKind(err); !soft {
			h.logger.Error("login", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, loginResponse{Token: token})
}

// Logout revokes the presented token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := BearerToken(r)
	if token == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	if err := h.service.Logout(r.Context(), token); err != nil {
		h.logger.Error("logout", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, struct{}{})
}

// UserInfo resolves the caller's profile, roles, permissions and menus.
func (h *Handler) UserInfo(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	info, err := h.resolver.GetUserInfo(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, rbac.ErrUserNotFound) {
			// A validated session pointing at a missing user is a data
			// integrity anomaly, surfaced distinctly from routine lookups.
			httpx.Problem(w, http.StatusNotFound, "Not Found", "no user found for session")
			return
		}
		h.logger.Error("get user info", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, info)
}

func clientIP(r *http.Request) string {
	// RealIP middleware rewrites RemoteAddr from forwarding headers; a
	// direct connection still carries a port.
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
