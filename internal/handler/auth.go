package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/ordermgmt/internal/middleware"
	"github.com/iliyamo/ordermgmt/internal/model"
	"github.com/iliyamo/ordermgmt/internal/service"
)

const requestTimeout = 5 * time.Second

// AuthService is the subset of service.AuthService the handlers use.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (model.User, error)
	Login(ctx context.Context, email, password string) (service.LoginResult, error)
	Refresh(ctx context.Context, raw string) (service.RefreshResult, error)
	Logout(ctx context.Context, raw string) error
}

// AuthHandler serves /api/auth/* and /api/me.
type AuthHandler struct {
	Svc AuthService
	Log *zap.Logger
}

// NewAuthHandler wires the handler to svc. A nil log discards output.
func NewAuthHandler(svc AuthService, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{Svc: svc, Log: log}
}

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	RoleName string `json:"roleName"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

type loginResp struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	TokenType    string         `json:"tokenType"`
	Role         model.RoleName `json:"role"`
	Message      string         `json:"message"`
}

type refreshResp struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	Message      string `json:"message"`
}

// Register creates an account; it does not log the user in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	_, err := h.Svc.Register(ctx, service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		RoleName: req.RoleName,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": service.MsgRegistered})
}

// Login returns an access token and a new refresh token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, loginResp{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    res.TokenType,
		Role:         res.Role,
		Message:      res.Message,
	})
}

// Refresh returns a new access token; the refresh token is not rotated.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "refreshToken is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Svc.Refresh(ctx, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, refreshResp{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    res.TokenType,
		Message:      res.Message,
	})
}

// Logout revokes the given refresh token. It succeeds for unknown or
// already revoked tokens, and for an empty body.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Svc.Logout(ctx, strings.TrimSpace(req.RefreshToken)); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": service.MsgLoggedOut})
}

// Me echoes the verified identity of the caller. Routed behind
// RequireAuth.
func (h *AuthHandler) Me(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "authentication required"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"email":        p.Email,
		"role":         p.Role,
		"capabilities": p.Role.Capabilities(),
	})
}
