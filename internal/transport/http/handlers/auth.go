package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/NathiDhliso/ReelApps-sub001/internal/core/port"
	"github.com/NathiDhliso/ReelApps-sub001/internal/infra/identity"
	"github.com/NathiDhliso/ReelApps-sub001/internal/infra/security"
	"github.com/NathiDhliso/ReelApps-sub001/internal/transport/http/middleware"
	"github.com/NathiDhliso/ReelApps-sub001/internal/usecase"
)

const refreshTokenHeader = "X-Refresh-Token"

// AuthHandler exposes the hardened authentication endpoints.
type AuthHandler struct {
	flows *usecase.SecureAuthFlows
	sso   *usecase.SSOManager
	idp   port.IdentityProvider
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(flows *usecase.SecureAuthFlows, sso *usecase.SSOManager, idp port.IdentityProvider) *AuthHandler {
	return &AuthHandler{flows: flows, sso: sso, idp: idp}
}

// RegisterRoutes attaches the auth endpoints to the provided group.
func (h *AuthHandler) RegisterRoutes(group *gin.RouterGroup, loginMiddlewares, resetMiddlewares []gin.HandlerFunc) {
	loginHandlers := append([]gin.HandlerFunc{}, loginMiddlewares...)
	loginHandlers = append(loginHandlers, h.Login)
	group.POST("/login", loginHandlers...)

	group.POST("/logout", h.Logout)

	resetHandlers := append([]gin.HandlerFunc{}, resetMiddlewares...)
	resetHandlers = append(resetHandlers, h.RequestPasswordReset)
	group.POST("/password/reset", resetHandlers...)

	group.PUT("/password", h.UpdatePassword)
	group.GET("/session/diagnostics", h.SessionDiagnostics)
}

// Login authenticates credentials and returns the rotated token pair together
// with a transportable session token for sibling applications.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "email and password are required"))
		return
	}

	reqCtx := middleware.GetRequestContext(c)
	meta := usecase.ClientMeta{IPAddress: reqCtx.IP, UserAgent: reqCtx.UserAgent}

	session, err := h.flows.SecureLogin(c.Request.Context(), req.Email, req.Password, meta)
	if err != nil {
		var provErr *identity.Error
		if errors.As(err, &provErr) && provErr.Status >= 500 {
			c.JSON(http.StatusBadGateway, NewErrorResponse(c, "authentication service unavailable"))
			return
		}
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid credentials"))
		return
	}

	response := LoginResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresAt:    session.ExpiresAt,
		User:         UserSummary{ID: session.User.ID, Email: session.User.Email},
	}

	if descriptor := h.sso.MintDescriptor(c.Request.Context(), session, c.Request.Host); descriptor != nil {
		response.User.Role = descriptor.User.Role
		if token, err := h.sso.GenerateSSOToken(*descriptor); err == nil {
			response.SSOToken = token
		}
	}

	c.JSON(http.StatusOK, response)
}

// Logout tears down the session. Scope defaults to local; "global" revokes
// every session, "others" keeps the current one.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	_ = c.ShouldBindJSON(&req)

	scope := port.SignOutLocal
	switch req.Scope {
	case "global":
		scope = port.SignOutGlobal
	case "others":
		scope = port.SignOutOthers
	}

	if err := h.restoreSession(c); err != nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "not authenticated"))
		return
	}

	h.sso.ClearSession(c.Request.Context())
	if err := h.idp.SignOut(c.Request.Context(), scope); err != nil {
		c.JSON(http.StatusBadGateway, NewErrorResponse(c, "sign out failed"))
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "signed out"})
}

// RequestPasswordReset triggers a reset email. The response is identical for
// known and unknown addresses.
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "a valid email is required"))
		return
	}

	message := h.flows.SecurePasswordReset(c.Request.Context(), req.Email)
	c.JSON(http.StatusOK, MessageResponse{Message: message})
}

// UpdatePassword changes the authenticated user's password and invalidates
// every other session.
func (h *AuthHandler) UpdatePassword(c *gin.Context) {
	var req PasswordUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "new_password is required"))
		return
	}

	if err := h.restoreSession(c); err != nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "not authenticated"))
		return
	}

	reqCtx := middleware.GetRequestContext(c)
	meta := usecase.ClientMeta{IPAddress: reqCtx.IP, UserAgent: reqCtx.UserAgent}

	err := h.flows.SecurePasswordUpdate(c.Request.Context(), req.NewPassword, meta)
	if err != nil {
		var validationErr *security.PasswordValidationError
		if errors.As(err, &validationErr) {
			c.JSON(http.StatusUnprocessableEntity, NewErrorResponse(c, validationErr.Error()))
			return
		}
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrNoAuthenticatedUser, Status: http.StatusUnauthorized, Message: "not authenticated"},
		}, http.StatusBadGateway, "password update failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password updated"})
}

// SessionDiagnostics reports anomalies detected on the current session.
func (h *AuthHandler) SessionDiagnostics(c *gin.Context) {
	if err := h.restoreSession(c); err != nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "not authenticated"))
		return
	}

	report := h.flows.ValidateSessionSecurity(c.Request.Context(), c.Request.UserAgent())
	c.JSON(http.StatusOK, report)
}

// ListApps reports the applications reachable with the caller's role.
func (h *AuthHandler) ListApps(c *gin.Context) {
	if err := h.restoreSession(c); err != nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "not authenticated"))
		return
	}

	session, err := h.idp.GetSession(c.Request.Context())
	if err != nil || session == nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "not authenticated"))
		return
	}

	descriptor := h.sso.MintDescriptor(c.Request.Context(), session, c.Request.Host)
	if descriptor == nil {
		c.JSON(http.StatusBadGateway, NewErrorResponse(c, "could not resolve profile"))
		return
	}

	c.JSON(http.StatusOK, AppsResponse{
		Role: descriptor.User.Role,
		Apps: h.sso.AllowedApps(descriptor.User.Role),
	})
}

// restoreSession installs the caller's token pair into the provider client
// from the Authorization and refresh token headers.
func (h *AuthHandler) restoreSession(c *gin.Context) error {
	authorization := c.GetHeader("Authorization")
	accessToken := strings.TrimSpace(strings.TrimPrefix(authorization, "Bearer "))
	refreshToken := c.GetHeader(refreshTokenHeader)

	if accessToken == "" || authorization == accessToken || refreshToken == "" {
		return identity.ErrNoSession
	}

	_, err := h.idp.SetSession(c.Request.Context(), accessToken, refreshToken)
	return err
}
