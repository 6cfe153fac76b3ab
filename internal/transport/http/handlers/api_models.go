package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/NathiDhliso/ReelApps-sub001/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// UserSummary describes a minimal view of a user returned by the API.
type UserSummary struct {
	ID    string      `json:"id"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role,omitempty"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse describes the response returned for a successful login.
type LoginResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresAt    time.Time   `json:"expires_at"`
	User         UserSummary `json:"user"`
	SSOToken     string      `json:"sso_token,omitempty"`
}

// LogoutRequest optionally narrows or widens the sign-out scope.
type LogoutRequest struct {
	Scope string `json:"scope" binding:"omitempty,oneof=global local others"`
}

// PasswordResetRequest defines the payload for requesting a reset email.
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// PasswordUpdateRequest defines the payload for changing the password.
type PasswordUpdateRequest struct {
	NewPassword string `json:"new_password" binding:"required"`
}

// AppsResponse lists the applications the authenticated user may reach.
type AppsResponse struct {
	Role domain.Role `json:"role"`
	Apps []string    `json:"apps"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessCheckResult reports the outcome of a single dependency probe.
type ReadinessCheckResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ReadinessResponse aggregates dependency probe outcomes.
type ReadinessResponse struct {
	Status string                 `json:"status"`
	Checks []ReadinessCheckResult `json:"checks"`
}
