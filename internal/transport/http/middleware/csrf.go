package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/NathiDhliso/ReelApps-sub001/internal/infra/config"
	"github.com/NathiDhliso/ReelApps-sub001/internal/infra/security"
	"github.com/NathiDhliso/ReelApps-sub001/internal/usecase"
)

// CSRF enforces the double-submit cookie check on state-changing requests and
// issues the cookie on responses that lack one. The cookie is intentionally
// readable by scripts; possession of the value in a custom header is the proof
// that the caller runs on an allowed origin.
func CSRF(guard *usecase.CSRFGuard, cfg config.CSRFSettings, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	tokenLength := cfg.TokenLength
	if tokenLength <= 0 {
		tokenLength = 32
	}

	return func(c *gin.Context) {
		cookieToken, err := c.Cookie(guard.CookieName())
		if err != nil {
			cookieToken = ""
		}

		if cookieToken == "" {
			minted, err := security.GenerateHexToken(tokenLength)
			if err != nil {
				log.Error("csrf token generation failed", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
				return
			}
			setCSRFCookie(c, guard.CookieName(), minted, cfg)
		}

		if isStateChanging(c.Request.Method) {
			headerToken := c.GetHeader(guard.HeaderName())
			if !guard.Validate(cookieToken, headerToken) {
				log.Warn("csrf validation failed",
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Bool("cookie_present", cookieToken != ""),
					zap.Bool("header_present", headerToken != ""),
				)
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "csrf token missing or invalid"})
				return
			}
		}

		c.Next()
	}
}

func isStateChanging(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

func setCSRFCookie(c *gin.Context, name, value string, cfg config.CSRFSettings) {
	maxAge := int(cfg.MaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = 8 * 60 * 60
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   cfg.Secure,
		HttpOnly: false,
		SameSite: sameSiteMode(cfg.SameSite),
	})
}

func sameSiteMode(mode string) http.SameSite {
	switch strings.ToLower(mode) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
