package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/NathiDhliso/ReelApps-sub001/internal/infra/config"
	"github.com/NathiDhliso/ReelApps-sub001/internal/usecase"
)

// SSOHandler serves the main-domain entry point that subdomains bounce
// through to pick up a session token.
type SSOHandler struct {
	sso    *usecase.SSOManager
	cfg    config.SSOSettings
	logger *zap.Logger
}

// NewSSOHandler constructs SSOHandler.
func NewSSOHandler(sso *usecase.SSOManager, cfg config.SSOSettings, log *zap.Logger) *SSOHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &SSOHandler{sso: sso, cfg: cfg, logger: log}
}

// Entry handles GET on the SSO entry path. A caller with a usable session
// cookie is bounced back to return_url with a fresh token appended; anyone
// else lands on the login page with return_url preserved.
func (h *SSOHandler) Entry(c *gin.Context) {
	returnURL := c.Query(h.cfg.ReturnURLParam)
	if returnURL == "" || !h.allowedReturnURL(returnURL) {
		if returnURL != "" {
			h.logger.Warn("rejected sso return_url", zap.String("return_url", returnURL))
		}
		c.Redirect(http.StatusFound, h.loginURL(""))
		return
	}

	cookieToken, err := c.Cookie(h.cfg.SessionCookieName)
	if err != nil || cookieToken == "" {
		c.Redirect(http.StatusFound, h.loginURL(returnURL))
		return
	}

	descriptor := h.sso.ValidateSSOToken(c.Request.Context(), cookieToken)
	if descriptor == nil {
		c.Redirect(http.StatusFound, h.loginURL(returnURL))
		return
	}

	target, err := h.sso.AppURL(returnURL, *descriptor)
	if err != nil {
		h.logger.Error("could not build sso target url", zap.Error(err))
		c.Redirect(http.StatusFound, h.loginURL(returnURL))
		return
	}

	c.Redirect(http.StatusFound, target)
}

// allowedReturnURL accepts only https URLs on the main domain or one of its
// subdomains, closing the open-redirect hole a bounce endpoint invites.
func (h *SSOHandler) allowedReturnURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if parsed.Scheme != "https" {
		return false
	}

	hostname := parsed.Hostname()
	if hostname == h.cfg.MainDomain {
		return true
	}
	return strings.HasSuffix(hostname, "."+h.cfg.MainDomain)
}

func (h *SSOHandler) loginURL(returnURL string) string {
	login := url.URL{
		Scheme: "https",
		Host:   h.cfg.EntryHostPrefix + h.cfg.MainDomain,
		Path:   h.cfg.LoginPath,
	}
	if returnURL != "" {
		login.RawQuery = h.cfg.ReturnURLParam + "=" + url.QueryEscape(returnURL)
	}
	return login.String()
}
