package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/userdesk/userdesk/internal/domain/entity"
	"github.com/userdesk/userdesk/internal/domain/repository"
	"github.com/userdesk/userdesk/internal/session"
	"github.com/userdesk/userdesk/pkg/helpers"
	"github.com/userdesk/userdesk/pkg/response"
)

// Context keys populated by the status guard for downstream handlers.
const (
	CtxAccountID    = "accountID"
	CtxAccountEmail = "accountEmail"
	CtxAccountName  = "accountName"
)

// GuardConfig is the immutable allow-list configuration for the status guard.
type GuardConfig struct {
	// PublicPaths are path prefixes that bypass the guard entirely.
	PublicPaths []string
	// StaticPrefixes cover assets and other unauthenticated surfaces.
	StaticPrefixes []string
	// LoginPath is the redirect target for terminated sessions.
	LoginPath string
}

func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		PublicPaths: []string{
			"/Account/Login",
			"/Account/Register",
			"/Account/Logout",
			"/Account/ForgotPassword",
			"/Account/ResetPassword",
			"/Account/VerifyEmail",
		},
		StaticPrefixes: []string{"/css", "/js", "/lib", "/images", "/favicon", "/debug"},
		LoginPath:      "/Account/Login",
	}
}

func (g GuardConfig) isPublic(path string) bool {
	for _, p := range g.PublicPaths {
		if len(path) >= len(p) && strings.EqualFold(path[:len(p)], p) {
			return true
		}
	}
	for _, p := range g.StaticPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// StatusGuard re-validates the authenticated account against the live store
// on every non-public request. Session claims are cached at login time, so
// this re-fetch is what makes a block or delete take effect immediately
// instead of at the next natural re-login. Any stale session is terminated
// with a silent redirect to the login entry point, optionally carrying a
// reason flag for UI messaging.
func StatusGuard(cfg GuardConfig, tokens *helpers.SessionTokenManager, sessions session.Store, repo repository.AccountRepository, cookies *helpers.CookieManager, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.isPublic(c.Request.URL.Path) {
			c.Next()
			return
		}

		ctx := c.Request.Context()

		terminate := func(target string) {
			cookies.ClearSession(c)
			c.Redirect(http.StatusFound, target)
			c.Abort()
		}

		token, err := c.Cookie(helpers.SessionCookieName)
		if err != nil || token == "" {
			terminate(cfg.LoginPath)
			return
		}
		claims, err := tokens.Parse(token)
		if err != nil {
			terminate(cfg.LoginPath)
			return
		}

		sess, ok, err := sessions.Get(ctx, claims.AccountID)
		if err != nil {
			logger.WithError(err).Error("session lookup failed")
			resp := response.Error[any](c, http.StatusInternalServerError, "session unavailable", nil)
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		if !ok || sess.SID != claims.SessionID {
			terminate(cfg.LoginPath)
			return
		}

		// Re-fetch by stable id, never trust cached claims: the account may
		// have been blocked or deleted mid-session.
		a, err := repo.GetByID(ctx, claims.AccountID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				_ = sessions.Destroy(ctx, claims.AccountID)
				terminate(cfg.LoginPath)
				return
			}
			logger.WithError(err).Error("account lookup failed")
			resp := response.Error[any](c, http.StatusInternalServerError, "account unavailable", nil)
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		if !a.SessionEligible() {
			_ = sessions.Destroy(ctx, claims.AccountID)
			if a.Status() == entity.StatusDeleted {
				terminate(cfg.LoginPath + "?deleted=true")
			} else {
				terminate(cfg.LoginPath + "?blocked=true")
			}
			return
		}

		if err := sessions.Touch(ctx, claims.AccountID); err != nil {
			logger.WithError(err).Warn("session touch failed")
		}

		c.Set(CtxAccountID, a.ID)
		c.Set(CtxAccountEmail, a.Email)
		c.Set(CtxAccountName, a.Name)
		c.Next()
	}
}
