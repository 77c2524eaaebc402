package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/userdesk/userdesk/internal/container"
	handlers "github.com/userdesk/userdesk/internal/interface/http"
	"github.com/userdesk/userdesk/internal/interface/middleware"
)

// AccountModule wires the self-service account routes. All of them are
// public: the status guard lets the /Account prefix through.
type AccountModule struct {
	Handler *handlers.AccountHandler
}

func NewAccountModule(h *handlers.AccountHandler) *AccountModule {
	return &AccountModule{Handler: h}
}

func (m *AccountModule) Register(rg *gin.RouterGroup) {
	// Credential and token endpoints get tight per-IP limits; the
	// forgot-password initiator is the tightest since each hit can queue mail.
	loginLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	registerLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	forgotLimiter := middleware.RateLimit(container.GetRedis(), 5, time.Minute, middleware.KeyByIPAndPath(), nil)
	tokenLimiter := middleware.RateLimit(container.GetRedis(), 30, time.Minute, middleware.KeyByIPAndPath(), nil)

	rg.POST("/Account/Register", registerLimiter, m.Handler.Register)
	rg.POST("/Account/Login", loginLimiter, m.Handler.Login)
	rg.POST("/Account/Logout", m.Handler.Logout)
	rg.POST("/Account/ForgotPassword", forgotLimiter, m.Handler.ForgotPassword)
	rg.GET("/Account/ResetPassword", tokenLimiter, m.Handler.ResetPasswordForm)
	rg.POST("/Account/ResetPassword", tokenLimiter, m.Handler.ResetPassword)
	rg.GET("/Account/VerifyEmail", tokenLimiter, m.Handler.VerifyEmail)
}
