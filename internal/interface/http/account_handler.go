package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/userdesk/userdesk/internal/application"
	"github.com/userdesk/userdesk/internal/domain/entity"
	"github.com/userdesk/userdesk/pkg/helpers"
	"github.com/userdesk/userdesk/pkg/response"
	"github.com/userdesk/userdesk/pkg/validation"
)

// forgotPasswordMessage is returned for every forgot-password request,
// whether or not the email exists, to prevent account enumeration.
const forgotPasswordMessage = "If the email is registered, a password reset link has been sent"

type AccountHandler struct {
	Svc     *application.AccountService
	Logger  *logrus.Logger
	Cookies *helpers.CookieManager
}

func NewAccountHandler(svc *application.AccountService, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *AccountHandler {
	return &AccountHandler{Svc: svc, Logger: logger, Cookies: helpers.NewCookieManager(cookieDomain, cookieSecure)}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required,max=200"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,pwd"`
}

func accountSummary(a *entity.Account) gin.H {
	return gin.H{
		"id":                a.ID,
		"name":              a.Name,
		"email":             a.Email,
		"status":            a.Status().String(),
		"registration_time": a.RegistrationTime,
	}
}

// Register POST /Account/Register
func (h *AccountHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp := response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		c.JSON(resp.Status, resp)
		return
	}

	a, err := h.Svc.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, application.ErrEmailTaken) {
			resp := response.Error[any](c, http.StatusConflict, "registration failed", map[string]string{"email": "email already exists"})
			c.JSON(resp.Status, resp)
			return
		}
		h.Logger.WithError(err).Error("register failed")
		resp := response.Error[any](c, http.StatusInternalServerError, "registration failed", nil)
		c.JSON(resp.Status, resp)
		return
	}

	grant, err := h.Svc.StartSession(c.Request.Context(), a)
	if err != nil {
		h.Logger.WithError(err).Error("session start failed")
		resp := response.Error[any](c, http.StatusInternalServerError, "registration failed", nil)
		c.JSON(resp.Status, resp)
		return
	}
	h.Cookies.SetSession(c, grant.Token, grant.ExpiresAt)

	resp := response.Success(c, http.StatusCreated, accountSummary(a), "registered", nil)
	c.JSON(resp.Status, resp)
}

// Login POST /Account/Login
func (h *AccountHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp := response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		c.JSON(resp.Status, resp)
		return
	}

	a, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrInvalidCredentials):
			resp := response.Error[any](c, http.StatusUnauthorized, application.ErrInvalidCredentials.Error(), nil)
			c.JSON(resp.Status, resp)
		case errors.Is(err, application.ErrAccountBlocked):
			resp := response.Error[any](c, http.StatusForbidden, application.ErrAccountBlocked.Error(), nil)
			c.JSON(resp.Status, resp)
		case errors.Is(err, application.ErrAccountDeleted):
			resp := response.Error[any](c, http.StatusForbidden, application.ErrAccountDeleted.Error(), nil)
			c.JSON(resp.Status, resp)
		default:
			h.Logger.WithError(err).Error("login failed")
			resp := response.Error[any](c, http.StatusInternalServerError, "login failed", nil)
			c.JSON(resp.Status, resp)
		}
		return
	}

	grant, err := h.Svc.StartSession(c.Request.Context(), a)
	if err != nil {
		h.Logger.WithError(err).Error("session start failed")
		resp := response.Error[any](c, http.StatusInternalServerError, "login failed", nil)
		c.JSON(resp.Status, resp)
		return
	}
	h.Cookies.SetSession(c, grant.Token, grant.ExpiresAt)

	resp := response.Success(c, http.StatusOK, accountSummary(a), "login successful", map[string]any{"expires_at": grant.ExpiresAt})
	c.JSON(resp.Status, resp)
}

// Logout POST /Account/Logout. Always succeeds; a missing or invalid cookie
// still results in cleared client state.
func (h *AccountHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie(helpers.SessionCookieName); err == nil && token != "" {
		if claims, perr := h.Svc.Tokens.Parse(token); perr == nil {
			h.Svc.EndSession(c.Request.Context(), claims.AccountID)
		}
	}
	h.Cookies.ClearSession(c)
	resp := response.Success[any](c, http.StatusOK, gin.H{"logged_out": true}, "logged out", nil)
	c.JSON(resp.Status, resp)
}

// ForgotPassword POST /Account/ForgotPassword
func (h *AccountHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp := response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		c.JSON(resp.Status, resp)
		return
	}

	if err := h.Svc.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		h.Logger.WithError(err).Error("forgot password failed")
		resp := response.Error[any](c, http.StatusInternalServerError, "request failed", nil)
		c.JSON(resp.Status, resp)
		return
	}
	resp := response.Success[any](c, http.StatusOK, nil, forgotPasswordMessage, nil)
	c.JSON(resp.Status, resp)
}

// ResetPasswordForm GET /Account/ResetPassword?token=
// Reports whether the token is still pending so a front-end can show the form.
func (h *AccountHandler) ResetPasswordForm(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		resp := response.Error[any](c, http.StatusBadRequest, application.ErrTokenInvalid.Error(), nil)
		c.JSON(resp.Status, resp)
		return
	}
	if err := h.Svc.PeekResetToken(c.Request.Context(), token); err != nil {
		if errors.Is(err, application.ErrTokenInvalid) {
			resp := response.Error[any](c, http.StatusBadRequest, application.ErrTokenInvalid.Error(), nil)
			c.JSON(resp.Status, resp)
			return
		}
		h.Logger.WithError(err).Error("reset token check failed")
		resp := response.Error[any](c, http.StatusInternalServerError, "request failed", nil)
		c.JSON(resp.Status, resp)
		return
	}
	resp := response.Success[any](c, http.StatusOK, gin.H{"token_valid": true}, "token valid", nil)
	c.JSON(resp.Status, resp)
}

// ResetPassword POST /Account/ResetPassword
func (h *AccountHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp := response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		c.JSON(resp.Status, resp)
		return
	}

	if err := h.Svc.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		if errors.Is(err, application.ErrTokenInvalid) {
			resp := response.Error[any](c, http.StatusBadRequest, application.ErrTokenInvalid.Error(), nil)
			c.JSON(resp.Status, resp)
			return
		}
		h.Logger.WithError(err).Error("password reset failed")
		resp := response.Error[any](c, http.StatusInternalServerError, "request failed", nil)
		c.JSON(resp.Status, resp)
		return
	}
	resp := response.Success[any](c, http.StatusOK, gin.H{"reset": true}, "password updated", nil)
	c.JSON(resp.Status, resp)
}

// VerifyEmail GET /Account/VerifyEmail?token=
func (h *AccountHandler) VerifyEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		resp := response.Error[any](c, http.StatusBadRequest, application.ErrTokenInvalid.Error(), nil)
		c.JSON(resp.Status, resp)
		return
	}
	a, err := h.Svc.VerifyEmail(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, application.ErrTokenInvalid) {
			resp := response.Error[any](c, http.StatusBadRequest, application.ErrTokenInvalid.Error(), nil)
			c.JSON(resp.Status, resp)
			return
		}
		h.Logger.WithError(err).Error("email verification failed")
		resp := response.Error[any](c, http.StatusInternalServerError, "request failed", nil)
		c.JSON(resp.Status, resp)
		return
	}
	resp := response.Success(c, http.StatusOK, gin.H{"verified": true, "email": a.Email}, "email verified", nil)
	c.JSON(resp.Status, resp)
}
