package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/userdesk/userdesk/internal/application"
	"github.com/userdesk/userdesk/internal/domain/entity"
	"github.com/userdesk/userdesk/internal/interface/middleware"
	"github.com/userdesk/userdesk/pkg/helpers"
	"github.com/userdesk/userdesk/pkg/response"
	"github.com/userdesk/userdesk/pkg/validation"
)

// UsersHandler exposes the operator roster: listing every account and the
// batch lifecycle transitions. Every signed-in account is an operator; there
// is no privileged role.
type UsersHandler struct {
	Svc     *application.RosterService
	Logger  *logrus.Logger
	Cookies *helpers.CookieManager
}

func NewUsersHandler(svc *application.RosterService, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *UsersHandler {
	return &UsersHandler{Svc: svc, Logger: logger, Cookies: helpers.NewCookieManager(cookieDomain, cookieSecure)}
}

type idsRequest struct {
	IDs []string `json:"ids" binding:"omitempty,dive,uuid"`
}

type restoreRequest struct {
	IDs        []string `json:"ids" binding:"omitempty,dive,uuid"`
	UnblockAll bool     `json:"unblock_all"`
}

type restoreAllRequest struct {
	UnblockAll bool `json:"unblock_all"`
}

func rosterRow(a *entity.Account, selfID string) gin.H {
	return gin.H{
		"id":                a.ID,
		"name":              a.Name,
		"email":             a.Email,
		"status":            a.Status().String(),
		"is_blocked":        a.IsBlocked,
		"is_deleted":        a.IsDeleted,
		"is_verified":       a.IsVerified,
		"registration_time": a.RegistrationTime,
		"last_login_time":   a.LastLoginTime,
		"is_self":           a.ID == selfID,
	}
}

// Index GET /Users. Lists the full roster, worst status first.
func (h *UsersHandler) Index(c *gin.Context) {
	accounts, err := h.Svc.List(c.Request.Context())
	if err != nil {
		h.Logger.WithError(err).Error("roster list failed")
		resp := response.Error[any](c, http.StatusInternalServerError, "roster unavailable", nil)
		c.JSON(resp.Status, resp)
		return
	}

	selfID := c.GetString(middleware.CtxAccountID)
	rows := make([]gin.H, 0, len(accounts))
	for _, a := range accounts {
		rows = append(rows, rosterRow(a, selfID))
	}
	resp := response.Success(c, http.StatusOK, rows, "roster", map[string]any{"total": len(rows)})
	c.JSON(resp.Status, resp)
}

// Search GET /Users/Search?q=&size=
func (h *UsersHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		resp := response.Error[any](c, http.StatusBadRequest, "missing query", nil)
		c.JSON(resp.Status, resp)
		return
	}
	size := 10
	if v, ok := c.GetQuery("size"); ok {
		if n, err := parsePositiveInt(v); err == nil {
			size = n
		}
	}
	hits, err := h.Svc.Search(c.Request.Context(), q, size)
	if err != nil {
		h.Logger.WithError(err).Error("roster search failed")
		resp := response.Error[any](c, http.StatusInternalServerError, "search unavailable", nil)
		c.JSON(resp.Status, resp)
		return
	}
	resp := response.Success(c, http.StatusOK, hits, "search results", map[string]any{"total": len(hits)})
	c.JSON(resp.Status, resp)
}

// Block POST /Users/Block
func (h *UsersHandler) Block(c *gin.Context) {
	req, ok := h.bindIDs(c)
	if !ok {
		return
	}
	self, err := h.Svc.Block(c.Request.Context(), c.GetString(middleware.CtxAccountID), req.IDs)
	if err != nil {
		h.fail(c, err, "block failed")
		return
	}
	h.batchOK(c, "accounts blocked", self, "/Account/Login?blocked=true")
}

// Unblock POST /Users/Unblock
func (h *UsersHandler) Unblock(c *gin.Context) {
	req, ok := h.bindIDs(c)
	if !ok {
		return
	}
	if err := h.Svc.Unblock(c.Request.Context(), req.IDs); err != nil {
		h.fail(c, err, "unblock failed")
		return
	}
	h.batchOK(c, "accounts unblocked", false, "")
}

// Delete POST /Users/Delete. Soft or physical depending on configuration.
func (h *UsersHandler) Delete(c *gin.Context) {
	req, ok := h.bindIDs(c)
	if !ok {
		return
	}
	self, err := h.Svc.Delete(c.Request.Context(), c.GetString(middleware.CtxAccountID), req.IDs)
	if err != nil {
		h.fail(c, err, "delete failed")
		return
	}
	h.batchOK(c, "accounts deleted", self, "/Account/Login?deleted=true")
}

// HardDelete POST /Users/HardDelete. Always physical.
func (h *UsersHandler) HardDelete(c *gin.Context) {
	req, ok := h.bindIDs(c)
	if !ok {
		return
	}
	self, err := h.Svc.HardDelete(c.Request.Context(), c.GetString(middleware.CtxAccountID), req.IDs)
	if err != nil {
		h.fail(c, err, "delete failed")
		return
	}
	h.batchOK(c, "accounts deleted", self, "/Account/Login?deleted=true")
}

// Undelete POST /Users/Undelete
func (h *UsersHandler) Undelete(c *gin.Context) {
	var req restoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp := response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		c.JSON(resp.Status, resp)
		return
	}
	if err := h.Svc.Restore(c.Request.Context(), req.IDs, req.UnblockAll); err != nil {
		h.fail(c, err, "restore failed")
		return
	}
	h.batchOK(c, "accounts restored", false, "")
}

// UndeleteAll POST /Users/UndeleteAll
func (h *UsersHandler) UndeleteAll(c *gin.Context) {
	var req restoreAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// Body is optional; an empty body restores with flags preserved.
		req = restoreAllRequest{}
	}
	if err := h.Svc.RestoreAll(c.Request.Context(), req.UnblockAll); err != nil {
		h.fail(c, err, "restore failed")
		return
	}
	h.batchOK(c, "accounts restored", false, "")
}

// DeleteAllUnverified POST /Users/DeleteAllUnverified
func (h *UsersHandler) DeleteAllUnverified(c *gin.Context) {
	n, err := h.Svc.PurgeUnverified(c.Request.Context())
	if err != nil {
		h.fail(c, err, "purge failed")
		return
	}
	resp := response.Success(c, http.StatusOK, gin.H{"purged": n}, "unverified accounts removed", nil)
	c.JSON(resp.Status, resp)
}

func (h *UsersHandler) bindIDs(c *gin.Context) (idsRequest, bool) {
	var req idsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp := response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		c.JSON(resp.Status, resp)
		return idsRequest{}, false
	}
	return req, true
}

// batchOK responds to a completed batch transition. When the actor was among
// the targets their session is already gone, so the cookie is cleared and the
// client is told where to land.
func (h *UsersHandler) batchOK(c *gin.Context, msg string, self bool, redirect string) {
	data := gin.H{"self_affected": self}
	if self {
		h.Cookies.ClearSession(c)
		data["redirect"] = redirect
	}
	resp := response.Success(c, http.StatusOK, data, msg, nil)
	c.JSON(resp.Status, resp)
}

func (h *UsersHandler) fail(c *gin.Context, err error, msg string) {
	h.Logger.WithError(err).Error(msg)
	resp := response.Error[any](c, http.StatusInternalServerError, msg, nil)
	c.JSON(resp.Status, resp)
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
