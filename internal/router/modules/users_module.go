package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/userdesk/userdesk/internal/container"
	handlers "github.com/userdesk/userdesk/internal/interface/http"
	"github.com/userdesk/userdesk/internal/interface/middleware"
)

// UsersModule wires the operator roster routes. The status guard already
// covers /Users (it is not on the public list), so the module only adds
// rate limits on top.
type UsersModule struct {
	Handler *handlers.UsersHandler
}

func NewUsersModule(h *handlers.UsersHandler) *UsersModule {
	return &UsersModule{Handler: h}
}

func (m *UsersModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/Users")
	users.Use(
		middleware.RateLimit(container.GetRedis(), 300, time.Minute, middleware.KeyByIP(), nil),
		middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByAccountID(), nil),
	)
	{
		users.GET("", m.Handler.Index)
		users.GET("/Index", m.Handler.Index)
		users.GET("/Search", m.Handler.Search)
		users.POST("/Block", m.Handler.Block)
		users.POST("/Unblock", m.Handler.Unblock)
		users.POST("/Delete", m.Handler.Delete)
		users.POST("/HardDelete", m.Handler.HardDelete)
		users.POST("/Undelete", m.Handler.Undelete)
		users.POST("/UndeleteAll", m.Handler.UndeleteAll)
		users.POST("/DeleteAllUnverified", m.Handler.DeleteAllUnverified)
	}
}
