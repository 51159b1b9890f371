package router

import (
	"github.com/gin-gonic/gin"
	"redpacket.com/internal/redpacket/handler"
)

func Admin(api *gin.RouterGroup, guard gin.HandlerFunc, admin *handler.Admin) {
	a := api.Group("/admin", guard)
	{
		a.POST("/packets/:id/claims/:identity/release", admin.Release)
	}
}
