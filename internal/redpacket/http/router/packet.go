package router

import (
	"github.com/gin-gonic/gin"
	"redpacket.com/internal/redpacket/handler"
)

func Packet(api *gin.RouterGroup, auth gin.HandlerFunc, packets *handler.Packet, claims *handler.Claim) {
	p := api.Group("/packets")
	{
		p.GET("/:id", packets.View)
		p.POST("", auth, packets.Register)
		p.GET("", auth, packets.List)
		p.POST("/:id/claim", auth, claims.Claim)
		p.POST("/:id/confirm", auth, claims.Confirm)
	}
}
