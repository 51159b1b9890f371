package handler

import (
	"github.com/gin-gonic/gin"
	"redpacket.com/pkg/common"
)

type Admin struct {
	Packets PacketService
}

// Release POST /api/admin/packets/:id/claims/:identity/release
func (h *Admin) Release(c *gin.Context) {
	released, err := h.Packets.Release(c.Request.Context(), c.Param("id"), c.Param("identity"))
	if err != nil {
		common.FailErr(c, err)
		return
	}
	common.Success(c, gin.H{"released": released})
}
