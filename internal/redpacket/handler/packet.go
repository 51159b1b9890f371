package handler

import (
	"encoding/json"
	"strconv"

	"github.com/gin-gonic/gin"
	"redpacket.com/internal/redpacket/service"
	"redpacket.com/pkg/common"
	"redpacket.com/pkg/xerr"
)

type Packet struct {
	Packets PacketService
}

type registerReq struct {
	PacketID       json.Number `json:"packetId" binding:"required"`
	CreatorAddress string      `json:"creatorAddress" binding:"required"`
	TxHash         string      `json:"txHash" binding:"required"`
}

// View GET /api/packets/:id
func (h *Packet) View(c *gin.Context) {
	view, err := h.Packets.View(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.FailErr(c, err)
		return
	}
	common.Success(c, view)
}

// Register POST /api/packets
func (h *Packet) Register(c *gin.Context) {
	id, ok := identityFrom(c)
	if !ok {
		common.FailErr(c, xerr.NewErrCode(xerr.Unauthorized))
		return
	}
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.FailErr(c, xerr.New(xerr.RequestParamsError, "packetId, creatorAddress and txHash are required"))
		return
	}
	// 合约里是 uint256，实际不会超过 uint64
	packetID, err := strconv.ParseUint(req.PacketID.String(), 10, 64)
	if err != nil {
		common.FailErr(c, xerr.New(xerr.RequestParamsError, "invalid packetId"))
		return
	}
	res, err := h.Packets.Register(c.Request.Context(), service.RegisterRequest{
		PacketID:       packetID,
		CreatorAddress: req.CreatorAddress,
		TxHash:         req.TxHash,
		Identity:       id,
	})
	if err != nil {
		common.FailErr(c, err)
		return
	}
	common.Success(c, res)
}

// List GET /api/packets?page=1
func (h *Packet) List(c *gin.Context) {
	id, ok := identityFrom(c)
	if !ok {
		common.FailErr(c, xerr.NewErrCode(xerr.Unauthorized))
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	res, err := h.Packets.List(c.Request.Context(), id, page)
	if err != nil {
		common.FailErr(c, err)
		return
	}
	common.Success(c, res)
}
