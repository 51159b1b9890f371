package handler

import (
	"github.com/gin-gonic/gin"
	"redpacket.com/internal/redpacket/service"
	"redpacket.com/pkg/common"
	"redpacket.com/pkg/xerr"
)

type Claim struct {
	Claims     ClaimService
	Reconciler Reconciler
}

type claimReq struct {
	ClaimerAddress string `json:"claimerAddress" binding:"required"`
}

type confirmReq struct {
	TxHash string `json:"txHash" binding:"required"`
}

// Claim POST /api/packets/:id/claim
func (h *Claim) Claim(c *gin.Context) {
	id, ok := identityFrom(c)
	if !ok {
		common.FailErr(c, xerr.NewErrCode(xerr.Unauthorized))
		return
	}
	var req claimReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.FailErr(c, xerr.New(xerr.RequestParamsError, "claimerAddress is required"))
		return
	}
	voucher, err := h.Claims.Claim(c.Request.Context(), service.ClaimRequest{
		PublicID:       c.Param("id"),
		Identity:       id,
		ClaimerAddress: req.ClaimerAddress,
	})
	if err != nil {
		common.FailErr(c, err)
		return
	}
	common.Success(c, voucher)
}

// Confirm POST /api/packets/:id/confirm
func (h *Claim) Confirm(c *gin.Context) {
	id, ok := identityFrom(c)
	if !ok {
		common.FailErr(c, xerr.NewErrCode(xerr.Unauthorized))
		return
	}
	var req confirmReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.FailErr(c, xerr.New(xerr.RequestParamsError, "txHash is required"))
		return
	}
	amount, err := h.Reconciler.Confirm(c.Request.Context(), c.Param("id"), id, req.TxHash)
	if err != nil {
		common.FailErr(c, err)
		return
	}
	common.Success(c, gin.H{"amount": amount})
}
