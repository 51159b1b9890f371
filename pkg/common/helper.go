package common

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"redpacket.com/pkg/logger"
	"redpacket.com/pkg/xerr"
)

// 定义http返回格式
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Reason  string      `json:"reason,omitempty"`
	Data    interface{} `json:"data"`
}

func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: http.StatusText(http.StatusOK),
		Data:    data,
	})
}

func Fail(c *gin.Context, httpStatus int, code int, message string) {
	FailReason(c, httpStatus, code, "", message)
}

func FailReason(c *gin.Context, httpStatus int, code int, reason, message string) {
	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
		Reason:  reason,
		Data:    nil,
	})
}

// FailErr 业务错误按错误码映射 HTTP 状态，reason 原样透出
// 非业务错误只回 internal error，详细信息只进日志
func FailErr(c *gin.Context, err error) {
	ce, ok := xerr.As(err)
	if !ok {
		logger.Error(c, "http unknown error",
			zap.String("request_id", RequestIDFromGin(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
			zap.ByteString("stack", debug.Stack()),
		)
		Fail(c, http.StatusInternalServerError, xerr.ServerCommonError, "internal error")
		return
	}

	httpStatus := HTTPStatus(ce.Code)
	fields := []zap.Field{
		zap.String("request_id", RequestIDFromGin(c)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("biz_code", ce.Code),
		zap.String("reason", ce.Reason),
		zap.String("message", ce.Msg),
	}
	if ce.Cause != nil {
		fields = append(fields, zap.Error(ce.Cause))
	}
	// 可预期的拒绝打 warn，依赖故障打 error
	if httpStatus >= http.StatusInternalServerError {
		logger.Error(c, "http error", fields...)
	} else {
		logger.Warn(c, "http rejected", fields...)
	}
	FailReason(c, httpStatus, ce.Code, ce.Reason, ce.Msg)
}

// HTTPStatus 业务码 -> HTTP 状态码
func HTTPStatus(code int) int {
	switch code {
	case xerr.RequestParamsError:
		return http.StatusBadRequest
	case xerr.Unauthorized:
		return http.StatusUnauthorized
	case xerr.RecordNotFound:
		return http.StatusNotFound
	case xerr.StateConflict:
		return http.StatusGone
	case xerr.EligibilityFailure, xerr.FollowFailure, xerr.AlreadyReserved:
		return http.StatusForbidden
	case xerr.UpstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
