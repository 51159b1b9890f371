package xerr

import (
	"errors"
	"fmt"
)

// 常用错误码定义
const (
	OK                  = 200
	RequestParamsError  = 400 // 参数错误 (地址/哈希格式不对)
	Unauthorized        = 401
	RecordNotFound      = 404
	StateConflict       = 410 // 红包已过期 / 已领完 / 已退款，终态不可重试
	ServerCommonError   = 500
	DbError             = 501
	UpstreamUnavailable = 503 // 社交 API / 链上 RPC 不可用，用户可重试

	EligibilityFailure = 4031 // 风控不通过: 账号太新/粉丝太少/资料缺失/限流/重复领取
	FollowFailure      = 4032 // 未关注创建者或平台账号
	AlreadyReserved    = 4033 // 并发插入输掉了竞争
)

// CodeError 业务错误，Reason 是给前端的机器可读原因
type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Reason string `json:"reason,omitempty"`
	Cause  error  `json:"-"`
}

func (e *CodeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("ErrCode:%d, Reason:%s, Msg:%s", e.Code, e.Reason, e.Msg)
	}
	return fmt.Sprintf("ErrCode:%d, Msg:%s", e.Code, e.Msg)
}

func (e *CodeError) Unwrap() error { return e.Cause }

func New(code int, msg string) error {
	return &CodeError{Code: code, Msg: msg}
}

func NewErrCode(code int) error {
	return &CodeError{Code: code, Msg: MapErrMsg(code)}
}

// NewReason 带机器可读原因的业务错误
func NewReason(code int, reason, msg string) error {
	return &CodeError{Code: code, Msg: msg, Reason: reason}
}

// Wrap 保留底层错误，方便日志里打出来
func Wrap(cause error, code int, msg string) error {
	if cause == nil {
		return nil
	}
	return &CodeError{Code: code, Msg: msg, Cause: cause}
}

// WrapReason 同 Wrap，附带 reason
func WrapReason(cause error, code int, reason, msg string) error {
	if cause == nil {
		return nil
	}
	return &CodeError{Code: code, Msg: msg, Reason: reason, Cause: cause}
}

func As(err error) (*CodeError, bool) {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// CodeOf 非业务错误一律视为 500
func CodeOf(err error) int {
	if err == nil {
		return OK
	}
	if ce, ok := As(err); ok {
		return ce.Code
	}
	return ServerCommonError
}

func ReasonOf(err error) string {
	if ce, ok := As(err); ok {
		return ce.Reason
	}
	return ""
}

// Is 判断错误码
func Is(err error, code int) bool {
	ce, ok := As(err)
	return ok && ce.Code == code
}

func MapErrMsg(code int) string {
	switch code {
	case ServerCommonError:
		return "internal error"
	case RequestParamsError:
		return "invalid request"
	case Unauthorized:
		return "unauthorized"
	case DbError:
		return "database busy"
	case RecordNotFound:
		return "record not found"
	case StateConflict:
		return "packet is no longer claimable"
	case UpstreamUnavailable:
		return "upstream unavailable, please retry"
	case EligibilityFailure:
		return "anti-bot check failed"
	case FollowFailure:
		return "follow requirement not met"
	case AlreadyReserved:
		return "already claimed"
	default:
		return "unknown error"
	}
}
