package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"

	"driftmail/backend/internal/domain"
	"driftmail/backend/internal/service"
	"driftmail/backend/internal/storage"
)

// 错误消息映射表（业务错误 -> 中文消息）
var errorMessages = map[error]string{
	domain.ErrInvalidLocalPart: "邮箱前缀格式无效",
	domain.ErrLocalPartTooLong: "邮箱前缀过长",
	domain.ErrInvalidDomain:    "域名不在允许列表中",
	domain.ErrAddressTooLong:   "邮箱地址过长",

	storage.ErrMailboxNotFound: "邮箱不存在或已过期",
	storage.ErrMailboxExists:   "邮箱地址已被占用",

	service.ErrUnknownRecipient: "收件地址不存在或已过期",
	service.ErrMalformedEvent:   "邮件事件格式无效",
	service.ErrTemporaryFailure: "暂时性故障，请稍后重试",
}

// 通用错误消息
const (
	MsgInvalidRequest = "请求参数格式错误"
	MsgInvalidTTL     = "过期时长格式无效"
	MsgRateLimited    = "请求过于频繁，请稍后重试"
	MsgInternalError  = "服务器内部错误，请稍后重试"
)

// errorMessage 获取错误对应的提示消息。
func errorMessage(err error) string {
	for sentinel, msg := range errorMessages {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	return err.Error()
}

// respondError 将业务错误映射为对应的 HTTP 响应。
//
// 校验失败与未知地址作为类型化结果返回给调用方；
// 暂时性存储故障映射为 503，调用方可按需重试。
func respondError(c *gin.Context, err error) {
	msg := errorMessage(err)

	switch {
	case errors.Is(err, domain.ErrInvalidLocalPart),
		errors.Is(err, domain.ErrLocalPartTooLong),
		errors.Is(err, domain.ErrInvalidDomain),
		errors.Is(err, domain.ErrAddressTooLong),
		errors.Is(err, service.ErrMalformedEvent):
		BadRequest(c, msg)
	case errors.Is(err, storage.ErrMailboxNotFound),
		errors.Is(err, service.ErrUnknownRecipient):
		NotFound(c, msg)
	case errors.Is(err, storage.ErrMailboxExists):
		Conflict(c, msg)
	case errors.Is(err, service.ErrTemporaryFailure):
		ServiceUnavailable(c, msg)
	default:
		InternalError(c, MsgInternalError)
	}
}
