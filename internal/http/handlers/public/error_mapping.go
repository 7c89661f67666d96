package public

import (
	"errors"

	handlershared "github.com/mintoria-api/internal/http/handlers/shared"
	"github.com/mintoria-api/internal/http/response"
	"github.com/mintoria-api/internal/service"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.target.Error(), nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackMsg, err)
}

var claimTokenErrorRules = []mappedHandlerError{
	{target: service.ErrClaimTokenInvalid, code: response.CodeBadRequest},
	{target: service.ErrClaimTokenExpired, code: response.CodeBadRequest},
	{target: service.ErrSessionConsumed, code: response.CodeConflict},
}

var claimCreateErrorRules = []mappedHandlerError{
	{target: service.ErrNotFound, code: response.CodeNotFound},
	{target: service.ErrNoActiveDrop, code: response.CodeNotFound},
	{target: service.ErrSupplyExhausted, code: response.CodeTooManyRequests},
}

var walletlessStartErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidEmail, code: response.CodeBadRequest},
	{target: service.ErrVerifyCodeTooFrequent, code: response.CodeTooManyRequests},
	{target: service.ErrEmailServiceDisabled, code: response.CodeServiceUnavailable},
	{target: service.ErrEmailServiceNotConfigured, code: response.CodeServiceUnavailable},
	{target: service.ErrEmailRecipientRejected, code: response.CodeBadRequest},
}

var walletlessVerifyErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidEmail, code: response.CodeBadRequest},
	{target: service.ErrVerifyCodeInvalid, code: response.CodeBadRequest},
	{target: service.ErrVerifyCodeExpired, code: response.CodeGone},
	{target: service.ErrVerifyCodeAttemptsExceeded, code: response.CodeTooManyRequests},
}

var mintErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidEmail, code: response.CodeBadRequest},
	{target: service.ErrVerifyCodeInvalid, code: response.CodeBadRequest},
	{target: service.ErrVerifyCodeExpired, code: response.CodeGone},
	{target: service.ErrVerifyCodeAttemptsExceeded, code: response.CodeTooManyRequests},
	{target: service.ErrClaimTokenInvalid, code: response.CodeBadRequest},
	{target: service.ErrClaimTokenExpired, code: response.CodeBadRequest},
	{target: service.ErrSessionConsumed, code: response.CodeConflict},
	{target: service.ErrSupplyExhausted, code: response.CodeTooManyRequests},
	{target: service.ErrChainNotEnabled, code: response.CodeBadRequest},
	{target: service.ErrChainDisabled, code: response.CodeServiceUnavailable},
	{target: service.ErrChainTimeout, code: response.CodeServiceUnavailable},
	{target: service.ErrVaultDecrypt, code: response.CodeInternal},
	{target: service.ErrMintFailed, code: response.CodeInternal},
	{target: service.ErrNotFound, code: response.CodeNotFound},
}

func respondClaimError(c *gin.Context, err error) {
	respondWithMappedError(c, err, claimTokenErrorRules, response.CodeInternal, "领取令牌校验失败")
}

func respondClaimCreateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, claimCreateErrorRules, response.CodeInternal, "创建领取会话失败")
}

func respondWalletlessStartError(c *gin.Context, err error) {
	respondWithMappedError(c, err, walletlessStartErrorRules, response.CodeInternal, "发送验证码失败")
}

func respondWalletlessVerifyError(c *gin.Context, err error) {
	respondWithMappedError(c, err, walletlessVerifyErrorRules, response.CodeInternal, "验证码校验失败")
}

func respondMintError(c *gin.Context, err error) {
	respondWithMappedError(c, err, mintErrorRules, response.CodeInternal, "铸造失败")
}
