package service

import "errors"

// 服务层统一错误定义
var (
	// 通用
	ErrNotFound   = errors.New("记录不存在")
	ErrSlugExists = errors.New("标识已被占用")

	// 目录
	ErrProjectInUse  = errors.New("项目下仍有地点，无法删除")
	ErrLocationInUse = errors.New("地点下仍有发放，无法删除")
	ErrDropHasMints  = errors.New("发放已有铸造记录，无法删除")

	// 认证
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrInvalidEmail       = errors.New("邮箱格式不正确")

	// 邮件
	ErrEmailServiceDisabled      = errors.New("邮件服务未启用")
	ErrEmailServiceNotConfigured = errors.New("邮件服务未配置")
	ErrEmailRecipientRejected    = errors.New("收件地址被拒收")

	// 验证码
	ErrVerifyCodeInvalid          = errors.New("验证码错误")
	ErrVerifyCodeExpired          = errors.New("验证码已过期")
	ErrVerifyCodeTooFrequent      = errors.New("验证码发送过于频繁")
	ErrVerifyCodeAttemptsExceeded = errors.New("验证码尝试次数过多")

	// 领取会话
	ErrNoActiveDrop      = errors.New("当前地点没有进行中的发放")
	ErrSupplyExhausted   = errors.New("发放名额已领完")
	ErrClaimTokenInvalid = errors.New("领取令牌无效")
	ErrClaimTokenExpired = errors.New("领取令牌已过期")
	ErrSessionConsumed   = errors.New("领取令牌已被使用")

	// 托管钱包
	ErrVaultSecretMissing = errors.New("托管加密密钥未配置")
	ErrVaultDecrypt       = errors.New("托管私钥解密失败")

	// 铸造
	ErrChainDisabled   = errors.New("该链当前不可用")
	ErrChainTimeout    = errors.New("链上调用超时")
	ErrChainNotEnabled = errors.New("该链未对当前发放启用")
	ErrMintFailed      = errors.New("铸造失败，请稍后重试")
)
