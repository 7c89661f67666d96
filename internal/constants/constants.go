package constants

// 链标识常量
const (
	ChainEVM     = "evm"
	ChainSolana  = "solana"
	ChainStellar = "stellar"
)

// SupportedChains 支持的链列表（顺序固定，用于预生成托管钱包）
var SupportedChains = []string{ChainEVM, ChainSolana, ChainStellar}

// Drop 状态常量
const (
	DropStatusDraft     = "draft"
	DropStatusPublished = "published"
)

// 领取会话状态常量
const (
	ClaimSessionStatusActive   = "active"
	ClaimSessionStatusConsumed = "consumed"
	ClaimSessionStatusExpired  = "expired"
)

// 铸造记录状态常量
const (
	MintStatusPending   = "pending"
	MintStatusConfirmed = "confirmed"
	MintStatusFailed    = "failed"
)

// 铸造来源常量
const (
	MintSourceWalletless = "walletless"
	MintSourceExternal   = "external"
)

// 验证码用途常量
const (
	VerifyPurposeWalletless = "walletless"
)

// 队列名称常量
const (
	QueueDefault = "default"
)

// 异步任务类型常量
const (
	TaskVerifyCodeEmail    = "email:verify_code"
	TaskMintConfirmedEmail = "email:mint_confirmed"
)

// 网络环境常量
const (
	NetworkMainnet = "mainnet"
	NetworkTestnet = "testnet"
	NetworkDevnet  = "devnet"
)
