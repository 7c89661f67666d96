package chain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// 链适配器统一错误
var (
	// ErrDisabled 链被配置禁用或未注册，调用方应立即失败不做任何网络 I/O
	ErrDisabled = errors.New("chain disabled")
	// ErrTimeout 链上调用超出调度超时
	ErrTimeout = errors.New("chain call timeout")
	// ErrNotReady 适配器未完成启动引导（服务端密钥未就绪）
	ErrNotReady = errors.New("chain adapter not ready")
)

// MintRequest 一次铸造请求
type MintRequest struct {
	Recipient   string // 接收地址（链原生格式）
	DisplayName string // 展示名称（写入链上备注/元数据）
	MetadataURI string // 元数据地址
	Secret      string // 可选：托管私钥明文，仅本次调用使用；为空时使用服务端密钥签名
}

// MintResult 一次铸造结果
type MintResult struct {
	TxHash    string // 链上交易哈希
	Recipient string // 实际接收地址
}

// wrapTimeout 将上下文超时归一为 ErrTimeout，其余错误原样返回
func wrapTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}

// Adapter 链适配器统一契约，每条链一个实现，彼此独立失败
type Adapter interface {
	// ID 返回链标识（evm/solana/stellar）
	ID() string
	// Mint 在链上铸造一份凭证并返回交易哈希，不做自动重试
	Mint(ctx context.Context, req MintRequest) (*MintResult, error)
	// GenerateKeypair 生成一对链原生密钥，返回公开地址与私钥明文
	GenerateKeypair() (address string, secret string, err error)
	// ServerAddress 返回服务端签名地址
	ServerAddress() string
	// ServerBalance 查询服务端地址余额（链原生单位）
	ServerBalance(ctx context.Context) (decimal.Decimal, error)
	// ExplorerURL 构造交易的区块浏览器链接
	ExplorerURL(txHash string) string
	// Healthy 启动引导成功且可服务时为 true
	Healthy() bool
	// Network 返回网络环境（mainnet/testnet/devnet）
	Network() string
}
