package chain

import (
	"context"
	"fmt"
	"strings"

	"github.com/mintoria-api/internal/config"
	"github.com/mintoria-api/internal/constants"
	"github.com/mintoria-api/internal/logger"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
)

// solanaAirdropLamports 测试网络为新托管地址申请的空投额度（0.1 SOL）
const solanaAirdropLamports = 100_000_000

// SolanaAdapter Solana 链适配器，以 Memo 记录的形式把凭证写到接收地址名下
type SolanaAdapter struct {
	cfg       config.SolanaChainConfig
	client    *rpc.Client
	serverKey solana.PrivateKey
	healthy   bool
}

// NewSolanaAdapter 创建 Solana 适配器；密钥缺失时自动生成并告警，初始化失败只降级为不健康
func NewSolanaAdapter(cfg config.SolanaChainConfig) *SolanaAdapter {
	a := &SolanaAdapter{cfg: cfg}

	keyStr := strings.TrimSpace(cfg.ServerKey)
	if keyStr == "" {
		wallet := solana.NewWallet()
		a.serverKey = wallet.PrivateKey
		logger.Warnw("solana_server_key_generated",
			"address", wallet.PublicKey().String(),
			"hint", "persist chains.solana.server_key to keep this signing identity",
		)
	} else {
		parsed, err := solana.PrivateKeyFromBase58(keyStr)
		if err != nil {
			logger.Errorw("solana_server_key_parse_failed", "error", err)
			return a
		}
		a.serverKey = parsed
	}

	rpcURL := strings.TrimSpace(cfg.RPCURL)
	if rpcURL == "" {
		logger.Warnw("solana_rpc_url_missing")
		return a
	}
	a.client = rpc.New(rpcURL)
	a.healthy = true
	logger.Infow("solana_adapter_ready",
		"address", a.serverKey.PublicKey().String(),
		"network", cfg.Network,
	)
	return a
}

// ID 返回链标识
func (a *SolanaAdapter) ID() string {
	return constants.ChainSolana
}

// Network 返回网络环境
func (a *SolanaAdapter) Network() string {
	return a.cfg.Network
}

// Healthy 返回健康状态
func (a *SolanaAdapter) Healthy() bool {
	return a.healthy
}

// ServerAddress 返回服务端签名地址
func (a *SolanaAdapter) ServerAddress() string {
	if a.serverKey == nil {
		return ""
	}
	return a.serverKey.PublicKey().String()
}

// GenerateKeypair 生成一对 Solana 密钥
func (a *SolanaAdapter) GenerateKeypair() (string, string, error) {
	wallet := solana.NewWallet()
	return wallet.PublicKey().String(), wallet.PrivateKey.String(), nil
}

// Mint 构造 Memo 记录交易；托管流程用托管密钥自签，外部流程用服务端密钥
func (a *SolanaAdapter) Mint(ctx context.Context, req MintRequest) (*MintResult, error) {
	if !a.healthy {
		return nil, ErrNotReady
	}

	signer := a.serverKey
	if strings.TrimSpace(req.Secret) != "" {
		parsed, err := solana.PrivateKeyFromBase58(req.Secret)
		if err != nil {
			return nil, fmt.Errorf("solana parse custodial key: %w", err)
		}
		signer = parsed
		if a.cfg.FaucetEnabled {
			a.ensureFunded(ctx, signer.PublicKey())
		}
	}

	payload := fmt.Sprintf("mintoria:%s:%s:%s", req.DisplayName, req.MetadataURI, req.Recipient)
	instruction := solana.NewInstruction(
		solana.MemoProgramID,
		solana.AccountMetaSlice{solana.NewAccountMeta(signer.PublicKey(), false, true)},
		[]byte(payload),
	)

	recent, err := a.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return nil, wrapTimeout(fmt.Errorf("solana latest blockhash: %w", err))
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{instruction},
		recent.Value.Blockhash,
		solana.TransactionPayer(signer.PublicKey()),
	)
	if err != nil {
		return nil, fmt.Errorf("solana build tx: %w", err)
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(signer.PublicKey()) {
			return &signer
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("solana sign tx: %w", err)
	}

	sig, err := a.client.SendTransaction(ctx, tx)
	if err != nil {
		return nil, wrapTimeout(fmt.Errorf("solana send tx: %w", err))
	}

	logger.Infow("solana_mint_dispatched",
		"tx_hash", sig.String(),
		"recipient", req.Recipient,
	)
	return &MintResult{TxHash: sig.String(), Recipient: req.Recipient}, nil
}

// ServerBalance 查询服务端地址余额（单位 SOL）
func (a *SolanaAdapter) ServerBalance(ctx context.Context) (decimal.Decimal, error) {
	if !a.healthy {
		return decimal.Zero, ErrNotReady
	}
	result, err := a.client.GetBalance(ctx, a.serverKey.PublicKey(), rpc.CommitmentFinalized)
	if err != nil {
		return decimal.Zero, wrapTimeout(fmt.Errorf("solana balance: %w", err))
	}
	return decimal.New(int64(result.Value), -9), nil
}

// ExplorerURL 构造区块浏览器链接，非主网追加 cluster 参数
func (a *SolanaAdapter) ExplorerURL(txHash string) string {
	base := strings.TrimRight(a.cfg.ExplorerBaseURL, "/")
	if base == "" {
		return ""
	}
	url := fmt.Sprintf("%s/tx/%s", base, txHash)
	if a.cfg.Network != constants.NetworkMainnet && a.cfg.Network != "" {
		url = fmt.Sprintf("%s?cluster=%s", url, a.cfg.Network)
	}
	return url
}

// ensureFunded 为余额为零的托管地址申请测试网空投，失败仅记录日志
func (a *SolanaAdapter) ensureFunded(ctx context.Context, pubkey solana.PublicKey) {
	balance, err := a.client.GetBalance(ctx, pubkey, rpc.CommitmentFinalized)
	if err != nil {
		logger.Warnw("solana_funding_check_failed", "address", pubkey.String(), "error", err)
		return
	}
	if balance.Value > 0 {
		return
	}
	if _, err := a.client.RequestAirdrop(ctx, pubkey, solanaAirdropLamports, rpc.CommitmentFinalized); err != nil {
		logger.Warnw("solana_airdrop_failed", "address", pubkey.String(), "error", err)
		return
	}
	logger.Infow("solana_airdrop_requested", "address", pubkey.String(), "lamports", solanaAirdropLamports)
}
