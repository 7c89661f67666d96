package chain

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mintoria-api/internal/config"
	"github.com/mintoria-api/internal/constants"
	"github.com/mintoria-api/internal/logger"

	"github.com/shopspring/decimal"
	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
	"github.com/stellar/go/txnbuild"
)

// StellarAdapter Stellar 链适配器，以 ManageData 条目的形式把凭证写到账户名下
type StellarAdapter struct {
	cfg        config.StellarChainConfig
	client     *horizonclient.Client
	serverKey  *keypair.Full
	passphrase string
	healthy    bool
}

// NewStellarAdapter 创建 Stellar 适配器；密钥缺失时自动生成并告警，初始化失败只降级为不健康
func NewStellarAdapter(cfg config.StellarChainConfig) *StellarAdapter {
	a := &StellarAdapter{cfg: cfg}

	if cfg.Network == constants.NetworkMainnet {
		a.passphrase = network.PublicNetworkPassphrase
	} else {
		a.passphrase = network.TestNetworkPassphrase
	}

	seed := strings.TrimSpace(cfg.ServerKey)
	if seed == "" {
		generated, err := keypair.Random()
		if err != nil {
			logger.Errorw("stellar_server_key_generate_failed", "error", err)
			return a
		}
		a.serverKey = generated
		logger.Warnw("stellar_server_key_generated",
			"address", generated.Address(),
			"hint", "persist chains.stellar.server_key to keep this signing identity",
		)
	} else {
		parsed, err := keypair.ParseFull(seed)
		if err != nil {
			logger.Errorw("stellar_server_key_parse_failed", "error", err)
			return a
		}
		a.serverKey = parsed
	}

	horizonURL := strings.TrimSpace(cfg.HorizonURL)
	if horizonURL == "" {
		logger.Warnw("stellar_horizon_url_missing")
		return a
	}
	a.client = &horizonclient.Client{HorizonURL: horizonURL}

	if cfg.FaucetEnabled && cfg.Network != constants.NetworkMainnet {
		a.ensureFunded(a.serverKey.Address())
	}

	a.healthy = true
	logger.Infow("stellar_adapter_ready",
		"address", a.serverKey.Address(),
		"network", cfg.Network,
	)
	return a
}

// ID 返回链标识
func (a *StellarAdapter) ID() string {
	return constants.ChainStellar
}

// Network 返回网络环境
func (a *StellarAdapter) Network() string {
	return a.cfg.Network
}

// Healthy 返回健康状态
func (a *StellarAdapter) Healthy() bool {
	return a.healthy
}

// ServerAddress 返回服务端签名地址
func (a *StellarAdapter) ServerAddress() string {
	if a.serverKey == nil {
		return ""
	}
	return a.serverKey.Address()
}

// GenerateKeypair 生成一对 Stellar 密钥
func (a *StellarAdapter) GenerateKeypair() (string, string, error) {
	kp, err := keypair.Random()
	if err != nil {
		return "", "", fmt.Errorf("generate stellar keypair: %w", err)
	}
	return kp.Address(), kp.Seed(), nil
}

// Mint 在签名账户上写入 ManageData 凭证条目；托管流程用托管密钥自签
func (a *StellarAdapter) Mint(ctx context.Context, req MintRequest) (*MintResult, error) {
	if !a.healthy {
		return nil, ErrNotReady
	}

	signer := a.serverKey
	if strings.TrimSpace(req.Secret) != "" {
		parsed, err := keypair.ParseFull(req.Secret)
		if err != nil {
			return nil, fmt.Errorf("stellar parse custodial key: %w", err)
		}
		signer = parsed
		if a.cfg.FaucetEnabled && a.cfg.Network != constants.NetworkMainnet {
			a.ensureFunded(signer.Address())
		}
	}

	account, err := a.client.AccountDetail(horizonclient.AccountRequest{AccountID: signer.Address()})
	if err != nil {
		return nil, wrapTimeout(fmt.Errorf("stellar account detail: %w", err))
	}

	// ManageData 的键值均不能超过 64 字节
	name := truncateBytes("mintoria:"+req.DisplayName, 64)
	value := truncateBytes(req.MetadataURI, 64)
	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount:        &account,
		IncrementSequenceNum: true,
		Operations: []txnbuild.Operation{
			&txnbuild.ManageData{Name: name, Value: []byte(value)},
		},
		BaseFee:       txnbuild.MinBaseFee,
		Preconditions: txnbuild.Preconditions{TimeBounds: txnbuild.NewInfiniteTimeout()},
	})
	if err != nil {
		return nil, fmt.Errorf("stellar build tx: %w", err)
	}
	signed, err := tx.Sign(a.passphrase, signer)
	if err != nil {
		return nil, fmt.Errorf("stellar sign tx: %w", err)
	}
	resp, err := a.client.SubmitTransaction(signed)
	if err != nil {
		return nil, wrapTimeout(fmt.Errorf("stellar submit tx: %w", err))
	}

	logger.Infow("stellar_mint_dispatched",
		"tx_hash", resp.Hash,
		"recipient", signer.Address(),
	)
	return &MintResult{TxHash: resp.Hash, Recipient: signer.Address()}, nil
}

// ServerBalance 查询服务端账户 XLM 余额
func (a *StellarAdapter) ServerBalance(ctx context.Context) (decimal.Decimal, error) {
	if !a.healthy {
		return decimal.Zero, ErrNotReady
	}
	account, err := a.client.AccountDetail(horizonclient.AccountRequest{AccountID: a.serverKey.Address()})
	if err != nil {
		return decimal.Zero, wrapTimeout(fmt.Errorf("stellar balance: %w", err))
	}
	for _, balance := range account.Balances {
		if balance.Asset.Type == "native" {
			amount, err := decimal.NewFromString(balance.Balance)
			if err != nil {
				return decimal.Zero, fmt.Errorf("stellar parse balance: %w", err)
			}
			return amount, nil
		}
	}
	return decimal.Zero, nil
}

// ExplorerURL 构造区块浏览器链接
func (a *StellarAdapter) ExplorerURL(txHash string) string {
	base := strings.TrimRight(a.cfg.ExplorerBaseURL, "/")
	if base == "" {
		return ""
	}
	return fmt.Sprintf("%s/tx/%s", base, txHash)
}

// ensureFunded 通过 friendbot 为未激活账户注资，失败仅记录日志
func (a *StellarAdapter) ensureFunded(address string) {
	if a.client == nil {
		return
	}
	if _, err := a.client.AccountDetail(horizonclient.AccountRequest{AccountID: address}); err == nil {
		return
	}
	if _, err := a.client.Fund(address); err != nil {
		logger.Warnw("stellar_friendbot_funding_failed", "address", address, "error", err)
		return
	}
	logger.Infow("stellar_friendbot_funded", "address", address)
}

// truncateBytes 按字节上限截断，回退到 rune 边界避免切出非法 UTF-8
func truncateBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
