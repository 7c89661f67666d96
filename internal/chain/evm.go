package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/mintoria-api/internal/config"
	"github.com/mintoria-api/internal/constants"
	"github.com/mintoria-api/internal/logger"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

// mintoriaMintABI 纪念凭证合约的铸造方法 ABI
const mintoriaMintABI = `[{"inputs":[{"name":"to","type":"address"},{"name":"uri","type":"string"}],"name":"mintTo","outputs":[{"name":"tokenId","type":"uint256"}],"stateMutability":"nonpayable","type":"function"}]`

const evmMintGasLimit = 300000

// EVMAdapter 以太坊系链适配器，使用服务端密钥调用合约向接收地址铸造
type EVMAdapter struct {
	cfg        config.EVMChainConfig
	client     *ethclient.Client
	privKeyHex string
	address    common.Address
	mintABI    abi.ABI
	healthy    bool
}

// NewEVMAdapter 创建 EVM 适配器；密钥缺失时自动生成并告警，初始化失败只降级为不健康
func NewEVMAdapter(cfg config.EVMChainConfig) *EVMAdapter {
	a := &EVMAdapter{cfg: cfg}

	parsed, err := abi.JSON(strings.NewReader(mintoriaMintABI))
	if err != nil {
		logger.Errorw("evm_mint_abi_parse_failed", "error", err)
		return a
	}
	a.mintABI = parsed

	keyHex := strings.TrimSpace(cfg.ServerKey)
	if keyHex == "" {
		generated, err := crypto.GenerateKey()
		if err != nil {
			logger.Errorw("evm_server_key_generate_failed", "error", err)
			return a
		}
		keyHex = hexutil.Encode(crypto.FromECDSA(generated))
		logger.Warnw("evm_server_key_generated",
			"address", crypto.PubkeyToAddress(generated.PublicKey).Hex(),
			"hint", "persist chains.evm.server_key to keep this signing identity",
		)
	}
	priv, err := crypto.HexToECDSA(strings.TrimPrefix(keyHex, "0x"))
	if err != nil {
		logger.Errorw("evm_server_key_parse_failed", "error", err)
		return a
	}
	a.privKeyHex = strings.TrimPrefix(keyHex, "0x")
	a.address = crypto.PubkeyToAddress(priv.PublicKey)

	if rpcURL := strings.TrimSpace(cfg.RPCURL); rpcURL != "" {
		client, err := ethclient.Dial(rpcURL)
		if err != nil {
			logger.Errorw("evm_rpc_dial_failed", "rpc_url", rpcURL, "error", err)
			return a
		}
		a.client = client
	} else {
		logger.Warnw("evm_rpc_url_missing")
		return a
	}

	a.healthy = true
	logger.Infow("evm_adapter_ready",
		"address", a.address.Hex(),
		"chain_id", cfg.ChainID,
		"network", cfg.Network,
	)
	return a
}

// ID 返回链标识
func (a *EVMAdapter) ID() string {
	return constants.ChainEVM
}

// Network 返回网络环境
func (a *EVMAdapter) Network() string {
	return a.cfg.Network
}

// Healthy 返回健康状态
func (a *EVMAdapter) Healthy() bool {
	return a.healthy
}

// ServerAddress 返回服务端签名地址
func (a *EVMAdapter) ServerAddress() string {
	return a.address.Hex()
}

// GenerateKeypair 生成一对 EVM 密钥
func (a *EVMAdapter) GenerateKeypair() (string, string, error) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		return "", "", fmt.Errorf("generate evm keypair: %w", err)
	}
	address := crypto.PubkeyToAddress(priv.PublicKey).Hex()
	secret := hexutil.Encode(crypto.FromECDSA(priv))
	return address, secret, nil
}

// Mint 以服务端密钥调用合约铸造；无合约地址时退化为携带元数据的零值转账记录
func (a *EVMAdapter) Mint(ctx context.Context, req MintRequest) (*MintResult, error) {
	if !a.healthy {
		return nil, ErrNotReady
	}
	recipient := common.HexToAddress(req.Recipient)

	priv, err := crypto.HexToECDSA(a.privKeyHex)
	if err != nil {
		return nil, fmt.Errorf("load evm server key: %w", err)
	}

	nonce, err := a.client.PendingNonceAt(ctx, a.address)
	if err != nil {
		return nil, wrapTimeout(fmt.Errorf("evm pending nonce: %w", err))
	}
	gasPrice, err := a.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, wrapTimeout(fmt.Errorf("evm gas price: %w", err))
	}

	var to common.Address
	var data []byte
	if contract := strings.TrimSpace(a.cfg.ContractAddress); contract != "" {
		to = common.HexToAddress(contract)
		data, err = a.mintABI.Pack("mintTo", recipient, req.MetadataURI)
		if err != nil {
			return nil, fmt.Errorf("evm pack mint call: %w", err)
		}
	} else {
		to = recipient
		data = []byte(fmt.Sprintf("mintoria:%s:%s", req.DisplayName, req.MetadataURI))
	}

	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    big.NewInt(0),
		Gas:      evmMintGasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signer := ethtypes.LatestSignerForChainID(big.NewInt(a.cfg.ChainID))
	signedTx, err := ethtypes.SignTx(tx, signer, priv)
	if err != nil {
		return nil, fmt.Errorf("evm sign tx: %w", err)
	}
	if err := a.client.SendTransaction(ctx, signedTx); err != nil {
		return nil, wrapTimeout(fmt.Errorf("evm send tx: %w", err))
	}

	logger.Infow("evm_mint_dispatched",
		"tx_hash", signedTx.Hash().Hex(),
		"recipient", recipient.Hex(),
	)
	return &MintResult{TxHash: signedTx.Hash().Hex(), Recipient: recipient.Hex()}, nil
}

// ServerBalance 查询服务端地址余额（单位 ether）
func (a *EVMAdapter) ServerBalance(ctx context.Context) (decimal.Decimal, error) {
	if !a.healthy {
		return decimal.Zero, ErrNotReady
	}
	wei, err := a.client.BalanceAt(ctx, a.address, nil)
	if err != nil {
		return decimal.Zero, wrapTimeout(fmt.Errorf("evm balance: %w", err))
	}
	return decimal.NewFromBigInt(wei, -18), nil
}

// ExplorerURL 构造区块浏览器链接
func (a *EVMAdapter) ExplorerURL(txHash string) string {
	base := strings.TrimRight(a.cfg.ExplorerBaseURL, "/")
	if base == "" {
		return ""
	}
	return fmt.Sprintf("%s/tx/%s", base, txHash)
}
