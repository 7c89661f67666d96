package service

import (
	"context"
	"errors"
	"time"

	"github.com/mintoria-api/internal/chain"
	"github.com/mintoria-api/internal/config"
	"github.com/mintoria-api/internal/constants"
	"github.com/mintoria-api/internal/logger"
	"github.com/mintoria-api/internal/models"
	"github.com/mintoria-api/internal/repository"

	"gorm.io/gorm"
)

// MintService 铸造调度器与流水账：消费会话 → 调用链适配器 → 记账 → 递增名额
type MintService struct {
	cfg          *config.Config
	registry     *chain.Registry
	dropRepo     repository.DropRepository
	mintRepo     repository.MintRepository
	claimService *ClaimService
}

// NewMintService 创建铸造调度服务
func NewMintService(
	cfg *config.Config,
	registry *chain.Registry,
	dropRepo repository.DropRepository,
	mintRepo repository.MintRepository,
	claimService *ClaimService,
) *MintService {
	return &MintService{
		cfg:          cfg,
		registry:     registry,
		dropRepo:     dropRepo,
		mintRepo:     mintRepo,
		claimService: claimService,
	}
}

// DispatchInput 一次托管铸造的调度输入
type DispatchInput struct {
	ClaimToken     string
	Chain          string
	Recipient      string // 接收地址
	Secret         string // 托管私钥明文（可为空，使用服务端密钥）
	DisplayName    string
	RecipientEmail string
}

// Dispatch 完整调度一次铸造：校验令牌、预占名额、调链、消费会话、落流水。
// 链上调用失败不消费会话，同一令牌可在过期前重试。
func (s *MintService) Dispatch(ctx context.Context, input DispatchInput) (*models.Mint, error) {
	session, err := s.claimService.Validate(input.ClaimToken)
	if err != nil {
		return nil, err
	}

	drop, err := s.dropRepo.GetByID(session.DropID)
	if err != nil {
		return nil, err
	}
	if drop == nil {
		return nil, ErrNotFound
	}
	if len(drop.EnabledChains) > 0 && !drop.ChainEnabled(input.Chain) {
		return nil, ErrChainNotEnabled
	}

	adapter, err := s.registry.Get(input.Chain)
	if err != nil {
		return nil, ErrChainDisabled
	}

	// 先预占名额再上链：并发输家在任何链上动作前即以 SupplyExhausted 失败
	affected, err := s.dropRepo.IncrementMinted(drop.ID)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrSupplyExhausted
	}

	result, err := s.mintOnChain(ctx, adapter, chain.MintRequest{
		Recipient:   input.Recipient,
		DisplayName: displayNameOrDropName(input.DisplayName, drop),
		MetadataURI: drop.MetadataURI,
		Secret:      input.Secret,
	})
	if err != nil {
		// 链上失败释放预占名额，会话保持 active 可重试
		if _, releaseErr := s.dropRepo.DecrementMinted(drop.ID); releaseErr != nil {
			logger.Errorw("mint_reservation_release_failed", "drop_id", drop.ID, "error", releaseErr)
		}
		return nil, s.mapChainError(input.Chain, err)
	}

	sessionID := session.ID
	mint := &models.Mint{
		DropID:         drop.ID,
		ClaimSessionID: &sessionID,
		Chain:          input.Chain,
		Recipient:      result.Recipient,
		TxHash:         result.TxHash,
		ExplorerURL:    adapter.ExplorerURL(result.TxHash),
		Status:         constants.MintStatusConfirmed,
		Source:         constants.MintSourceWalletless,
		RecipientEmail: input.RecipientEmail,
	}
	// 消费会话与落流水同事务提交，中途失败整体回滚，会话保持可重试
	var consumeRace bool
	txErr := s.mintRepo.Transaction(func(tx *gorm.DB) error {
		affected, err := s.claimService.sessionRepo.WithTx(tx).Consume(sessionID, time.Now())
		if err != nil {
			return err
		}
		if affected == 0 {
			// 同一令牌的并发调度输掉了消费竞争；交易已广播无法撤回，
			// 在同事务内释放本次预占并保证不重复记账
			consumeRace = true
			_, err := s.dropRepo.WithTx(tx).DecrementMinted(drop.ID)
			return err
		}
		return s.mintRepo.WithTx(tx).Create(mint)
	})
	if txErr != nil {
		// 未落账则释放预占名额；会话唯一索引兜底，已有流水则幂等返回
		if _, releaseErr := s.dropRepo.DecrementMinted(drop.ID); releaseErr != nil {
			logger.Errorw("mint_reservation_release_failed", "drop_id", drop.ID, "error", releaseErr)
		}
		if existing, getErr := s.mintRepo.GetByClaimSessionID(sessionID); getErr == nil && existing != nil {
			return existing, nil
		}
		return nil, txErr
	}
	if consumeRace {
		logger.Warnw("mint_consume_race_lost",
			"session_id", sessionID,
			"chain", input.Chain,
			"tx_hash", result.TxHash,
		)
		return nil, ErrSessionConsumed
	}

	logger.Infow("mint_recorded",
		"mint_id", mint.ID,
		"drop_id", drop.ID,
		"chain", input.Chain,
		"tx_hash", result.TxHash,
	)
	return mint, nil
}

// ConfirmExternal 钱包流程回报：客户端自行广播交易后确认。幂等，
// 已消费会话的重复调用返回先前的流水行，不会重复递增名额。
func (s *MintService) ConfirmExternal(ctx context.Context, claimToken, txHash, chainID, recipient string) (*models.Mint, error) {
	if claimToken == "" {
		return nil, ErrClaimTokenInvalid
	}
	session, err := s.claimService.sessionRepo.GetByTokenHash(HashClaimToken(claimToken))
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrClaimTokenInvalid
	}

	if session.Status == constants.ClaimSessionStatusConsumed {
		existing, err := s.mintRepo.GetByClaimSessionID(session.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
		return nil, ErrSessionConsumed
	}
	if session.Status == constants.ClaimSessionStatusExpired || session.Expired(time.Now()) {
		return nil, ErrClaimTokenExpired
	}

	drop, err := s.dropRepo.GetByID(session.DropID)
	if err != nil {
		return nil, err
	}
	if drop == nil {
		return nil, ErrNotFound
	}
	if len(drop.EnabledChains) > 0 && !drop.ChainEnabled(chainID) {
		return nil, ErrChainNotEnabled
	}
	adapter, err := s.registry.Get(chainID)
	if err != nil {
		return nil, ErrChainDisabled
	}

	sessionID := session.ID
	mint := &models.Mint{
		DropID:         drop.ID,
		ClaimSessionID: &sessionID,
		Chain:          chainID,
		Recipient:      recipient,
		TxHash:         txHash,
		ExplorerURL:    adapter.ExplorerURL(txHash),
		Status:         constants.MintStatusConfirmed,
		Source:         constants.MintSourceExternal,
	}
	// 消费、递增名额、落流水同事务提交；DB 故障整体回滚，会话保持可重试
	var consumeRace bool
	txErr := s.mintRepo.Transaction(func(tx *gorm.DB) error {
		affected, err := s.claimService.sessionRepo.WithTx(tx).Consume(sessionID, time.Now())
		if err != nil {
			return err
		}
		if affected == 0 {
			consumeRace = true
			return nil
		}
		// 交易已在链上存在，供应超卖只记告警，流水仍需落账
		incremented, err := s.dropRepo.WithTx(tx).IncrementMinted(drop.ID)
		if err != nil {
			return err
		}
		if incremented == 0 {
			logger.Warnw("mint_supply_overrun", "drop_id", drop.ID, "tx_hash", txHash)
		}
		return s.mintRepo.WithTx(tx).Create(mint)
	})
	if txErr != nil {
		if existing, getErr := s.mintRepo.GetByClaimSessionID(sessionID); getErr == nil && existing != nil {
			return existing, nil
		}
		return nil, txErr
	}
	if consumeRace {
		if existing, getErr := s.mintRepo.GetByClaimSessionID(sessionID); getErr == nil && existing != nil {
			return existing, nil
		}
		return nil, ErrSessionConsumed
	}

	logger.Infow("external_mint_confirmed",
		"mint_id", mint.ID,
		"drop_id", drop.ID,
		"chain", chainID,
		"tx_hash", txHash,
	)
	return mint, nil
}

// List 铸造流水列表
func (s *MintService) List(filter repository.MintListFilter) ([]models.Mint, int64, error) {
	return s.mintRepo.List(filter)
}

// ChainStatuses 汇总各链运行状态
func (s *MintService) ChainStatuses(ctx context.Context, withBalance bool) []chain.Status {
	return s.registry.Statuses(ctx, withBalance)
}

// mintOnChain 带超时调用链适配器
func (s *MintService) mintOnChain(ctx context.Context, adapter chain.Adapter, req chain.MintRequest) (*chain.MintResult, error) {
	timeout := time.Duration(s.cfg.Chains.DispatchTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	dispatchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return adapter.Mint(dispatchCtx, req)
}

// mapChainError 将链层错误归一为服务层错误，细节只进日志不出站
func (s *MintService) mapChainError(chainID string, err error) error {
	switch {
	case errors.Is(err, chain.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		logger.Warnw("mint_dispatch_timeout", "chain", chainID, "error", err)
		return ErrChainTimeout
	case errors.Is(err, chain.ErrDisabled), errors.Is(err, chain.ErrNotReady):
		return ErrChainDisabled
	default:
		logger.Errorw("mint_dispatch_failed", "chain", chainID, "error", err)
		return ErrMintFailed
	}
}

func displayNameOrDropName(displayName string, drop *models.Drop) string {
	if displayName != "" {
		return displayName
	}
	return drop.Name
}
