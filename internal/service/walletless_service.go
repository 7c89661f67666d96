package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/mintoria-api/internal/cache"
	"github.com/mintoria-api/internal/chain"
	"github.com/mintoria-api/internal/config"
	"github.com/mintoria-api/internal/constants"
	"github.com/mintoria-api/internal/logger"
	"github.com/mintoria-api/internal/models"
	"github.com/mintoria-api/internal/queue"
	"github.com/mintoria-api/internal/repository"
)

// WalletlessService 无钱包领取流程：邮箱验证码 + 托管钱包 + 代为铸造
type WalletlessService struct {
	cfg          *config.Config
	repo         repository.WalletlessRepository
	codeRepo     repository.EmailVerifyCodeRepository
	codeStore    cache.VerifyCodeStore
	dropRepo     repository.DropRepository
	registry     *chain.Registry
	vault        *VaultService
	mintService  *MintService
	emailService *EmailService
	queueClient  *queue.Client
}

// NewWalletlessService 创建无钱包流程服务
func NewWalletlessService(
	cfg *config.Config,
	repo repository.WalletlessRepository,
	codeRepo repository.EmailVerifyCodeRepository,
	codeStore cache.VerifyCodeStore,
	dropRepo repository.DropRepository,
	registry *chain.Registry,
	vault *VaultService,
	mintService *MintService,
	emailService *EmailService,
	queueClient *queue.Client,
) *WalletlessService {
	return &WalletlessService{
		cfg:          cfg,
		repo:         repo,
		codeRepo:     codeRepo,
		codeStore:    codeStore,
		dropRepo:     dropRepo,
		registry:     registry,
		vault:        vault,
		mintService:  mintService,
		emailService: emailService,
		queueClient:  queueClient,
	}
}

// Start 发起无钱包领取：下发验证码并预生成各链托管钱包
func (s *WalletlessService) Start(ctx context.Context, email string) error {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return ErrInvalidEmail
	}

	user, err := s.repo.GetUserByEmail(normalized)
	if err != nil {
		return err
	}
	if user == nil {
		user = &models.WalletlessUser{Email: normalized}
		if err := s.repo.CreateUser(user); err != nil {
			// 并发创建撞唯一索引时回读既有用户
			existing, getErr := s.repo.GetUserByEmail(normalized)
			if getErr != nil || existing == nil {
				return err
			}
			user = existing
		}
	}

	if err := s.checkSendInterval(normalized); err != nil {
		return err
	}

	code, err := generateNumericCode(s.codeLength())
	if err != nil {
		return err
	}
	expireIn := s.codeTTL()
	if err := s.codeStore.Set(ctx, normalized, code, expireIn); err != nil {
		return err
	}

	record := &models.EmailVerifyCode{
		Email:     normalized,
		UserID:    &user.ID,
		Purpose:   constants.VerifyPurposeWalletless,
		ExpiresAt: time.Now().Add(expireIn),
		SentAt:    time.Now(),
	}
	if err := s.codeRepo.Create(record); err != nil {
		logger.Errorw("verify_code_record_create_failed", "email", normalized, "error", err)
	}

	if err := s.dispatchVerifyCodeEmail(normalized, code); err != nil {
		return err
	}

	// 预生成各链托管钱包，失败的链在铸造时重试
	s.vault.EnsureKeysForChains(ctx, user.ID, s.registry.Chains())

	logger.Infow("walletless_start", "email", normalized, "user_id", user.ID)
	return nil
}

// Verify 校验验证码并标记邮箱已验证，成功返回托管钱包地址列表
func (s *WalletlessService) Verify(ctx context.Context, email, code string) ([]models.WalletlessKey, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidEmail
	}
	user, err := s.repo.GetUserByEmail(normalized)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrVerifyCodeInvalid
	}

	if err := s.consumeCode(ctx, normalized, code); err != nil {
		return nil, err
	}

	if err := s.repo.MarkUserVerified(user.ID, time.Now()); err != nil {
		return nil, err
	}
	if record, getErr := s.codeRepo.GetLatest(normalized, constants.VerifyPurposeWalletless); getErr == nil && record != nil {
		if err := s.codeRepo.MarkVerified(record.ID, time.Now()); err != nil {
			logger.Warnw("verify_code_record_mark_failed", "record_id", record.ID, "error", err)
		}
	}

	logger.Infow("walletless_verified", "email", normalized, "user_id", user.ID)
	return s.repo.ListKeysByUser(user.ID)
}

// MintInput 无钱包铸造输入
type MintInput struct {
	Email      string
	Code       string
	Chain      string
	ClaimToken string
}

// Mint 托管铸造：验证码或既有验证状态放行，随后解封私钥并调度上链
func (s *WalletlessService) Mint(ctx context.Context, input MintInput) (*models.Mint, error) {
	normalized, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, ErrInvalidEmail
	}
	user, err := s.repo.GetUserByEmail(normalized)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrVerifyCodeInvalid
	}

	if err := s.authorizeMint(ctx, user, normalized, input.Code); err != nil {
		return nil, err
	}

	key, err := s.vault.EnsureKey(ctx, user.ID, input.Chain)
	if err != nil {
		return nil, err
	}
	secret, err := s.vault.RevealSecret(key)
	if err != nil {
		return nil, err
	}

	mint, err := s.mintService.Dispatch(ctx, DispatchInput{
		ClaimToken:     input.ClaimToken,
		Chain:          input.Chain,
		Recipient:      key.Address,
		Secret:         secret,
		RecipientEmail: normalized,
	})
	if err != nil {
		return nil, err
	}

	s.dispatchMintConfirmedEmail(normalized, mint)
	return mint, nil
}

// Addresses 列出用户已生成的托管钱包地址
func (s *WalletlessService) Addresses(email string) ([]models.WalletlessKey, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidEmail
	}
	user, err := s.repo.GetUserByEmail(normalized)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return s.repo.ListKeysByUser(user.ID)
}

// authorizeMint 铸造放行：有效验证码一次性消费，或邮箱已通过验证
func (s *WalletlessService) authorizeMint(ctx context.Context, user *models.WalletlessUser, email, code string) error {
	if code != "" {
		err := s.consumeCode(ctx, email, code)
		if err == nil {
			if markErr := s.repo.MarkUserVerified(user.ID, time.Now()); markErr != nil {
				logger.Warnw("walletless_mark_verified_failed", "user_id", user.ID, "error", markErr)
			}
			return nil
		}
		if user.VerifiedAt == nil {
			return err
		}
		// 已验证用户重放旧验证码不阻断铸造
	}
	if user.VerifiedAt == nil {
		return ErrVerifyCodeInvalid
	}
	return nil
}

// consumeCode 校验并一次性消费验证码，计入失败次数
func (s *WalletlessService) consumeCode(ctx context.Context, email, code string) error {
	stored, found, err := s.codeStore.Get(ctx, email)
	if err != nil {
		return err
	}
	if !found {
		return ErrVerifyCodeExpired
	}

	record, err := s.codeRepo.GetLatest(email, constants.VerifyPurposeWalletless)
	if err != nil {
		return err
	}
	if record != nil && record.AttemptCount >= s.maxAttempts() {
		if delErr := s.codeStore.Delete(ctx, email); delErr != nil {
			logger.Warnw("verify_code_delete_failed", "email", email, "error", delErr)
		}
		return ErrVerifyCodeAttemptsExceeded
	}

	if stored != code {
		if record != nil {
			if incErr := s.codeRepo.IncrementAttempt(record.ID); incErr != nil {
				logger.Warnw("verify_code_attempt_increment_failed", "record_id", record.ID, "error", incErr)
			}
		}
		return ErrVerifyCodeInvalid
	}

	return s.codeStore.Delete(ctx, email)
}

// checkSendInterval 重发间隔限制
func (s *WalletlessService) checkSendInterval(email string) error {
	interval := s.cfg.Email.VerifyCode.SendIntervalSeconds
	if interval <= 0 {
		return nil
	}
	latest, err := s.codeRepo.GetLatest(email, constants.VerifyPurposeWalletless)
	if err != nil {
		return err
	}
	if latest != nil && time.Since(latest.SentAt) < time.Duration(interval)*time.Second {
		return ErrVerifyCodeTooFrequent
	}
	return nil
}

func (s *WalletlessService) dispatchVerifyCodeEmail(email, code string) error {
	if s.queueClient.Enabled() {
		err := s.queueClient.EnqueueVerifyCodeEmail(queue.VerifyCodeEmailPayload{Email: email, Code: code})
		if err == nil {
			return nil
		}
		logger.Warnw("verify_code_enqueue_failed", "email", email, "error", err)
	}
	return s.emailService.SendVerifyCode(email, code)
}

func (s *WalletlessService) dispatchMintConfirmedEmail(email string, mint *models.Mint) {
	if s.queueClient.Enabled() {
		err := s.queueClient.EnqueueMintConfirmedEmail(queue.MintConfirmedEmailPayload{MintID: mint.ID})
		if err == nil {
			return
		}
		logger.Warnw("mint_confirmed_enqueue_failed", "mint_id", mint.ID, "error", err)
	}
	drop, err := s.dropRepo.GetByID(mint.DropID)
	if err != nil || drop == nil {
		logger.Warnw("mint_confirmed_email_skip", "mint_id", mint.ID, "error", err)
		return
	}
	if err := s.emailService.SendMintConfirmation(email, MintConfirmationInput{
		DropName:    drop.Name,
		Chain:       mint.Chain,
		TxHash:      mint.TxHash,
		Address:     mint.Recipient,
		ExplorerURL: mint.ExplorerURL,
	}); err != nil {
		logger.Warnw("mint_confirmed_email_failed", "mint_id", mint.ID, "error", err)
	}
}

func (s *WalletlessService) codeLength() int {
	if s.cfg.Email.VerifyCode.Length > 0 {
		return s.cfg.Email.VerifyCode.Length
	}
	return 6
}

func (s *WalletlessService) codeTTL() time.Duration {
	minutes := s.cfg.Email.VerifyCode.ExpireMinutes
	if minutes <= 0 {
		minutes = 10
	}
	return time.Duration(minutes) * time.Minute
}

func (s *WalletlessService) maxAttempts() int {
	if s.cfg.Email.VerifyCode.MaxAttempts > 0 {
		return s.cfg.Email.VerifyCode.MaxAttempts
	}
	return 5
}

// normalizeEmail 校验并归一化邮箱地址
func normalizeEmail(email string) (string, error) {
	trimmed := strings.TrimSpace(strings.ToLower(email))
	if trimmed == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", ErrInvalidEmail
	}
	return trimmed, nil
}

// generateNumericCode 生成定长数字验证码
func generateNumericCode(length int) (string, error) {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%d", n.Int64())
	}
	return b.String(), nil
}
