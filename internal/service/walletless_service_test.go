package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mintoria-api/internal/cache"
	"github.com/mintoria-api/internal/chain"
	"github.com/mintoria-api/internal/config"
	"github.com/mintoria-api/internal/constants"
	"github.com/mintoria-api/internal/models"
	"github.com/mintoria-api/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type walletlessFixture struct {
	service      *WalletlessService
	claimService *ClaimService
	repo         repository.WalletlessRepository
	codeRepo     repository.EmailVerifyCodeRepository
	codeStore    cache.VerifyCodeStore
	dropRepo     repository.DropRepository
	adapter      *fakeChainAdapter
	db           *gorm.DB
}

func setupWalletlessServiceTest(t *testing.T) *walletlessFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:walletless_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&models.Drop{},
		&models.ClaimSession{},
		&models.Mint{},
		&models.WalletlessUser{},
		&models.WalletlessKey{},
		&models.EmailVerifyCode{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	cfg := &config.Config{
		Claim:  config.ClaimConfig{SessionTTLSeconds: 300},
		Chains: config.ChainsConfig{DispatchTimeoutSeconds: 5},
		Email: config.EmailConfig{
			VerifyCode: config.VerifyCodeConfig{
				ExpireMinutes:       10,
				SendIntervalSeconds: 60,
				MaxAttempts:         3,
				Length:              6,
			},
		},
	}

	repo := repository.NewWalletlessRepository(db)
	codeRepo := repository.NewEmailVerifyCodeRepository(db)
	dropRepo := repository.NewDropRepository(db)
	sessionRepo := repository.NewClaimSessionRepository(db)
	mintRepo := repository.NewMintRepository(db)
	codeStore := cache.NewMemoryVerifyCodeStore()

	adapter := newFakeChainAdapter(constants.ChainEVM)
	registry := chain.NewRegistry()
	registry.Register(adapter)

	claimService := NewClaimService(cfg, dropRepo, sessionRepo)
	vault := NewVaultService(config.VaultConfig{Secret: "walletless-test-master-secret-00112233", KeyVersion: 1}, repo, registry)
	mintService := NewMintService(cfg, registry, dropRepo, mintRepo, claimService)
	emailService := NewEmailService(&cfg.Email)

	return &walletlessFixture{
		service: NewWalletlessService(
			cfg, repo, codeRepo, codeStore, dropRepo, registry,
			vault, mintService, emailService, nil,
		),
		claimService: claimService,
		repo:         repo,
		codeRepo:     codeRepo,
		codeStore:    codeStore,
		dropRepo:     dropRepo,
		adapter:      adapter,
		db:           db,
	}
}

func (f *walletlessFixture) createUser(t *testing.T, email string, verified bool) *models.WalletlessUser {
	t.Helper()
	user := &models.WalletlessUser{Email: email}
	if verified {
		now := time.Now()
		user.VerifiedAt = &now
	}
	if err := f.repo.CreateUser(user); err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return user
}

func (f *walletlessFixture) issueCode(t *testing.T, user *models.WalletlessUser, code string) {
	t.Helper()
	ctx := context.Background()
	if err := f.codeStore.Set(ctx, user.Email, code, 10*time.Minute); err != nil {
		t.Fatalf("seed code store failed: %v", err)
	}
	record := &models.EmailVerifyCode{
		Email:     user.Email,
		UserID:    &user.ID,
		Purpose:   constants.VerifyPurposeWalletless,
		ExpiresAt: time.Now().Add(10 * time.Minute),
		SentAt:    time.Now(),
	}
	if err := f.codeRepo.Create(record); err != nil {
		t.Fatalf("create code record failed: %v", err)
	}
}

func TestVerifyMarksUserAndConsumesCode(t *testing.T) {
	f := setupWalletlessServiceTest(t)
	user := f.createUser(t, "visitor@example.com", false)
	f.issueCode(t, user, "123456")

	keys, err := f.service.Verify(context.Background(), "Visitor@Example.com", "123456")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("no custodial keys provisioned yet, got %d", len(keys))
	}

	reloaded, err := f.repo.GetUserByID(user.ID)
	if err != nil {
		t.Fatalf("reload user failed: %v", err)
	}
	if reloaded.VerifiedAt == nil {
		t.Fatalf("user should be marked verified")
	}

	record, err := f.codeRepo.GetLatest(user.Email, constants.VerifyPurposeWalletless)
	if err != nil {
		t.Fatalf("load code record failed: %v", err)
	}
	if record.VerifiedAt == nil {
		t.Fatalf("code record should be marked verified")
	}

	// 验证码单次使用
	if _, err := f.service.Verify(context.Background(), user.Email, "123456"); !errors.Is(err, ErrVerifyCodeExpired) {
		t.Fatalf("replayed code want ErrVerifyCodeExpired got %v", err)
	}
}

func TestVerifyWrongCodeCountsAttempt(t *testing.T) {
	f := setupWalletlessServiceTest(t)
	user := f.createUser(t, "visitor@example.com", false)
	f.issueCode(t, user, "123456")

	if _, err := f.service.Verify(context.Background(), user.Email, "654321"); !errors.Is(err, ErrVerifyCodeInvalid) {
		t.Fatalf("wrong code want ErrVerifyCodeInvalid got %v", err)
	}
	record, err := f.codeRepo.GetLatest(user.Email, constants.VerifyPurposeWalletless)
	if err != nil {
		t.Fatalf("load code record failed: %v", err)
	}
	if record.AttemptCount != 1 {
		t.Fatalf("attempt count want 1 got %d", record.AttemptCount)
	}

	// 正确验证码依旧可用
	if _, err := f.service.Verify(context.Background(), user.Email, "123456"); err != nil {
		t.Fatalf("correct code after a miss failed: %v", err)
	}
}

func TestVerifyAttemptsExceededInvalidatesCode(t *testing.T) {
	f := setupWalletlessServiceTest(t)
	user := f.createUser(t, "visitor@example.com", false)
	f.issueCode(t, user, "123456")

	for i := 0; i < 3; i++ {
		if _, err := f.service.Verify(context.Background(), user.Email, "000000"); !errors.Is(err, ErrVerifyCodeInvalid) {
			t.Fatalf("attempt %d want ErrVerifyCodeInvalid got %v", i, err)
		}
	}
	if _, err := f.service.Verify(context.Background(), user.Email, "123456"); !errors.Is(err, ErrVerifyCodeAttemptsExceeded) {
		t.Fatalf("want ErrVerifyCodeAttemptsExceeded got %v", err)
	}
	// 超限后验证码作废
	if _, found, _ := f.codeStore.Get(context.Background(), user.Email); found {
		t.Fatalf("code should be invalidated after exceeding attempts")
	}
}

func TestStartThrottlesResend(t *testing.T) {
	f := setupWalletlessServiceTest(t)
	user := f.createUser(t, "visitor@example.com", false)
	f.issueCode(t, user, "123456")

	if err := f.service.Start(context.Background(), user.Email); !errors.Is(err, ErrVerifyCodeTooFrequent) {
		t.Fatalf("want ErrVerifyCodeTooFrequent got %v", err)
	}
}

func TestStartRejectsInvalidEmail(t *testing.T) {
	f := setupWalletlessServiceTest(t)
	if err := f.service.Start(context.Background(), "not-an-email"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("want ErrInvalidEmail got %v", err)
	}
}

func TestMintVerifiedUserWithoutCode(t *testing.T) {
	f := setupWalletlessServiceTest(t)
	user := f.createUser(t, "visitor@example.com", true)

	drop := &models.Drop{
		LocationID: 1,
		Name:       "Paris Visit 2026",
		Supply:     10,
		Status:     constants.DropStatusPublished,
		IsActive:   true,
	}
	if err := f.dropRepo.Create(drop); err != nil {
		t.Fatalf("create drop failed: %v", err)
	}
	session, err := f.claimService.CreateSession(1, "")
	if err != nil {
		t.Fatalf("create session failed: %v", err)
	}

	mint, err := f.service.Mint(context.Background(), MintInput{
		Email:      user.Email,
		Chain:      constants.ChainEVM,
		ClaimToken: session.Token,
	})
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if mint.RecipientEmail != user.Email {
		t.Fatalf("recipient email want %s got %s", user.Email, mint.RecipientEmail)
	}
	if !strings.HasPrefix(mint.Recipient, "evm-addr-") {
		t.Fatalf("mint should target the custodial address, got %s", mint.Recipient)
	}

	keys, err := f.repo.ListKeysByUser(user.ID)
	if err != nil {
		t.Fatalf("list keys failed: %v", err)
	}
	if len(keys) != 1 || keys[0].Chain != constants.ChainEVM {
		t.Fatalf("custodial key should be lazily provisioned, got %+v", keys)
	}
}

func TestMintUnverifiedUserWithoutCode(t *testing.T) {
	f := setupWalletlessServiceTest(t)
	user := f.createUser(t, "visitor@example.com", false)

	if _, err := f.service.Mint(context.Background(), MintInput{
		Email:      user.Email,
		Chain:      constants.ChainEVM,
		ClaimToken: "whatever",
	}); !errors.Is(err, ErrVerifyCodeInvalid) {
		t.Fatalf("want ErrVerifyCodeInvalid got %v", err)
	}
}

func TestMintStaleCodeDoesNotBlockVerifiedUser(t *testing.T) {
	f := setupWalletlessServiceTest(t)
	user := f.createUser(t, "visitor@example.com", true)

	drop := &models.Drop{
		LocationID: 1,
		Name:       "Paris Visit 2026",
		Supply:     10,
		Status:     constants.DropStatusPublished,
		IsActive:   true,
	}
	if err := f.dropRepo.Create(drop); err != nil {
		t.Fatalf("create drop failed: %v", err)
	}
	session, err := f.claimService.CreateSession(1, "")
	if err != nil {
		t.Fatalf("create session failed: %v", err)
	}

	// 验证码早已过期，但邮箱已验证，铸造不受阻断
	if _, err := f.service.Mint(context.Background(), MintInput{
		Email:      user.Email,
		Code:       "999999",
		Chain:      constants.ChainEVM,
		ClaimToken: session.Token,
	}); err != nil {
		t.Fatalf("verified user with stale code should still mint, got %v", err)
	}
}

func TestNormalizeEmail(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "lowercased", input: " Visitor@Example.COM ", want: "visitor@example.com"},
		{name: "plain", input: "a@b.co", want: "a@b.co"},
		{name: "missing_at", input: "invalid", wantErr: true},
		{name: "display_name", input: "Visitor <v@example.com>", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := normalizeEmail(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("want error got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("normalize failed: %v", err)
			}
			if got != tc.want {
				t.Fatalf("want %q got %q", tc.want, got)
			}
		})
	}
}

func TestGenerateNumericCode(t *testing.T) {
	code, err := generateNumericCode(6)
	if err != nil {
		t.Fatalf("generate code failed: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("code length want 6 got %d", len(code))
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Fatalf("code should be numeric, got %q", code)
		}
	}
}
