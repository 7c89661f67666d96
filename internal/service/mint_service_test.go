package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mintoria-api/internal/chain"
	"github.com/mintoria-api/internal/config"
	"github.com/mintoria-api/internal/constants"
	"github.com/mintoria-api/internal/models"
	"github.com/mintoria-api/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// fakeChainAdapter 进程内链适配器替身，不做任何网络 I/O
type fakeChainAdapter struct {
	mu       sync.Mutex
	id       string
	mintErr  error
	calls    int
	lastReq  chain.MintRequest
	keypairs int
}

func newFakeChainAdapter(id string) *fakeChainAdapter {
	return &fakeChainAdapter{id: id}
}

func (f *fakeChainAdapter) ID() string { return f.id }

func (f *fakeChainAdapter) Mint(ctx context.Context, req chain.MintRequest) (*chain.MintResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastReq = req
	if f.mintErr != nil {
		return nil, f.mintErr
	}
	return &chain.MintResult{
		TxHash:    fmt.Sprintf("0xtx%04d", f.calls),
		Recipient: req.Recipient,
	}, nil
}

func (f *fakeChainAdapter) GenerateKeypair() (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keypairs++
	return fmt.Sprintf("%s-addr-%d", f.id, f.keypairs), fmt.Sprintf("%s-secret-%d", f.id, f.keypairs), nil
}

func (f *fakeChainAdapter) ServerAddress() string { return f.id + "-server" }

func (f *fakeChainAdapter) ServerBalance(ctx context.Context) (decimal.Decimal, error) {
	return decimal.NewFromInt(1), nil
}

func (f *fakeChainAdapter) ExplorerURL(txHash string) string {
	return "https://explorer.test/tx/" + txHash
}

func (f *fakeChainAdapter) Healthy() bool { return true }

func (f *fakeChainAdapter) Network() string { return constants.NetworkTestnet }

func (f *fakeChainAdapter) setMintErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mintErr = err
}

func (f *fakeChainAdapter) mintCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type mintServiceFixture struct {
	mintService  *MintService
	claimService *ClaimService
	dropRepo     repository.DropRepository
	mintRepo     repository.MintRepository
	registry     *chain.Registry
	adapter      *fakeChainAdapter
	db           *gorm.DB
}

func setupMintServiceTest(t *testing.T) *mintServiceFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:mint_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Drop{}, &models.ClaimSession{}, &models.Mint{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	cfg := &config.Config{
		Claim:  config.ClaimConfig{SessionTTLSeconds: 300},
		Chains: config.ChainsConfig{DispatchTimeoutSeconds: 5},
	}
	dropRepo := repository.NewDropRepository(db)
	sessionRepo := repository.NewClaimSessionRepository(db)
	mintRepo := repository.NewMintRepository(db)
	claimService := NewClaimService(cfg, dropRepo, sessionRepo)

	adapter := newFakeChainAdapter(constants.ChainEVM)
	registry := chain.NewRegistry()
	registry.Register(adapter)

	return &mintServiceFixture{
		mintService:  NewMintService(cfg, registry, dropRepo, mintRepo, claimService),
		claimService: claimService,
		dropRepo:     dropRepo,
		mintRepo:     mintRepo,
		registry:     registry,
		adapter:      adapter,
		db:           db,
	}
}

func (f *mintServiceFixture) createDrop(t *testing.T, supply int, enabledChains ...string) *models.Drop {
	t.Helper()
	drop := &models.Drop{
		LocationID:    1,
		Name:          "Paris Visit 2026",
		MetadataURI:   "https://example.com/metadata.json",
		EnabledChains: models.StringArray(enabledChains),
		Supply:        supply,
		Status:        constants.DropStatusPublished,
		IsActive:      true,
	}
	if err := f.dropRepo.Create(drop); err != nil {
		t.Fatalf("create drop failed: %v", err)
	}
	return drop
}

func (f *mintServiceFixture) issueToken(t *testing.T) string {
	t.Helper()
	result, err := f.claimService.CreateSession(1, "")
	if err != nil {
		t.Fatalf("create session failed: %v", err)
	}
	return result.Token
}

func TestDispatchMintLifecycle(t *testing.T) {
	f := setupMintServiceTest(t)
	drop := f.createDrop(t, 10)
	token := f.issueToken(t)

	mint, err := f.mintService.Dispatch(context.Background(), DispatchInput{
		ClaimToken:     token,
		Chain:          constants.ChainEVM,
		Recipient:      "0xrecipient",
		RecipientEmail: "visitor@example.com",
	})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if mint.Status != constants.MintStatusConfirmed {
		t.Fatalf("mint status want confirmed got %s", mint.Status)
	}
	if mint.Source != constants.MintSourceWalletless {
		t.Fatalf("mint source want walletless got %s", mint.Source)
	}
	if mint.TxHash == "" || mint.ExplorerURL == "" {
		t.Fatalf("mint should carry tx hash and explorer url, got %+v", mint)
	}

	reloaded, err := f.dropRepo.GetByID(drop.ID)
	if err != nil {
		t.Fatalf("reload drop failed: %v", err)
	}
	if reloaded.MintedCount != 1 {
		t.Fatalf("minted count want 1 got %d", reloaded.MintedCount)
	}

	// 同一令牌再次调度：会话已消费
	if _, err := f.mintService.Dispatch(context.Background(), DispatchInput{
		ClaimToken: token,
		Chain:      constants.ChainEVM,
		Recipient:  "0xrecipient",
	}); !errors.Is(err, ErrSessionConsumed) {
		t.Fatalf("replay dispatch want ErrSessionConsumed got %v", err)
	}
}

func TestDispatchChainFailureKeepsSessionRetryable(t *testing.T) {
	f := setupMintServiceTest(t)
	drop := f.createDrop(t, 10)
	token := f.issueToken(t)

	f.adapter.setMintErr(errors.New("rpc unavailable"))
	if _, err := f.mintService.Dispatch(context.Background(), DispatchInput{
		ClaimToken: token,
		Chain:      constants.ChainEVM,
		Recipient:  "0xrecipient",
	}); !errors.Is(err, ErrMintFailed) {
		t.Fatalf("failed dispatch want ErrMintFailed got %v", err)
	}

	// 预占名额已释放，会话保持 active
	reloaded, err := f.dropRepo.GetByID(drop.ID)
	if err != nil {
		t.Fatalf("reload drop failed: %v", err)
	}
	if reloaded.MintedCount != 0 {
		t.Fatalf("minted count after release want 0 got %d", reloaded.MintedCount)
	}

	f.adapter.setMintErr(nil)
	if _, err := f.mintService.Dispatch(context.Background(), DispatchInput{
		ClaimToken: token,
		Chain:      constants.ChainEVM,
		Recipient:  "0xrecipient",
	}); err != nil {
		t.Fatalf("retry dispatch failed: %v", err)
	}
}

func TestDispatchTimeoutMapsToChainTimeout(t *testing.T) {
	f := setupMintServiceTest(t)
	f.createDrop(t, 10)
	token := f.issueToken(t)

	f.adapter.setMintErr(chain.ErrTimeout)
	if _, err := f.mintService.Dispatch(context.Background(), DispatchInput{
		ClaimToken: token,
		Chain:      constants.ChainEVM,
		Recipient:  "0xrecipient",
	}); !errors.Is(err, ErrChainTimeout) {
		t.Fatalf("want ErrChainTimeout got %v", err)
	}
}

func TestDispatchSupplyExhausted(t *testing.T) {
	f := setupMintServiceTest(t)
	f.createDrop(t, 1)
	first := f.issueToken(t)
	second := f.issueToken(t)

	if _, err := f.mintService.Dispatch(context.Background(), DispatchInput{
		ClaimToken: first,
		Chain:      constants.ChainEVM,
		Recipient:  "0xwinner",
	}); err != nil {
		t.Fatalf("first dispatch failed: %v", err)
	}

	calls := f.adapter.mintCalls()
	if _, err := f.mintService.Dispatch(context.Background(), DispatchInput{
		ClaimToken: second,
		Chain:      constants.ChainEVM,
		Recipient:  "0xloser",
	}); !errors.Is(err, ErrSupplyExhausted) {
		t.Fatalf("second dispatch want ErrSupplyExhausted got %v", err)
	}
	// 输家在任何链上动作之前就已失败
	if f.adapter.mintCalls() != calls {
		t.Fatalf("exhausted dispatch must not reach the chain")
	}
}

func TestDispatchChainNotEnabledForDrop(t *testing.T) {
	f := setupMintServiceTest(t)
	f.createDrop(t, 10, constants.ChainSolana)
	token := f.issueToken(t)

	if _, err := f.mintService.Dispatch(context.Background(), DispatchInput{
		ClaimToken: token,
		Chain:      constants.ChainEVM,
		Recipient:  "0xrecipient",
	}); !errors.Is(err, ErrChainNotEnabled) {
		t.Fatalf("want ErrChainNotEnabled got %v", err)
	}
}

func TestDispatchDisabledChain(t *testing.T) {
	f := setupMintServiceTest(t)
	f.createDrop(t, 10)
	token := f.issueToken(t)

	f.registry.SetDisabled(constants.ChainEVM, true)
	if _, err := f.mintService.Dispatch(context.Background(), DispatchInput{
		ClaimToken: token,
		Chain:      constants.ChainEVM,
		Recipient:  "0xrecipient",
	}); !errors.Is(err, ErrChainDisabled) {
		t.Fatalf("want ErrChainDisabled got %v", err)
	}
}

func TestConfirmExternalIdempotent(t *testing.T) {
	f := setupMintServiceTest(t)
	drop := f.createDrop(t, 10)
	token := f.issueToken(t)

	mint, err := f.mintService.ConfirmExternal(context.Background(), token, "0xexternal", constants.ChainEVM, "0xwallet")
	if err != nil {
		t.Fatalf("confirm external failed: %v", err)
	}
	if mint.Source != constants.MintSourceExternal {
		t.Fatalf("mint source want external got %s", mint.Source)
	}

	again, err := f.mintService.ConfirmExternal(context.Background(), token, "0xexternal", constants.ChainEVM, "0xwallet")
	if err != nil {
		t.Fatalf("repeated confirm failed: %v", err)
	}
	if again.ID != mint.ID {
		t.Fatalf("repeated confirm should return the same mint row, want %d got %d", mint.ID, again.ID)
	}

	reloaded, err := f.dropRepo.GetByID(drop.ID)
	if err != nil {
		t.Fatalf("reload drop failed: %v", err)
	}
	if reloaded.MintedCount != 1 {
		t.Fatalf("minted count want 1 got %d", reloaded.MintedCount)
	}
}

func TestConfirmExternalExpiredToken(t *testing.T) {
	f := setupMintServiceTest(t)
	f.createDrop(t, 10)
	token := f.issueToken(t)

	if err := f.db.Model(&models.ClaimSession{}).
		Where("token_hash = ?", HashClaimToken(token)).
		Update("expires_at", time.Now().Add(-time.Minute)).Error; err != nil {
		t.Fatalf("backdate session failed: %v", err)
	}

	if _, err := f.mintService.ConfirmExternal(context.Background(), token, "0xlate", constants.ChainEVM, "0xwallet"); !errors.Is(err, ErrClaimTokenExpired) {
		t.Fatalf("want ErrClaimTokenExpired got %v", err)
	}
}

func TestDispatchConcurrentSupplyRace(t *testing.T) {
	f := setupMintServiceTest(t)
	drop := f.createDrop(t, 1)
	tokenA := f.issueToken(t)
	tokenB := f.issueToken(t)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, token := range []string{tokenA, tokenB} {
		wg.Add(1)
		go func(i int, token string) {
			defer wg.Done()
			_, errs[i] = f.mintService.Dispatch(context.Background(), DispatchInput{
				ClaimToken: token,
				Chain:      constants.ChainEVM,
				Recipient:  fmt.Sprintf("0xvisitor%d", i),
			})
		}(i, token)
	}
	wg.Wait()

	var wins, exhausted int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrSupplyExhausted):
			exhausted++
		default:
			t.Fatalf("unexpected dispatch error: %v", err)
		}
	}
	if wins != 1 || exhausted != 1 {
		t.Fatalf("want 1 winner and 1 supply-exhausted loser, got %d / %d", wins, exhausted)
	}

	reloaded, err := f.dropRepo.GetByID(drop.ID)
	if err != nil {
		t.Fatalf("reload drop failed: %v", err)
	}
	if reloaded.MintedCount != 1 {
		t.Fatalf("minted count want 1 got %d", reloaded.MintedCount)
	}
	// 输家在预占名额阶段即失败，不应触达链适配器
	if calls := f.adapter.mintCalls(); calls != 1 {
		t.Fatalf("chain mint calls want 1 got %d", calls)
	}
}

func TestDispatchLedgerWriteFailureRollsBackConsume(t *testing.T) {
	f := setupMintServiceTest(t)
	drop := f.createDrop(t, 10)
	token := f.issueToken(t)

	session, err := f.claimService.sessionRepo.GetByTokenHash(HashClaimToken(token))
	if err != nil || session == nil {
		t.Fatalf("load session failed: %v", err)
	}

	// 预置同会话流水：落账时撞唯一索引，消费必须随事务一起回滚
	sessionID := session.ID
	prior := &models.Mint{
		DropID:         drop.ID,
		ClaimSessionID: &sessionID,
		Chain:          constants.ChainEVM,
		Recipient:      "0xprior",
		TxHash:         "0xprior",
		Status:         constants.MintStatusConfirmed,
		Source:         constants.MintSourceWalletless,
	}
	if err := f.mintRepo.Create(prior); err != nil {
		t.Fatalf("create prior mint failed: %v", err)
	}

	mint, err := f.mintService.Dispatch(context.Background(), DispatchInput{
		ClaimToken: token,
		Chain:      constants.ChainEVM,
		Recipient:  "0xrecipient",
	})
	if err != nil {
		t.Fatalf("dispatch should fall back to prior ledger row, got %v", err)
	}
	if mint.ID != prior.ID {
		t.Fatalf("want prior ledger row %d got %d", prior.ID, mint.ID)
	}

	reloadedSession, err := f.claimService.sessionRepo.GetByID(session.ID)
	if err != nil {
		t.Fatalf("reload session failed: %v", err)
	}
	if reloadedSession.Status != constants.ClaimSessionStatusActive {
		t.Fatalf("session status want active after rollback got %s", reloadedSession.Status)
	}

	reloadedDrop, err := f.dropRepo.GetByID(drop.ID)
	if err != nil {
		t.Fatalf("reload drop failed: %v", err)
	}
	if reloadedDrop.MintedCount != 0 {
		t.Fatalf("reservation should be released, minted count want 0 got %d", reloadedDrop.MintedCount)
	}
}

func TestConfirmExternalLedgerWriteFailureRollsBack(t *testing.T) {
	f := setupMintServiceTest(t)
	drop := f.createDrop(t, 10)
	token := f.issueToken(t)

	session, err := f.claimService.sessionRepo.GetByTokenHash(HashClaimToken(token))
	if err != nil || session == nil {
		t.Fatalf("load session failed: %v", err)
	}
	sessionID := session.ID
	prior := &models.Mint{
		DropID:         drop.ID,
		ClaimSessionID: &sessionID,
		Chain:          constants.ChainEVM,
		Recipient:      "0xprior",
		TxHash:         "0xprior",
		Status:         constants.MintStatusConfirmed,
		Source:         constants.MintSourceExternal,
	}
	if err := f.mintRepo.Create(prior); err != nil {
		t.Fatalf("create prior mint failed: %v", err)
	}

	mint, err := f.mintService.ConfirmExternal(context.Background(), token, "0xabc", constants.ChainEVM, "0xwallet")
	if err != nil {
		t.Fatalf("confirm should fall back to prior ledger row, got %v", err)
	}
	if mint.ID != prior.ID {
		t.Fatalf("want prior ledger row %d got %d", prior.ID, mint.ID)
	}

	reloadedSession, err := f.claimService.sessionRepo.GetByID(session.ID)
	if err != nil {
		t.Fatalf("reload session failed: %v", err)
	}
	if reloadedSession.Status != constants.ClaimSessionStatusActive {
		t.Fatalf("session status want active after rollback got %s", reloadedSession.Status)
	}

	reloadedDrop, err := f.dropRepo.GetByID(drop.ID)
	if err != nil {
		t.Fatalf("reload drop failed: %v", err)
	}
	if reloadedDrop.MintedCount != 0 {
		t.Fatalf("increment should roll back, minted count want 0 got %d", reloadedDrop.MintedCount)
	}
}
