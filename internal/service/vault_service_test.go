package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mintoria-api/internal/chain"
	"github.com/mintoria-api/internal/config"
	"github.com/mintoria-api/internal/constants"
	"github.com/mintoria-api/internal/models"
	"github.com/mintoria-api/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupVaultServiceTest(t *testing.T) (*VaultService, repository.WalletlessRepository, *fakeChainAdapter) {
	t.Helper()
	dsn := fmt.Sprintf("file:vault_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.WalletlessUser{}, &models.WalletlessKey{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	adapter := newFakeChainAdapter(constants.ChainEVM)
	registry := chain.NewRegistry()
	registry.Register(adapter)

	repo := repository.NewWalletlessRepository(db)
	cfg := config.VaultConfig{Secret: "unit-test-master-secret-0123456789abcdef", KeyVersion: 1}
	return NewVaultService(cfg, repo, registry), repo, adapter
}

func TestEnsureKeyRoundTrip(t *testing.T) {
	vault, repo, _ := setupVaultServiceTest(t)
	ctx := context.Background()

	key, err := vault.EnsureKey(ctx, 1, constants.ChainEVM)
	if err != nil {
		t.Fatalf("ensure key failed: %v", err)
	}
	if key.Address == "" {
		t.Fatalf("address should be set")
	}
	if !strings.HasPrefix(key.EncryptedSecret, "v1:") {
		t.Fatalf("ciphertext should use envelope format, got %q", key.EncryptedSecret)
	}
	if strings.Contains(key.EncryptedSecret, "evm-secret-1") {
		t.Fatalf("plaintext must not appear in stored ciphertext")
	}

	secret, err := vault.RevealSecret(key)
	if err != nil {
		t.Fatalf("reveal secret failed: %v", err)
	}
	if secret != "evm-secret-1" {
		t.Fatalf("revealed secret want evm-secret-1 got %q", secret)
	}

	// 幂等：第二次返回同一行，不生成新密钥对
	again, err := vault.EnsureKey(ctx, 1, constants.ChainEVM)
	if err != nil {
		t.Fatalf("second ensure failed: %v", err)
	}
	if again.ID != key.ID || again.Address != key.Address {
		t.Fatalf("ensure should be idempotent, first %+v second %+v", key, again)
	}
	count, err := repo.CountKeys(1, constants.ChainEVM)
	if err != nil {
		t.Fatalf("count keys failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("key rows want 1 got %d", count)
	}
}

func TestEnsureKeyUnknownChain(t *testing.T) {
	vault, _, _ := setupVaultServiceTest(t)
	if _, err := vault.EnsureKey(context.Background(), 1, "unknown"); !errors.Is(err, ErrChainDisabled) {
		t.Fatalf("want ErrChainDisabled got %v", err)
	}
}

func TestRevealSecretTamperedCiphertext(t *testing.T) {
	vault, _, _ := setupVaultServiceTest(t)
	key, err := vault.EnsureKey(context.Background(), 1, constants.ChainEVM)
	if err != nil {
		t.Fatalf("ensure key failed: %v", err)
	}

	// 合法 base64 但内容被篡改
	tampered := *key
	tampered.EncryptedSecret = "v1:" + base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef0123456789"))
	if _, err := vault.RevealSecret(&tampered); !errors.Is(err, ErrVaultDecrypt) {
		t.Fatalf("tampered ciphertext want ErrVaultDecrypt got %v", err)
	}

	malformed := *key
	malformed.EncryptedSecret = "not-an-envelope"
	if _, err := vault.RevealSecret(&malformed); !errors.Is(err, ErrVaultDecrypt) {
		t.Fatalf("malformed envelope want ErrVaultDecrypt got %v", err)
	}
}

func TestRevealSecretWrongMasterKey(t *testing.T) {
	vault, repo, _ := setupVaultServiceTest(t)
	key, err := vault.EnsureKey(context.Background(), 1, constants.ChainEVM)
	if err != nil {
		t.Fatalf("ensure key failed: %v", err)
	}

	adapter := newFakeChainAdapter(constants.ChainEVM)
	registry := chain.NewRegistry()
	registry.Register(adapter)
	other := NewVaultService(config.VaultConfig{Secret: "a-different-master-secret-fedcba98765432", KeyVersion: 1}, repo, registry)
	if _, err := other.RevealSecret(key); !errors.Is(err, ErrVaultDecrypt) {
		t.Fatalf("wrong master key want ErrVaultDecrypt got %v", err)
	}
}

func TestEncryptEnvelopeCarriesKeyVersion(t *testing.T) {
	vault, _, _ := setupVaultServiceTest(t)
	ciphertext, version, err := vault.encrypt("hello")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if version != 1 {
		t.Fatalf("version want 1 got %d", version)
	}
	if !strings.HasPrefix(ciphertext, "v1:") {
		t.Fatalf("envelope prefix want v1: got %q", ciphertext)
	}
	plaintext, err := vault.decrypt(ciphertext)
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if plaintext != "hello" {
		t.Fatalf("plaintext want hello got %q", plaintext)
	}
}

func TestEnsureKeyConcurrentSingleRow(t *testing.T) {
	vault, repo, _ := setupVaultServiceTest(t)
	ctx := context.Background()

	const callers = 8
	var wg sync.WaitGroup
	addresses := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key, err := vault.EnsureKey(ctx, 42, constants.ChainEVM)
			if err != nil {
				t.Errorf("ensure key failed: %v", err)
				return
			}
			addresses[i] = key.Address
		}(i)
	}
	wg.Wait()

	count, err := repo.CountKeys(42, constants.ChainEVM)
	if err != nil {
		t.Fatalf("count keys failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("key rows want 1 got %d", count)
	}
	for i := 1; i < callers; i++ {
		if addresses[i] != addresses[0] {
			t.Fatalf("all callers should see the same address, got %q and %q", addresses[0], addresses[i])
		}
	}
}
