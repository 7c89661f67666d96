package service

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/mintoria-api/internal/chain"
	"github.com/mintoria-api/internal/config"
	"github.com/mintoria-api/internal/logger"
	"github.com/mintoria-api/internal/models"
	"github.com/mintoria-api/internal/repository"

	"golang.org/x/crypto/scrypt"
)

// 托管私钥 KDF 参数（scrypt）
const (
	vaultKDFSaltPrefix = "mintoria/walletless-key/v"
	vaultKDFCostN      = 1 << 15
	vaultKDFCostR      = 8
	vaultKDFCostP      = 1
	vaultKeyLen        = 32
)

// VaultService 托管钱包保险库：按 (用户, 链) 生成密钥对并加密落库，铸造时解密使用
type VaultService struct {
	cfg      config.VaultConfig
	secret   string
	repo     repository.WalletlessRepository
	registry *chain.Registry

	mu          sync.Mutex
	derivedKeys map[int][]byte // 按密钥版本缓存派生结果，scrypt 代价较高
}

// NewVaultService 创建保险库服务；未配置主密钥时生成临时密钥并告警（重启后既有密文不可解）
func NewVaultService(cfg config.VaultConfig, repo repository.WalletlessRepository, registry *chain.Registry) *VaultService {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		raw := make([]byte, 32)
		if _, err := rand.Read(raw); err != nil {
			logger.Errorw("vault_secret_generate_failed", "error", err)
		} else {
			secret = hex.EncodeToString(raw)
			logger.Warnw("vault_secret_generated",
				"hint", "persist vault.secret or previously issued custodial keys become unreadable",
			)
		}
	}
	if cfg.KeyVersion <= 0 {
		cfg.KeyVersion = 1
	}
	return &VaultService{
		cfg:         cfg,
		secret:      secret,
		repo:        repo,
		registry:    registry,
		derivedKeys: make(map[int][]byte),
	}
}

// EnsureKey 幂等获取或创建 (用户, 链) 的托管钱包；并发创建冲突时重读既有行
func (s *VaultService) EnsureKey(ctx context.Context, userID uint, chainID string) (*models.WalletlessKey, error) {
	existing, err := s.repo.GetKey(userID, chainID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	adapter, err := s.registry.Get(chainID)
	if err != nil {
		return nil, ErrChainDisabled
	}
	address, secret, err := adapter.GenerateKeypair()
	if err != nil {
		return nil, err
	}

	ciphertext, version, err := s.encrypt(secret)
	if err != nil {
		return nil, err
	}

	key := &models.WalletlessKey{
		UserID:          userID,
		Chain:           chainID,
		Address:         address,
		EncryptedSecret: ciphertext,
		KeyVersion:      version,
	}
	if err := s.repo.CreateKey(key); err != nil {
		if err == repository.ErrKeyExists {
			// 并发创建输掉了唯一约束竞争，读取胜者的行
			return s.repo.GetKey(userID, chainID)
		}
		return nil, err
	}
	logger.Infow("walletless_key_created", "user_id", userID, "chain", chainID, "address", address)
	return key, nil
}

// EnsureKeysForChains 为用户在给定链集合上懒创建托管钱包；单链失败不阻断其余链
func (s *VaultService) EnsureKeysForChains(ctx context.Context, userID uint, chains []string) {
	for _, chainID := range chains {
		if _, err := s.EnsureKey(ctx, userID, chainID); err != nil {
			logger.Warnw("walletless_key_provision_failed", "user_id", userID, "chain", chainID, "error", err)
		}
	}
}

// RevealSecret 解密托管私钥明文，仅限单次铸造使用，调用方不得落库或打日志
func (s *VaultService) RevealSecret(key *models.WalletlessKey) (string, error) {
	if key == nil {
		return "", ErrNotFound
	}
	return s.decrypt(key.EncryptedSecret)
}

// encrypt 以当前密钥版本加密，输出信封格式 v<version>:<base64(nonce||sealed)>
func (s *VaultService) encrypt(plaintext string) (string, int, error) {
	if s.secret == "" {
		return "", 0, ErrVaultSecretMissing
	}
	version := s.cfg.KeyVersion
	key, err := s.deriveKey(version)
	if err != nil {
		return "", 0, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", 0, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", 0, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", 0, err
	}
	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	payload := append(nonce, sealed...)
	return fmt.Sprintf("v%d:%s", version, base64.StdEncoding.EncodeToString(payload)), version, nil
}

// decrypt 解析信封并解密；格式损坏、版本不符或主密钥变更一律返回 ErrVaultDecrypt
func (s *VaultService) decrypt(envelope string) (string, error) {
	if s.secret == "" {
		return "", ErrVaultSecretMissing
	}
	version, payload, err := parseVaultEnvelope(envelope)
	if err != nil {
		return "", ErrVaultDecrypt
	}
	key, err := s.deriveKey(version)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	if len(payload) <= gcm.NonceSize() {
		return "", ErrVaultDecrypt
	}
	nonce, sealed := payload[:gcm.NonceSize()], payload[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrVaultDecrypt
	}
	return string(plaintext), nil
}

// deriveKey 派生指定版本的加密密钥，盐带版本号做域隔离
func (s *VaultService) deriveKey(version int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key, ok := s.derivedKeys[version]; ok {
		return key, nil
	}
	salt := []byte(vaultKDFSaltPrefix + strconv.Itoa(version))
	key, err := scrypt.Key([]byte(s.secret), salt, vaultKDFCostN, vaultKDFCostR, vaultKDFCostP, vaultKeyLen)
	if err != nil {
		return nil, err
	}
	s.derivedKeys[version] = key
	return key, nil
}

func parseVaultEnvelope(envelope string) (int, []byte, error) {
	if !strings.HasPrefix(envelope, "v") {
		return 0, nil, fmt.Errorf("missing version prefix")
	}
	sep := strings.IndexByte(envelope, ':')
	if sep <= 1 {
		return 0, nil, fmt.Errorf("malformed envelope")
	}
	version, err := strconv.Atoi(envelope[1:sep])
	if err != nil || version <= 0 {
		return 0, nil, fmt.Errorf("bad version")
	}
	payload, err := base64.StdEncoding.DecodeString(envelope[sep+1:])
	if err != nil {
		return 0, nil, err
	}
	return version, payload, nil
}
