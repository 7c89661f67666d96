package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/mintoria-api/internal/config"
	"github.com/mintoria-api/internal/constants"
	"github.com/mintoria-api/internal/logger"
	"github.com/mintoria-api/internal/models"
	"github.com/mintoria-api/internal/repository"
)

const claimTokenBytes = 32

// ClaimService 领取会话管理：签发、校验、单次消费领取令牌
type ClaimService struct {
	cfg         *config.Config
	dropRepo    repository.DropRepository
	sessionRepo repository.ClaimSessionRepository
}

// NewClaimService 创建领取会话服务
func NewClaimService(cfg *config.Config, dropRepo repository.DropRepository, sessionRepo repository.ClaimSessionRepository) *ClaimService {
	return &ClaimService{
		cfg:         cfg,
		dropRepo:    dropRepo,
		sessionRepo: sessionRepo,
	}
}

// CreateSessionResult 签发结果，原始令牌仅此一次返回
type CreateSessionResult struct {
	Token     string
	Session   *models.ClaimSession
	Drop      *models.Drop
	ExpiresAt time.Time
}

// CreateSession 为地点当前活跃 Drop 签发领取令牌；只存令牌摘要，原始令牌不可恢复
func (s *ClaimService) CreateSession(locationID uint, clientIP string) (*CreateSessionResult, error) {
	drop, err := s.dropRepo.GetActiveByLocation(locationID)
	if err != nil {
		return nil, err
	}
	if drop == nil {
		return nil, ErrNoActiveDrop
	}
	// 创建时的名额检查只是快速失败，真正的不变量由调度时的原子递增保证
	if drop.Supply > 0 && drop.MintedCount >= drop.Supply {
		return nil, ErrSupplyExhausted
	}

	raw := make([]byte, claimTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	token := hex.EncodeToString(raw)

	ttl := time.Duration(s.cfg.Claim.SessionTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	session := &models.ClaimSession{
		DropID:    drop.ID,
		TokenHash: HashClaimToken(token),
		Status:    constants.ClaimSessionStatusActive,
		IPHash:    hashClientIP(clientIP),
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, err
	}

	logger.Infow("claim_session_created",
		"session_id", session.ID,
		"drop_id", drop.ID,
		"expires_at", session.ExpiresAt,
	)
	return &CreateSessionResult{
		Token:     token,
		Session:   session,
		Drop:      drop,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// Validate 校验令牌并返回会话，只读不改状态；消费由调度器在铸造成功后执行
func (s *ClaimService) Validate(token string) (*models.ClaimSession, error) {
	if token == "" {
		return nil, ErrClaimTokenInvalid
	}
	session, err := s.sessionRepo.GetByTokenHash(HashClaimToken(token))
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrClaimTokenInvalid
	}
	switch session.Status {
	case constants.ClaimSessionStatusConsumed:
		return nil, ErrSessionConsumed
	case constants.ClaimSessionStatusExpired:
		return nil, ErrClaimTokenExpired
	}
	if session.Expired(time.Now()) {
		return nil, ErrClaimTokenExpired
	}
	return session, nil
}

// Consume 原子消费会话，并发调用最多一次成功，输家收到 ErrSessionConsumed
func (s *ClaimService) Consume(sessionID uint) error {
	affected, err := s.sessionRepo.Consume(sessionID, time.Now())
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSessionConsumed
	}
	return nil
}

// ExpireOverdue 批量过期未消费的超时会话（后台清扫用）
func (s *ClaimService) ExpireOverdue() (int64, error) {
	return s.sessionRepo.ExpireOverdue(time.Now())
}

// HashClaimToken 计算领取令牌摘要（sha256 hex）
func HashClaimToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func hashClientIP(clientIP string) string {
	if clientIP == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(clientIP))
	return hex.EncodeToString(sum[:])
}
