package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// VerifyCodeStore 验证码存取抽象，键为邮箱，单邮箱同一时刻至多一个有效验证码
type VerifyCodeStore interface {
	Set(ctx context.Context, email, code string, ttl time.Duration) error
	Get(ctx context.Context, email string) (string, bool, error)
	Delete(ctx context.Context, email string) error
}

func verifyCodeKey(email string) string {
	return fmt.Sprintf("walletless:code:%s", email)
}

// RedisVerifyCodeStore 基于 Redis 的验证码存储，TTL 由 Redis 管理
type RedisVerifyCodeStore struct{}

// NewRedisVerifyCodeStore 创建 Redis 验证码存储
func NewRedisVerifyCodeStore() *RedisVerifyCodeStore {
	return &RedisVerifyCodeStore{}
}

// Set 写入验证码，覆盖同邮箱旧验证码
func (s *RedisVerifyCodeStore) Set(ctx context.Context, email, code string, ttl time.Duration) error {
	if !Enabled() {
		return nil
	}
	return Client().Set(ctx, buildKey(verifyCodeKey(email)), code, ttl).Err()
}

// Get 读取当前有效验证码
func (s *RedisVerifyCodeStore) Get(ctx context.Context, email string) (string, bool, error) {
	if !Enabled() {
		return "", false, nil
	}
	val, err := Client().Get(ctx, buildKey(verifyCodeKey(email))).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Delete 删除验证码（校验成功后单次使用作废）
func (s *RedisVerifyCodeStore) Delete(ctx context.Context, email string) error {
	if !Enabled() {
		return nil
	}
	return Client().Del(ctx, buildKey(verifyCodeKey(email))).Err()
}

type memoryCodeEntry struct {
	code      string
	expiresAt time.Time
}

// MemoryVerifyCodeStore 进程内验证码存储，带 TTL 剔除，Redis 不可用时的退路
type MemoryVerifyCodeStore struct {
	mu      sync.Mutex
	entries map[string]memoryCodeEntry
}

// NewMemoryVerifyCodeStore 创建进程内验证码存储
func NewMemoryVerifyCodeStore() *MemoryVerifyCodeStore {
	return &MemoryVerifyCodeStore{entries: make(map[string]memoryCodeEntry)}
}

// Set 写入验证码，覆盖同邮箱旧验证码
func (s *MemoryVerifyCodeStore) Set(ctx context.Context, email, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(time.Now())
	s.entries[email] = memoryCodeEntry{code: code, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Get 读取当前有效验证码，过期条目顺带剔除
func (s *MemoryVerifyCodeStore) Get(ctx context.Context, email string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[email]
	if !ok {
		return "", false, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.entries, email)
		return "", false, nil
	}
	return entry.code, true, nil
}

// Delete 删除验证码
func (s *MemoryVerifyCodeStore) Delete(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, email)
	return nil
}

// pruneLocked 清理过期条目，防止无界增长；调用方需持锁
func (s *MemoryVerifyCodeStore) pruneLocked(now time.Time) {
	for email, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, email)
		}
	}
}
