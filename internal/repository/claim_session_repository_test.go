package repository

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mintoria-api/internal/constants"
	"github.com/mintoria-api/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupClaimSessionRepositoryTest(t *testing.T) (*GormClaimSessionRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:claim_session_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Drop{}, &models.ClaimSession{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewClaimSessionRepository(db), db
}

func TestConsumeOnlyOnce(t *testing.T) {
	repo, _ := setupClaimSessionRepositoryTest(t)
	session := &models.ClaimSession{
		DropID:    1,
		TokenHash: "hash-consume-once",
		Status:    constants.ClaimSessionStatusActive,
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}
	if err := repo.Create(session); err != nil {
		t.Fatalf("create session failed: %v", err)
	}

	affected, err := repo.Consume(session.ID, time.Now())
	if err != nil {
		t.Fatalf("first consume failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("first consume affected want 1 got %d", affected)
	}

	affected, err = repo.Consume(session.ID, time.Now())
	if err != nil {
		t.Fatalf("second consume failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("second consume affected want 0 got %d", affected)
	}

	got, err := repo.GetByID(session.ID)
	if err != nil {
		t.Fatalf("reload session failed: %v", err)
	}
	if got.Status != constants.ClaimSessionStatusConsumed {
		t.Fatalf("status want consumed got %s", got.Status)
	}
	if got.ConsumedAt == nil {
		t.Fatalf("consumed_at should be set")
	}
}

func TestExpireOverdueSkipsConsumed(t *testing.T) {
	repo, _ := setupClaimSessionRepositoryTest(t)
	overdue := &models.ClaimSession{
		DropID:    1,
		TokenHash: "hash-overdue",
		Status:    constants.ClaimSessionStatusActive,
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	consumed := &models.ClaimSession{
		DropID:    1,
		TokenHash: "hash-consumed",
		Status:    constants.ClaimSessionStatusConsumed,
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	fresh := &models.ClaimSession{
		DropID:    1,
		TokenHash: "hash-fresh",
		Status:    constants.ClaimSessionStatusActive,
		ExpiresAt: time.Now().Add(time.Minute),
	}
	for _, s := range []*models.ClaimSession{overdue, consumed, fresh} {
		if err := repo.Create(s); err != nil {
			t.Fatalf("create session failed: %v", err)
		}
	}

	expired, err := repo.ExpireOverdue(time.Now())
	if err != nil {
		t.Fatalf("expire overdue failed: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expired count want 1 got %d", expired)
	}

	got, err := repo.GetByID(overdue.ID)
	if err != nil {
		t.Fatalf("reload overdue failed: %v", err)
	}
	if got.Status != constants.ClaimSessionStatusExpired {
		t.Fatalf("overdue status want expired got %s", got.Status)
	}
	got, err = repo.GetByID(fresh.ID)
	if err != nil {
		t.Fatalf("reload fresh failed: %v", err)
	}
	if got.Status != constants.ClaimSessionStatusActive {
		t.Fatalf("fresh status want active got %s", got.Status)
	}
}

func TestGetByTokenHashNotFound(t *testing.T) {
	repo, _ := setupClaimSessionRepositoryTest(t)
	session, err := repo.GetByTokenHash("missing")
	if err != nil {
		t.Fatalf("get by token hash failed: %v", err)
	}
	if session != nil {
		t.Fatalf("missing token should return nil, got %+v", session)
	}
}

func TestConsumeConcurrentSingleWinner(t *testing.T) {
	repo, _ := setupClaimSessionRepositoryTest(t)
	session := &models.ClaimSession{
		DropID:    1,
		TokenHash: "hash-consume-race",
		Status:    constants.ClaimSessionStatusActive,
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}
	if err := repo.Create(session); err != nil {
		t.Fatalf("create session failed: %v", err)
	}

	const attempts = 8
	var wg sync.WaitGroup
	var winners int64
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			affected, err := repo.Consume(session.ID, time.Now())
			if err != nil {
				t.Errorf("consume failed: %v", err)
				return
			}
			if affected == 1 {
				atomic.AddInt64(&winners, 1)
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Fatalf("winners want 1 got %d", winners)
	}
	reloaded, err := repo.GetByID(session.ID)
	if err != nil {
		t.Fatalf("reload session failed: %v", err)
	}
	if reloaded.Status != constants.ClaimSessionStatusConsumed {
		t.Fatalf("status want consumed got %s", reloaded.Status)
	}
}
