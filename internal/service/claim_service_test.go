package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mintoria-api/internal/config"
	"github.com/mintoria-api/internal/constants"
	"github.com/mintoria-api/internal/models"
	"github.com/mintoria-api/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupClaimServiceTest(t *testing.T) (*ClaimService, repository.DropRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:claim_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
	cfg := &config.Config{Claim: config.ClaimConfig{SessionTTLSeconds: 300}}
	dropRepo := repository.NewDropRepository(db)
	sessionRepo := repository.NewClaimSessionRepository(db)
	return NewClaimService(cfg, dropRepo, sessionRepo), dropRepo, db
}

func createActiveDrop(t *testing.T, repo repository.DropRepository, locationID uint, supply, minted int) *models.Drop {
	t.Helper()
	drop := &models.Drop{
		LocationID:  locationID,
		Name:        "Paris Visit 2026",
		Supply:      supply,
		MintedCount: minted,
		Status:      constants.DropStatusPublished,
		IsActive:    true,
	}
	if err := repo.Create(drop); err != nil {
		t.Fatalf("create drop failed: %v", err)
	}
	return drop
}

func TestCreateSessionStoresOnlyTokenHash(t *testing.T) {
	svc, dropRepo, db := setupClaimServiceTest(t)
	createActiveDrop(t, dropRepo, 1, 100, 0)

	result, err := svc.CreateSession(1, "1.2.3.4")
	if err != nil {
		t.Fatalf("create session failed: %v", err)
	}
	if result.Token == "" {
		t.Fatalf("raw token should be returned")
	}
	if result.Session.TokenHash == result.Token {
		t.Fatalf("raw token must not be stored")
	}
	if result.Session.TokenHash != HashClaimToken(result.Token) {
		t.Fatalf("stored hash does not match token digest")
	}

	var stored models.ClaimSession
	if err := db.First(&stored, result.Session.ID).Error; err != nil {
		t.Fatalf("load session failed: %v", err)
	}
	if stored.Status != constants.ClaimSessionStatusActive {
		t.Fatalf("status want active got %s", stored.Status)
	}
	if stored.IPHash == "" || stored.IPHash == "1.2.3.4" {
		t.Fatalf("client ip should be stored hashed, got %q", stored.IPHash)
	}
}

func TestCreateSessionNoActiveDrop(t *testing.T) {
	svc, _, _ := setupClaimServiceTest(t)
	if _, err := svc.CreateSession(42, ""); !errors.Is(err, ErrNoActiveDrop) {
		t.Fatalf("want ErrNoActiveDrop got %v", err)
	}
}

func TestCreateSessionSupplyExhaustedFastFail(t *testing.T) {
	svc, dropRepo, _ := setupClaimServiceTest(t)
	createActiveDrop(t, dropRepo, 1, 3, 3)

	if _, err := svc.CreateSession(1, ""); !errors.Is(err, ErrSupplyExhausted) {
		t.Fatalf("want ErrSupplyExhausted got %v", err)
	}
}

func TestValidateUnknownToken(t *testing.T) {
	svc, _, _ := setupClaimServiceTest(t)
	if _, err := svc.Validate("deadbeef"); !errors.Is(err, ErrClaimTokenInvalid) {
		t.Fatalf("want ErrClaimTokenInvalid got %v", err)
	}
	if _, err := svc.Validate(""); !errors.Is(err, ErrClaimTokenInvalid) {
		t.Fatalf("empty token want ErrClaimTokenInvalid got %v", err)
	}
}

func TestValidateExpiredToken(t *testing.T) {
	svc, dropRepo, db := setupClaimServiceTest(t)
	createActiveDrop(t, dropRepo, 1, 100, 0)

	result, err := svc.CreateSession(1, "")
	if err != nil {
		t.Fatalf("create session failed: %v", err)
	}
	if err := db.Model(&models.ClaimSession{}).
		Where("id = ?", result.Session.ID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error; err != nil {
		t.Fatalf("backdate session failed: %v", err)
	}

	if _, err := svc.Validate(result.Token); !errors.Is(err, ErrClaimTokenExpired) {
		t.Fatalf("want ErrClaimTokenExpired got %v", err)
	}
}

func TestConsumeSecondCallLoses(t *testing.T) {
	svc, dropRepo, _ := setupClaimServiceTest(t)
	createActiveDrop(t, dropRepo, 1, 100, 0)

	result, err := svc.CreateSession(1, "")
	if err != nil {
		t.Fatalf("create session failed: %v", err)
	}
	if err := svc.Consume(result.Session.ID); err != nil {
		t.Fatalf("first consume failed: %v", err)
	}
	if err := svc.Consume(result.Session.ID); !errors.Is(err, ErrSessionConsumed) {
		t.Fatalf("second consume want ErrSessionConsumed got %v", err)
	}
	if _, err := svc.Validate(result.Token); !errors.Is(err, ErrSessionConsumed) {
		t.Fatalf("validate consumed want ErrSessionConsumed got %v", err)
	}
}

func TestExpireOverdueSweep(t *testing.T) {
	svc, dropRepo, db := setupClaimServiceTest(t)
	createActiveDrop(t, dropRepo, 1, 100, 0)

	result, err := svc.CreateSession(1, "")
	if err != nil {
		t.Fatalf("create session failed: %v", err)
	}
	if err := db.Model(&models.ClaimSession{}).
		Where("id = ?", result.Session.ID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error; err != nil {
		t.Fatalf("backdate session failed: %v", err)
	}

	expired, err := svc.ExpireOverdue()
	if err != nil {
		t.Fatalf("expire overdue failed: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expired count want 1 got %d", expired)
	}
	if _, err := svc.Validate(result.Token); !errors.Is(err, ErrClaimTokenExpired) {
		t.Fatalf("swept session want ErrClaimTokenExpired got %v", err)
	}
}
