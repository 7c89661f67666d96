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

func setupDropRepositoryTest(t *testing.T) (*GormDropRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:drop_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Project{}, &models.Location{}, &models.Drop{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewDropRepository(db), db
}

func createTestDrop(t *testing.T, repo *GormDropRepository, locationID uint, supply int, minted int, status string, active bool) *models.Drop {
	t.Helper()
	drop := &models.Drop{
		LocationID:  locationID,
		Name:        fmt.Sprintf("drop-%d-%d", locationID, time.Now().UnixNano()),
		Supply:      supply,
		MintedCount: minted,
		Status:      status,
		IsActive:    active,
	}
	if err := repo.Create(drop); err != nil {
		t.Fatalf("create drop failed: %v", err)
	}
	return drop
}

func TestIncrementMintedStopsAtSupply(t *testing.T) {
	repo, _ := setupDropRepositoryTest(t)
	drop := createTestDrop(t, repo, 1, 2, 0, constants.DropStatusPublished, true)

	for i := 0; i < 2; i++ {
		affected, err := repo.IncrementMinted(drop.ID)
		if err != nil {
			t.Fatalf("increment %d failed: %v", i, err)
		}
		if affected != 1 {
			t.Fatalf("increment %d affected want 1 got %d", i, affected)
		}
	}

	affected, err := repo.IncrementMinted(drop.ID)
	if err != nil {
		t.Fatalf("increment beyond supply failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("increment beyond supply affected want 0 got %d", affected)
	}

	got, err := repo.GetByID(drop.ID)
	if err != nil {
		t.Fatalf("get drop failed: %v", err)
	}
	if got.MintedCount != 2 {
		t.Fatalf("minted count want 2 got %d", got.MintedCount)
	}
}

func TestIncrementMintedUnlimitedSupply(t *testing.T) {
	repo, _ := setupDropRepositoryTest(t)
	drop := createTestDrop(t, repo, 1, 0, 0, constants.DropStatusPublished, true)

	for i := 0; i < 5; i++ {
		affected, err := repo.IncrementMinted(drop.ID)
		if err != nil {
			t.Fatalf("increment %d failed: %v", i, err)
		}
		if affected != 1 {
			t.Fatalf("increment %d affected want 1 got %d", i, affected)
		}
	}
}

func TestDecrementMintedNotBelowZero(t *testing.T) {
	repo, _ := setupDropRepositoryTest(t)
	drop := createTestDrop(t, repo, 1, 10, 1, constants.DropStatusPublished, true)

	affected, err := repo.DecrementMinted(drop.ID)
	if err != nil {
		t.Fatalf("decrement failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("decrement affected want 1 got %d", affected)
	}

	affected, err = repo.DecrementMinted(drop.ID)
	if err != nil {
		t.Fatalf("decrement at zero failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("decrement at zero affected want 0 got %d", affected)
	}
}

func TestPublishDeactivatesSiblings(t *testing.T) {
	repo, _ := setupDropRepositoryTest(t)
	first := createTestDrop(t, repo, 7, 100, 0, constants.DropStatusPublished, true)
	second := createTestDrop(t, repo, 7, 100, 0, constants.DropStatusDraft, false)
	other := createTestDrop(t, repo, 8, 100, 0, constants.DropStatusPublished, true)

	published, err := repo.Publish(second.ID)
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if published == nil {
		t.Fatalf("publish returned nil drop")
	}
	if published.Status != constants.DropStatusPublished || !published.IsActive {
		t.Fatalf("published drop should be active, got status=%s active=%v", published.Status, published.IsActive)
	}

	reloaded, err := repo.GetByID(first.ID)
	if err != nil {
		t.Fatalf("reload sibling failed: %v", err)
	}
	if reloaded.IsActive {
		t.Fatalf("sibling drop should be deactivated")
	}

	unrelated, err := repo.GetByID(other.ID)
	if err != nil {
		t.Fatalf("reload unrelated failed: %v", err)
	}
	if !unrelated.IsActive {
		t.Fatalf("drop at another location should stay active")
	}

	active, err := repo.GetActiveByLocation(7)
	if err != nil {
		t.Fatalf("get active failed: %v", err)
	}
	if active == nil || active.ID != second.ID {
		t.Fatalf("active drop want %d got %+v", second.ID, active)
	}
}

func TestGetActiveByLocationIgnoresDraft(t *testing.T) {
	repo, _ := setupDropRepositoryTest(t)
	createTestDrop(t, repo, 3, 100, 0, constants.DropStatusDraft, true)

	active, err := repo.GetActiveByLocation(3)
	if err != nil {
		t.Fatalf("get active failed: %v", err)
	}
	if active != nil {
		t.Fatalf("draft drop should not be returned as active, got %+v", active)
	}
}

func TestIncrementMintedConcurrentSingleSupply(t *testing.T) {
	repo, _ := setupDropRepositoryTest(t)
	drop := createTestDrop(t, repo, 1, 1, 0, constants.DropStatusPublished, true)

	const attempts = 16
	var wg sync.WaitGroup
	var winners int64
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			affected, err := repo.IncrementMinted(drop.ID)
			if err != nil {
				t.Errorf("increment failed: %v", err)
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
	reloaded, err := repo.GetByID(drop.ID)
	if err != nil {
		t.Fatalf("reload drop failed: %v", err)
	}
	if reloaded.MintedCount != 1 {
		t.Fatalf("minted count want 1 got %d", reloaded.MintedCount)
	}
}
