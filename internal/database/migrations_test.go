package database

import (
	"path/filepath"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Mahmoudshahin94/M-R-MOTORS/internal/catalog"
)

func TestApplyMigrationsBackfillsListingImages(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	if err := database.AutoMigrate(&catalog.Listing{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	bare := catalog.Listing{ID: "listing-1", Title: "No photo yet", OwnerID: "user-1"}
	if err := database.Create(&bare).Error; err != nil {
		testContext.Fatalf("failed to insert listing: %v", err)
	}
	pictured := catalog.Listing{ID: "listing-2", Title: "Has photo", OwnerID: "user-1", ImageURL: "https://cdn.example.com/car.jpg"}
	if err := database.Create(&pictured).Error; err != nil {
		testContext.Fatalf("failed to insert listing: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var stored catalog.Listing
	if err := database.Take(&stored, "id = ?", "listing-1").Error; err != nil {
		testContext.Fatalf("failed to reload listing: %v", err)
	}
	if stored.ImageURL != placeholderImageURL {
		testContext.Fatalf("expected placeholder image, got %q", stored.ImageURL)
	}

	stored = catalog.Listing{}
	if err := database.Take(&stored, "id = ?", "listing-2").Error; err != nil {
		testContext.Fatalf("failed to reload listing: %v", err)
	}
	if stored.ImageURL != "https://cdn.example.com/car.jpg" {
		testContext.Fatalf("existing image must be untouched, got %q", stored.ImageURL)
	}

	var record migrationRecord
	if err := database.Where("name = ?", migrationBackfillListingImages).Take(&record).Error; err != nil {
		testContext.Fatalf("expected migration record to be created: %v", err)
	}
	if record.AppliedAtSeconds == 0 {
		testContext.Fatalf("expected migration timestamp to be set")
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("reapplying migrations must be a no-op: %v", err)
	}
}
