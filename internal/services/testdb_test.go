package services

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/thecawe/cellar/internal/models"
)

// openTestDB gives each test its own in-memory sqlite database.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	for _, m := range []any{
		&models.User{}, &models.Wine{}, &models.CellarItem{}, &models.Message{}, &models.ScanEvent{},
	} {
		if err := conn.AutoMigrate(m); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return conn
}

func createTestUser(t *testing.T, conn *gorm.DB, email string) models.User {
	t.Helper()
	user := models.User{
		Email:    email,
		Name:     "Test User",
		Password: "x",
		Role:     models.RoleUser,
		Status:   models.StatusApproved,
	}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}
