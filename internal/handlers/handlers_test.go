package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/thecawe/cellar/internal/auth"
	"github.com/thecawe/cellar/internal/models"
)

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

func createApprovedUser(t *testing.T, conn *gorm.DB, email string) models.User {
	t.Helper()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	user := models.User{
		Email:    email,
		Name:     "Test User",
		Password: string(hash),
		Role:     models.RoleUser,
		Status:   models.StatusApproved,
	}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// jsonRequest builds an API-style request carrying the user in context.
func jsonRequest(method, target string, form url.Values, uid uint) *http.Request {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("Accept", "application/json")
	if uid != 0 {
		req = req.WithContext(auth.WithUserID(req.Context(), uid))
	}
	return req
}
