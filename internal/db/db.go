package db

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/thecawe/cellar/internal/models"
)

// ConnectAndMigrate opens the database named by dsn and brings the
// schema up to date. Postgres DSNs get a connection retry loop (the
// container may come up after us); anything else is treated as sqlite.
func ConnectAndMigrate(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty DATABASE_DSN")
	}
	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var conn *gorm.DB
	var err error
	if isPostgres(dsn) {
		for i := 0; i < 10; i++ {
			conn, err = gorm.Open(postgres.Open(dsn), cfg)
			if err == nil {
				break
			}
			log.Warn().Err(err).Msg("retrying DB connection")
			time.Sleep(2 * time.Second)
		}
	} else {
		conn, err = gorm.Open(sqlite.Open(dsn), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if pingErr := conn.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}

	// MIGRATIONS=1 runs versioned SQL migrations (postgres only);
	// otherwise AutoMigrate keeps dev setups simple.
	if v := strings.ToLower(os.Getenv("MIGRATIONS")); isPostgres(dsn) && (v == "1" || v == "true" || v == "yes") {
		if err := runSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		if err := AutoMigrate(conn); err != nil {
			return nil, err
		}
	}

	if v := strings.ToLower(os.Getenv("DB_SEED")); v == "1" || v == "true" || v == "yes" {
		seed(conn)
	}
	return conn, nil
}

// AutoMigrate creates or updates all application tables.
func AutoMigrate(conn *gorm.DB) error {
	for _, m := range []any{
		&models.User{}, &models.Wine{}, &models.CellarItem{}, &models.Message{}, &models.ScanEvent{},
	} {
		if err := conn.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}

func isPostgres(dsn string) bool {
	lower := strings.ToLower(dsn)
	return strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") ||
		strings.Contains(lower, "host=")
}

// seed installs a demo admin with a small starter cellar. Dev only.
func seed(conn *gorm.DB) {
	var existing models.User
	if err := conn.Where("email = ?", "demo@thecawe.com").First(&existing).Error; err == nil {
		return
	}
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	admin := models.User{
		Email:    "demo@thecawe.com",
		Name:     "Jean Sommelier",
		Password: string(hash),
		Role:     models.RoleAdmin,
		Status:   models.StatusApproved,
	}
	if err := conn.Create(&admin).Error; err != nil {
		log.Warn().Err(err).Msg("seed admin failed")
		return
	}
	wines := []models.Wine{
		{Name: "Château Margaux", Producer: "Château Margaux", Vintage: 2015, Type: models.WineRed, Region: "Bordeaux", Country: "France", Grapes: "Cabernet Sauvignon"},
		{Name: "Domaine de la Romanée-Conti", Producer: "DRC", Vintage: 2018, Type: models.WineRed, Region: "Burgundy", Country: "France", Grapes: "Pinot Noir"},
		{Name: "Dom Pérignon Vintage", Producer: "Moët & Chandon", Vintage: 2012, Type: models.WineSparkling, Region: "Champagne", Country: "France", Grapes: "Chardonnay, Pinot Noir"},
	}
	for _, w := range wines {
		wine := w
		if err := conn.Create(&wine).Error; err != nil {
			continue
		}
		conn.Create(&models.CellarItem{UserID: admin.ID, WineID: wine.ID, Quantity: 2, BuyPrice: 150, IsVisible: true, AddedAt: time.Now()})
	}
}
