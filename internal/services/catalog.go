package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/thecawe/cellar/internal/models"
)

// CatalogService resolves catalog wines by their identity triple
// (name, producer, vintage).
type CatalogService struct {
	DB *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService { return &CatalogService{DB: db} }

// WineAttrs carries the optional attributes applied when a resolve
// misses and a new catalog row is created. Attributes of an existing
// row are left untouched: the catalog stays immutable post-creation.
type WineAttrs struct {
	Type    string
	Region  string
	Country string
	Grapes  string
	Image   string
}

// Resolve returns the catalog wine for the triple, inserting it on a
// miss. The unique index on the triple closes the concurrent-insert
// race: when two resolves miss simultaneously, the loser's insert hits
// the constraint and re-reads the winner's row.
func (s *CatalogService) Resolve(name, producer string, vintage int, attrs WineAttrs) (*models.Wine, error) {
	var wine models.Wine
	err := s.DB.Where("name = ? AND producer = ? AND vintage = ?", name, producer, vintage).First(&wine).Error
	if err == nil {
		return &wine, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	wine = models.Wine{
		Name:     name,
		Producer: producer,
		Vintage:  vintage,
		Type:     attrs.Type,
		Region:   attrs.Region,
		Country:  attrs.Country,
		Grapes:   attrs.Grapes,
		Image:    attrs.Image,
	}
	if wine.Type == "" {
		wine.Type = models.WineOther
	}
	if createErr := s.DB.Create(&wine).Error; createErr != nil {
		if isDuplicate(createErr) {
			var existing models.Wine
			if err := s.DB.Where("name = ? AND producer = ? AND vintage = ?", name, producer, vintage).First(&existing).Error; err == nil {
				return &existing, nil
			}
		}
		return nil, createErr
	}
	return &wine, nil
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
