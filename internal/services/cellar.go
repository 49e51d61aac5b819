package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/thecawe/cellar/internal/models"
)

// ErrNotFound covers missing items and items owned by someone else;
// callers cannot tell the two apart.
var ErrNotFound = errors.New("cellar item not found")

// ErrEmpty is returned when consuming an item that is already at zero.
var ErrEmpty = errors.New("cellar item is empty")

// CellarService owns the bookkeeping around a user's bottles.
type CellarService struct {
	DB      *gorm.DB
	Catalog *CatalogService
}

func NewCellarService(db *gorm.DB) *CellarService {
	return &CellarService{DB: db, Catalog: NewCatalogService(db)}
}

// AddInput is the validated payload for adding a bottle.
type AddInput struct {
	Name      string
	Producer  string
	Vintage   int
	Type      string
	Region    string
	Country   string
	Grapes    string
	Quantity  int
	BuyPrice  float64
	IsVisible bool
}

// Add resolves the catalog wine and inserts a cellar item for userID.
func (s *CellarService) Add(userID uint, in AddInput) (*models.CellarItem, error) {
	wine, err := s.Catalog.Resolve(in.Name, in.Producer, in.Vintage, WineAttrs{
		Type: in.Type, Region: in.Region, Country: in.Country, Grapes: in.Grapes,
	})
	if err != nil {
		return nil, err
	}
	item := models.CellarItem{
		UserID:    userID,
		WineID:    wine.ID,
		Quantity:  in.Quantity,
		BuyPrice:  in.BuyPrice,
		IsVisible: in.IsVisible,
		AddedAt:   time.Now(),
	}
	if err := s.DB.Create(&item).Error; err != nil {
		return nil, err
	}
	item.Wine = *wine
	return &item, nil
}

// Get returns one of the caller's items with its wine preloaded.
func (s *CellarService) Get(userID, itemID uint) (*models.CellarItem, error) {
	var item models.CellarItem
	err := s.DB.Preload("Wine").Where("id = ? AND user_id = ?", itemID, userID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListActive returns the caller's items with quantity > 0, newest
// first, optionally filtered by a search query, wine type or country.
func (s *CellarService) ListActive(userID uint, query, wineType, country string) ([]models.CellarItem, error) {
	dbq := s.DB.Preload("Wine").
		Joins("JOIN wines ON wines.id = cellar_items.wine_id").
		Where("cellar_items.user_id = ? AND cellar_items.quantity > 0", userID)
	if query != "" {
		like := "%" + query + "%"
		dbq = dbq.Where("wines.name LIKE ? OR wines.producer LIKE ? OR wines.region LIKE ?", like, like, like)
	}
	if wineType != "" {
		dbq = dbq.Where("wines.type = ?", wineType)
	}
	if country != "" {
		dbq = dbq.Where("wines.country = ?", country)
	}
	var items []models.CellarItem
	if err := dbq.Order("cellar_items.added_at desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListAll returns every item the caller owns, including quantity 0
// history rows. Used by the CSV export.
func (s *CellarService) ListAll(userID uint) ([]models.CellarItem, error) {
	var items []models.CellarItem
	err := s.DB.Preload("Wine").Where("user_id = ?", userID).Order("added_at desc").Find(&items).Error
	return items, err
}

// Consume decrements quantity by one, clamped at zero, for an item the
// caller owns. The guarded single UPDATE keeps concurrent consumes
// from driving the quantity negative.
func (s *CellarService) Consume(userID, itemID uint) (int, error) {
	res := s.DB.Model(&models.CellarItem{}).
		Where("id = ? AND user_id = ? AND quantity > 0", itemID, userID).
		Update("quantity", gorm.Expr("quantity - 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		// Distinguish empty from unknown for the caller's message.
		var item models.CellarItem
		if err := s.DB.Where("id = ? AND user_id = ?", itemID, userID).First(&item).Error; err != nil {
			return 0, ErrNotFound
		}
		return 0, ErrEmpty
	}
	var item models.CellarItem
	if err := s.DB.Select("quantity").Where("id = ?", itemID).First(&item).Error; err != nil {
		return 0, err
	}
	return item.Quantity, nil
}

// UpdateInput is the validated payload for editing a bottle.
type UpdateInput struct {
	Name      string
	Producer  string
	Vintage   int
	Type      string
	Region    string
	Country   string
	Quantity  int
	BuyPrice  float64
	IsVisible bool
}

// Update overwrites the item's own fields and applies wine-detail
// edits without leaking them into other cellars: when the linked wine
// is referenced by any other item, the edited details are forked into
// a new catalog row and the item repointed; a wine referenced only by
// this item is updated in place.
func (s *CellarService) Update(userID, itemID uint, in UpdateInput) (*models.CellarItem, error) {
	item, err := s.Get(userID, itemID)
	if err != nil {
		return nil, err
	}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		item.Quantity = in.Quantity
		item.BuyPrice = in.BuyPrice
		item.IsVisible = in.IsVisible

		wineChanged := item.Wine.Name != in.Name || item.Wine.Producer != in.Producer ||
			item.Wine.Vintage != in.Vintage || item.Wine.Type != in.Type ||
			item.Wine.Region != in.Region || item.Wine.Country != in.Country
		if wineChanged {
			var others int64
			if err := tx.Model(&models.CellarItem{}).
				Where("wine_id = ? AND id <> ?", item.WineID, item.ID).
				Count(&others).Error; err != nil {
				return err
			}
			if others > 0 {
				forked := models.Wine{
					Name: in.Name, Producer: in.Producer, Vintage: in.Vintage,
					Type: in.Type, Region: in.Region, Country: in.Country,
					Grapes: item.Wine.Grapes, Image: item.Wine.Image,
				}
				if err := tx.Create(&forked).Error; err != nil {
					if !isDuplicate(err) {
						return err
					}
					// Edited identity collides with an existing catalog row: reuse it.
					if err := tx.Where("name = ? AND producer = ? AND vintage = ?", in.Name, in.Producer, in.Vintage).
						First(&forked).Error; err != nil {
						return err
					}
				}
				item.WineID = forked.ID
				item.Wine = forked
			} else {
				// Even an unshared wine can collide with an existing
				// catalog row once edited; converge on that row instead
				// of tripping the unique index. The old private row is
				// left behind (catalog rows are never purged).
				var existing models.Wine
				err := tx.Where("name = ? AND producer = ? AND vintage = ? AND id <> ?",
					in.Name, in.Producer, in.Vintage, item.WineID).First(&existing).Error
				switch {
				case err == nil:
					item.WineID = existing.ID
					item.Wine = existing
				case errors.Is(err, gorm.ErrRecordNotFound):
					item.Wine.Name = in.Name
					item.Wine.Producer = in.Producer
					item.Wine.Vintage = in.Vintage
					item.Wine.Type = in.Type
					item.Wine.Region = in.Region
					item.Wine.Country = in.Country
					if err := tx.Save(&item.Wine).Error; err != nil {
						return err
					}
				default:
					return err
				}
			}
		}
		return tx.Omit("Wine").Save(item).Error
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// SetVisibility flips the marketplace flag on one of the caller's items.
func (s *CellarService) SetVisibility(userID, itemID uint, visible bool) error {
	res := s.DB.Model(&models.CellarItem{}).
		Where("id = ? AND user_id = ?", itemID, userID).
		Update("is_visible", visible)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Marketplace lists visible, in-stock items from every user, newest
// first, optionally filtered by a search query over the wine fields.
func (s *CellarService) Marketplace(query string, limit int) ([]models.CellarItem, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	dbq := s.DB.Preload("Wine").Preload("User").
		Joins("JOIN wines ON wines.id = cellar_items.wine_id").
		Where("cellar_items.is_visible = ? AND cellar_items.quantity > 0", true)
	if query != "" {
		like := "%" + query + "%"
		dbq = dbq.Where("wines.name LIKE ? OR wines.producer LIKE ? OR wines.region LIKE ?", like, like, like)
	}
	var items []models.CellarItem
	if err := dbq.Order("cellar_items.added_at desc").Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Stats aggregates the caller's cellar for the dashboard.
type Stats struct {
	TotalBottles int64
	TotalWines   int64
	TotalValue   float64
}

func (s *CellarService) Stats(userID uint) (Stats, error) {
	var st Stats
	row := s.DB.Model(&models.CellarItem{}).
		Select("COALESCE(SUM(quantity),0), COUNT(DISTINCT wine_id), COALESCE(SUM(buy_price*quantity),0)").
		Where("user_id = ? AND quantity > 0", userID).
		Row()
	if err := row.Scan(&st.TotalBottles, &st.TotalWines, &st.TotalValue); err != nil {
		return Stats{}, err
	}
	return st, nil
}
