package models

import "time"

// CellarItem links an owner to a catalog wine with a quantity and
// acquisition price. Quantity never goes negative; consumed-out items
// stay in storage at quantity 0 and are filtered out of active-cellar
// listings at read time.
type CellarItem struct {
	ID        uint    `gorm:"primaryKey"`
	UserID    uint    `gorm:"not null;index"`
	User      User    `gorm:"foreignKey:UserID"`
	WineID    uint    `gorm:"not null;index"`
	Wine      Wine    `gorm:"foreignKey:WineID"`
	Quantity  int     `gorm:"not null;default:1"`
	BuyPrice  float64 `gorm:"not null;default:0"`
	IsVisible bool    `gorm:"not null;default:false"` // marketplace exposure
	AddedAt   time.Time
	UpdatedAt time.Time
}
