package models

import "time"

// Wine type enum.
const (
	WineRed       = "RED"
	WineWhite     = "WHITE"
	WineSparkling = "SPARKLING"
	WineRose      = "ROSE"
	WineOther     = "OTHER"
)

// ValidWineType reports whether t is one of the known wine types.
func ValidWineType(t string) bool {
	switch t {
	case WineRed, WineWhite, WineSparkling, WineRose, WineOther:
		return true
	}
	return false
}

// Wine is a shared catalog entry. The composite unique index on
// (name, producer, vintage) is what lets the resolver converge on a
// single row when two adds race on a never-seen wine.
type Wine struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:200;not null;index:idx_wine_identity,unique,priority:1"`
	Producer  string `gorm:"size:200;not null;index:idx_wine_identity,unique,priority:2"`
	Vintage   int    `gorm:"not null;index:idx_wine_identity,unique,priority:3"`
	Type      string `gorm:"not null;default:'OTHER'"`
	Region    string
	Country   string
	Grapes    string
	Image     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
