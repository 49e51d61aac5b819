package models

import "time"

// Message is an append-only row between two users. IsRead flips when
// the receiver opens the conversation (an explicit mark-read call, not
// a query side effect).
type Message struct {
	ID            uint   `gorm:"primaryKey"`
	SenderID      uint   `gorm:"not null;index"`
	Sender        User   `gorm:"foreignKey:SenderID"`
	ReceiverID    uint   `gorm:"not null;index"`
	Receiver      User   `gorm:"foreignKey:ReceiverID"`
	Body          string `gorm:"type:text;not null"`
	RelatedWineID *uint
	IsRead        bool `gorm:"not null;default:false"`
	CreatedAt     time.Time
}
