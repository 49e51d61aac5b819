package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/thecawe/cellar/internal/models"
)

var (
	ErrEmptyBody        = errors.New("message body is empty")
	ErrUnknownRecipient = errors.New("unknown recipient")
)

// MessageService handles user-to-user messages and the derived
// conversation views.
type MessageService struct {
	DB *gorm.DB
}

func NewMessageService(db *gorm.DB) *MessageService { return &MessageService{DB: db} }

// Send appends a message from sender to recipient, unread.
func (s *MessageService) Send(senderID, recipientID uint, body string, relatedWineID *uint) (*models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyBody
	}
	var count int64
	if err := s.DB.Model(&models.User{}).Where("id = ?", recipientID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 || recipientID == senderID {
		return nil, ErrUnknownRecipient
	}
	msg := models.Message{
		SenderID:      senderID,
		ReceiverID:    recipientID,
		Body:          body,
		RelatedWineID: relatedWineID,
	}
	if err := s.DB.Create(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkThreadRead flips every unread message sent by other to owner.
// Called explicitly by the conversation view before listing, so the
// read-marking is a named operation rather than a query side effect.
func (s *MessageService) MarkThreadRead(ownerID, otherID uint) error {
	return s.DB.Model(&models.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", otherID, ownerID, false).
		Update("is_read", true).Error
}

// Thread returns the full two-way history between owner and other,
// oldest first.
func (s *MessageService) Thread(ownerID, otherID uint) ([]models.Message, error) {
	var msgs []models.Message
	err := s.DB.
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			ownerID, otherID, otherID, ownerID).
		Order("created_at asc").
		Find(&msgs).Error
	return msgs, err
}

// Conversation summarizes one counterpart: the latest message either
// way and how many of their messages the owner has not read yet.
type Conversation struct {
	Other       models.User
	LastMessage models.Message
	Unread      int64
}

// Conversations groups all of the owner's messages by counterpart,
// newest conversation first.
func (s *MessageService) Conversations(ownerID uint) ([]Conversation, error) {
	var msgs []models.Message
	err := s.DB.
		Where("sender_id = ? OR receiver_id = ?", ownerID, ownerID).
		Order("created_at desc").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	seen := map[uint]*Conversation{}
	var order []uint
	for _, m := range msgs {
		other := m.SenderID
		if other == ownerID {
			other = m.ReceiverID
		}
		c, ok := seen[other]
		if !ok {
			c = &Conversation{LastMessage: m}
			seen[other] = c
			order = append(order, other)
		}
		if m.ReceiverID == ownerID && !m.IsRead {
			c.Unread++
		}
	}
	out := make([]Conversation, 0, len(order))
	for _, otherID := range order {
		c := seen[otherID]
		var other models.User
		if err := s.DB.Select("id", "name", "email", "image").First(&other, otherID).Error; err == nil {
			c.Other = other
		}
		out = append(out, *c)
	}
	return out, nil
}

// UnreadCount returns the owner's total unread messages, shown as the
// nav badge.
func (s *MessageService) UnreadCount(ownerID uint) (int64, error) {
	var n int64
	err := s.DB.Model(&models.Message{}).
		Where("receiver_id = ? AND is_read = ?", ownerID, false).
		Count(&n).Error
	return n, err
}
