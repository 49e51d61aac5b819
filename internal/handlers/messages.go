package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/thecawe/cellar/internal/auth"
	"github.com/thecawe/cellar/internal/httpx"
	"github.com/thecawe/cellar/internal/models"
	"github.com/thecawe/cellar/internal/services"
)

type MessageHandler struct {
	DB  *gorm.DB
	Svc *services.MessageService
}

func NewMessageHandler(db *gorm.DB) *MessageHandler {
	return &MessageHandler{DB: db, Svc: services.NewMessageService(db)}
}

// Conversations lists the caller's threads grouped by counterpart.
func (h *MessageHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	convs, err := h.Svc.Conversations(uid)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_conversations", nil)
		return
	}
	if httpx.WantsJSON(r) {
		out := make([]map[string]any, 0, len(convs))
		for _, c := range convs {
			out = append(out, map[string]any{
				"other_id":   c.Other.ID,
				"other_name": c.Other.Name,
				"last_body":  c.LastMessage.Body,
				"unread":     c.Unread,
			})
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"conversations": out})
		return
	}
	renderTemplate(w, r, "messages", map[string]any{"Conversations": convs})
}

// Thread marks the caller's unread messages from the counterpart as
// read, then shows the two-way history.
func (h *MessageHandler) Thread(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	otherStr := r.URL.Query().Get("user")
	other64, err := strconv.ParseUint(otherStr, 10, 64)
	if err != nil || other64 == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_user", nil)
		return
	}
	otherID := uint(other64)
	var other models.User
	if err := h.DB.Select("id", "name", "email", "image").First(&other, otherID).Error; err != nil {
		if httpx.WantsJSON(r) {
			httpx.JSONError(w, http.StatusNotFound, "user_not_found", nil)
			return
		}
		http.NotFound(w, r)
		return
	}
	// Explicit mark-read before listing; viewing the thread is what
	// clears the unread badge.
	if err := h.Svc.MarkThreadRead(uid, otherID); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "mark_read_failed", nil)
		return
	}
	msgs, err := h.Svc.Thread(uid, otherID)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_thread", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"messages": msgs, "other": map[string]any{"id": other.ID, "name": other.Name}})
		return
	}
	renderTemplate(w, r, "conversation", map[string]any{"Messages": msgs, "Other": other, "SelfID": uid})
}

// Send appends one message.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	recipient64, err := strconv.ParseUint(r.FormValue("recipient_id"), 10, 64)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"recipient_id": "required"})
		return
	}
	var relatedWineID *uint
	if v := strings.TrimSpace(r.FormValue("related_wine_id")); v != "" {
		if w64, err := strconv.ParseUint(v, 10, 64); err == nil {
			wid := uint(w64)
			relatedWineID = &wid
		}
	}
	msg, err := h.Svc.Send(uid, uint(recipient64), r.FormValue("body"), relatedWineID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyBody):
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"body": "required"})
		case errors.Is(err, services.ErrUnknownRecipient):
			httpx.JSONError(w, http.StatusBadRequest, "unknown_recipient", nil)
		default:
			httpx.JSONError(w, http.StatusInternalServerError, "send_failed", nil)
		}
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusCreated, msg)
		return
	}
	http.Redirect(w, r, "/dashboard/messages/thread?user="+strconv.FormatUint(uint64(msg.ReceiverID), 10), statusSeeOther)
}
