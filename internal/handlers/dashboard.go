package handlers

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/thecawe/cellar/internal/auth"
	"github.com/thecawe/cellar/internal/httpx"
	"github.com/thecawe/cellar/internal/models"
	"github.com/thecawe/cellar/internal/services"
)

type DashboardHandler struct {
	DB       *gorm.DB
	Cellar   *services.CellarService
	Messages *services.MessageService
}

func NewDashboardHandler(db *gorm.DB, cellar *services.CellarService) *DashboardHandler {
	return &DashboardHandler{DB: db, Cellar: cellar, Messages: services.NewMessageService(db)}
}

// Home renders the dashboard: cellar totals, the latest additions and
// the unread message badge.
func (h *DashboardHandler) Home(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	stats, err := h.Cellar.Stats(uid)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_stats", nil)
		return
	}
	recent, err := h.Cellar.ListActive(uid, "", "", "")
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_cellar", nil)
		return
	}
	if len(recent) > 5 {
		recent = recent[:5]
	}
	unread, err := h.Messages.UnreadCount(uid)
	if err != nil {
		unread = 0
	}
	var user models.User
	_ = h.DB.Select("id", "name", "email", "role").First(&user, uid).Error
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{
			"total_bottles": stats.TotalBottles,
			"total_wines":   stats.TotalWines,
			"total_value":   stats.TotalValue,
			"unread":        unread,
			"recent":        recent,
		})
		return
	}
	renderTemplate(w, r, "dashboard", map[string]any{
		"User":    user,
		"Stats":   stats,
		"Recent":  recent,
		"Unread":  unread,
		"IsAdmin": user.IsAdmin(),
	})
}
