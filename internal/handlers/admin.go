package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/thecawe/cellar/internal/httpx"
	"github.com/thecawe/cellar/internal/models"
)

// tempPassword is the fixed password invited users start with; they
// are expected to change it after their first login.
const tempPassword = "welcome123"

type AdminHandler struct{ DB *gorm.DB }

func NewAdminHandler(db *gorm.DB) *AdminHandler { return &AdminHandler{DB: db} }

// Users lists every account for moderation, pending first.
func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	var users []models.User
	if err := h.DB.Order("CASE status WHEN 'PENDING' THEN 0 ELSE 1 END, created_at desc").Find(&users).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_users", nil)
		return
	}
	if httpx.WantsJSON(r) {
		out := make([]map[string]any, 0, len(users))
		for _, u := range users {
			out = append(out, map[string]any{
				"id": u.ID, "email": u.Email, "name": u.Name,
				"role": u.Role, "status": u.Status,
			})
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"users": out})
		return
	}
	renderTemplate(w, r, "admin_users", map[string]any{"Users": users})
}

func targetUserID(r *http.Request) uint {
	idStr := r.URL.Query().Get("id")
	if idStr == "" {
		idStr = r.FormValue("id")
	}
	id, _ := strconv.Atoi(idStr)
	if id < 0 {
		return 0
	}
	return uint(id)
}

func (h *AdminHandler) setStatus(w http.ResponseWriter, r *http.Request, status string) {
	if r.Method != http.MethodPost {
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	res := h.DB.Model(&models.User{}).Where("id = ?", targetUserID(r)).Update("status", status)
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "update_failed", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"status": status})
		return
	}
	http.Redirect(w, r, "/dashboard/admin/users", statusSeeOther)
}

// Approve moves an account to APPROVED.
func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, models.StatusApproved)
}

// Reject moves an account to REJECTED.
func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, models.StatusRejected)
}

// Delete removes an account and everything it owns: cellar items,
// messages either way and scan history go with it so no foreign key
// blocks the delete and no orphaned rows survive.
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	id := targetUserID(r)
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.CellarItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("sender_id = ? OR receiver_id = ?", id, id).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.ScanEvent{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.User{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"deleted": true})
		return
	}
	http.Redirect(w, r, "/dashboard/admin/users", statusSeeOther)
}

// ChangeRole toggles between USER and ADMIN.
func (h *AdminHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	role := strings.ToUpper(strings.TrimSpace(r.FormValue("role")))
	if role != models.RoleUser && role != models.RoleAdmin {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_role", nil)
		return
	}
	res := h.DB.Model(&models.User{}).Where("id = ?", targetUserID(r)).Update("role", role)
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "update_failed", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"role": role})
		return
	}
	http.Redirect(w, r, "/dashboard/admin/users", statusSeeOther)
}

// Invite creates an account that skips moderation: APPROVED from the
// start, with the fixed temporary password.
func (h *AdminHandler) Invite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
		return
	}
	email := strings.TrimSpace(strings.ToLower(r.FormValue("email")))
	name := strings.TrimSpace(r.FormValue("name"))
	role := strings.ToUpper(strings.TrimSpace(r.FormValue("role")))
	if role != models.RoleAdmin {
		role = models.RoleUser
	}
	if email == "" || !strings.Contains(email, "@") {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"email": "required"})
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "hash_failed", nil)
		return
	}
	user := models.User{
		Email:    email,
		Name:     name,
		Password: string(hash),
		Role:     role,
		Status:   models.StatusApproved,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		httpx.JSONError(w, http.StatusConflict, "email_already_exists", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusCreated, map[string]any{"id": user.ID, "temp_password": tempPassword})
		return
	}
	http.Redirect(w, r, "/dashboard/admin/users", statusSeeOther)
}
