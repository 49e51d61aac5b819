package handlers

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/thecawe/cellar/internal/auth"
	"github.com/thecawe/cellar/internal/httpx"
	"github.com/thecawe/cellar/internal/models"
	"github.com/thecawe/cellar/internal/view"
)

type AuthHandler struct{ DB *gorm.DB }

// Explicit constant for 303 See Other (Post/Redirect/Get)
const statusSeeOther = 303

func NewAuthHandler(db *gorm.DB) *AuthHandler { return &AuthHandler{DB: db} }

func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/signup", h.signup)
	mux.HandleFunc("/login", h.login)
	mux.HandleFunc("/logout", h.logout)
	mux.HandleFunc("/pending", h.pending)
}

// renderTemplate uses the shared view.Render to ensure layout and funcs.
func renderTemplate(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	if err := view.Render(w, r, name+".html", data); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		if _, werr := w.Write([]byte("template error")); werr != nil {
			_ = werr
		}
	}
}

func (h *AuthHandler) signup(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		renderTemplate(w, r, "signup", nil)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET,POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
		return
	}
	email := strings.TrimSpace(strings.ToLower(r.FormValue("email")))
	pass := r.FormValue("password")
	name := strings.TrimSpace(r.FormValue("name"))
	if email == "" || !strings.Contains(email, "@") {
		h.signupError(w, r, "a valid email is required")
		return
	}
	if len(pass) < 6 {
		h.signupError(w, r, "password must be at least 6 characters")
		return
	}
	if len(name) < 2 {
		h.signupError(w, r, "name is required")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	if err != nil {
		// bcrypt rejects passwords over 72 bytes.
		h.signupError(w, r, "password is too long")
		return
	}
	user := models.User{
		Email:    email,
		Name:     name,
		Password: string(hash),
		Role:     models.RoleUser,
		Status:   models.StatusPending, // every signup waits for moderation
	}
	if err := h.DB.Create(&user).Error; err != nil {
		h.signupError(w, r, "this email is already in use")
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusCreated, map[string]any{"id": user.ID, "status": user.Status})
		return
	}
	auth.CreateSession(w, user.ID)
	http.Redirect(w, r, "/pending", statusSeeOther)
}

func (h *AuthHandler) signupError(w http.ResponseWriter, r *http.Request, msg string) {
	if httpx.WantsJSON(r) {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", msg)
		return
	}
	renderTemplate(w, r, "signup", map[string]any{"Error": msg})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		renderTemplate(w, r, "login", nil)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET,POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
		return
	}
	email := strings.TrimSpace(strings.ToLower(r.FormValue("email")))
	pass := r.FormValue("password")
	if email == "" || pass == "" {
		h.loginError(w, r, "email and password required")
		return
	}
	var user models.User
	if err := h.DB.Where("email = ?", email).First(&user).Error; err != nil {
		h.loginError(w, r, "invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(pass)) != nil {
		h.loginError(w, r, "invalid credentials")
		return
	}
	auth.CreateSession(w, user.ID)
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"id": user.ID, "status": user.Status, "role": user.Role})
		return
	}
	if !user.IsApproved() {
		http.Redirect(w, r, "/pending", statusSeeOther)
		return
	}
	http.Redirect(w, r, "/dashboard", statusSeeOther)
}

func (h *AuthHandler) loginError(w http.ResponseWriter, r *http.Request, msg string) {
	if httpx.WantsJSON(r) {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}
	renderTemplate(w, r, "login", map[string]any{"Error": msg})
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w)
	http.Redirect(w, r, "/login", statusSeeOther)
}

// pending is the holding page for accounts awaiting moderation; the
// gate sends non-approved users here from everywhere else.
func (h *AuthHandler) pending(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{}
	if uid, ok := auth.UserIDFromContext(r.Context()); ok {
		var user models.User
		if err := h.DB.First(&user, uid).Error; err == nil {
			data["User"] = user
			data["Rejected"] = user.Status == models.StatusRejected
		}
	}
	renderTemplate(w, r, "pending", data)
}
