package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/thecawe/cellar/internal/auth"
	"github.com/thecawe/cellar/internal/httpx"
	"github.com/thecawe/cellar/internal/models"
	"github.com/thecawe/cellar/internal/services"
	"github.com/thecawe/cellar/internal/validation"
)

type CellarHandler struct {
	Svc *services.CellarService
}

func NewCellarHandler(svc *services.CellarService) *CellarHandler { return &CellarHandler{Svc: svc} }

type wineForm struct {
	Name      string  `json:"name"`
	Producer  string  `json:"producer"`
	Vintage   int     `json:"vintage"`
	Type      string  `json:"type"`
	Region    string  `json:"region"`
	Country   string  `json:"country"`
	Grapes    string  `json:"grapes"`
	Quantity  int     `json:"quantity"`
	BuyPrice  float64 `json:"buy_price"`
	IsVisible bool    `json:"is_visible"`
}

var wineTypes = []string{models.WineRed, models.WineWhite, models.WineSparkling, models.WineRose, models.WineOther}

func (f *wineForm) validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("name", f.Name, v)
	validation.Required("producer", f.Producer, v)
	validation.RangeInt("vintage", f.Vintage, 1900, 2100, v)
	validation.OneOf("type", f.Type, wineTypes, v)
	validation.MinInt("quantity", f.Quantity, 1, v)
	validation.NonNegativeFloat("buy_price", f.BuyPrice, v)
	return v
}

func parseWineForm(r *http.Request) (wineForm, error) {
	var f wineForm
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
			return f, err
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return f, err
		}
		f.Name = strings.TrimSpace(r.FormValue("name"))
		f.Producer = strings.TrimSpace(r.FormValue("producer"))
		f.Vintage, _ = strconv.Atoi(r.FormValue("vintage"))
		f.Type = strings.ToUpper(strings.TrimSpace(r.FormValue("type")))
		f.Region = strings.TrimSpace(r.FormValue("region"))
		f.Country = strings.TrimSpace(r.FormValue("country"))
		f.Grapes = strings.TrimSpace(r.FormValue("grapes"))
		f.Quantity, _ = strconv.Atoi(r.FormValue("quantity"))
		f.BuyPrice, _ = strconv.ParseFloat(r.FormValue("buy_price"), 64)
		f.IsVisible = r.FormValue("is_visible") == "on" || r.FormValue("is_visible") == "true"
	}
	return f, nil
}

// List shows the active cellar (quantity > 0) with optional filters.
func (h *CellarHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	q := r.URL.Query()
	items, err := h.Svc.ListActive(uid, strings.TrimSpace(q.Get("query")), strings.ToUpper(strings.TrimSpace(q.Get("type"))), strings.TrimSpace(q.Get("country")))
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_cellar", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": len(items)})
		return
	}
	var totalBottles int
	var totalValue float64
	for _, item := range items {
		totalBottles += item.Quantity
		totalValue += item.BuyPrice * float64(item.Quantity)
	}
	renderTemplate(w, r, "cellar", map[string]any{
		"Items":        items,
		"Query":        q.Get("query"),
		"TypeFilter":   q.Get("type"),
		"Country":      q.Get("country"),
		"TotalBottles": totalBottles,
		"TotalValue":   totalValue,
		"WineTypes":    wineTypes,
	})
}

// Add handles the add-wine form: GET renders it, POST validates,
// resolves the catalog wine and inserts the cellar item.
func (h *CellarHandler) Add(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		renderTemplate(w, r, "add", map[string]any{"WineTypes": wineTypes})
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET,POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	f, err := parseWineForm(r)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_input", nil)
		return
	}
	if v := f.validate(); !v.Empty() {
		if httpx.WantsJSON(r) {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		renderTemplate(w, r, "add", map[string]any{"Errors": v, "Form": f, "WineTypes": wineTypes})
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	item, err := h.Svc.Add(uid, services.AddInput{
		Name: f.Name, Producer: f.Producer, Vintage: f.Vintage, Type: f.Type,
		Region: f.Region, Country: f.Country, Grapes: f.Grapes,
		Quantity: f.Quantity, BuyPrice: f.BuyPrice, IsVisible: f.IsVisible,
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "cellar_add_failed", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusCreated, item)
		return
	}
	http.Redirect(w, r, "/dashboard/cellar", statusSeeOther)
}

func itemID(r *http.Request) uint {
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

// Detail shows one bottle.
func (h *CellarHandler) Detail(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	item, err := h.Svc.Get(uid, itemID(r))
	if err != nil {
		if httpx.WantsJSON(r) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		http.NotFound(w, r)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, item)
		return
	}
	renderTemplate(w, r, "cellar_item", map[string]any{"Item": item, "WineTypes": wineTypes})
}

// Update overwrites the item and its wine details; shared wines are
// forked by the service so edits stay private to this cellar.
func (h *CellarHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	f, err := parseWineForm(r)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_input", nil)
		return
	}
	id := itemID(r)
	if v := f.validate(); !v.Empty() {
		if httpx.WantsJSON(r) {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		renderTemplate(w, r, "cellar_item", map[string]any{"Errors": v, "Form": f, "WineTypes": wineTypes})
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	item, err := h.Svc.Update(uid, id, services.UpdateInput{
		Name: f.Name, Producer: f.Producer, Vintage: f.Vintage, Type: f.Type,
		Region: f.Region, Country: f.Country,
		Quantity: f.Quantity, BuyPrice: f.BuyPrice, IsVisible: f.IsVisible,
	})
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "update_failed", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, item)
		return
	}
	http.Redirect(w, r, "/dashboard/cellar/item?id="+strconv.FormatUint(uint64(item.ID), 10), statusSeeOther)
}

// Consume drinks one bottle: quantity goes down by one, never below zero.
func (h *CellarHandler) Consume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	remaining, err := h.Svc.Consume(uid, itemID(r))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		case errors.Is(err, services.ErrEmpty):
			httpx.JSONError(w, http.StatusConflict, "already_empty", nil)
		default:
			httpx.JSONError(w, http.StatusInternalServerError, "consume_failed", nil)
		}
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"quantity": remaining})
		return
	}
	http.Redirect(w, r, "/dashboard/cellar", statusSeeOther)
}

// Visibility toggles marketplace exposure for one bottle.
func (h *CellarHandler) Visibility(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
		return
	}
	visible := r.FormValue("visible") == "true" || r.FormValue("visible") == "on"
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := h.Svc.SetVisibility(uid, itemID(r), visible); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "visibility_failed", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"visible": visible})
		return
	}
	http.Redirect(w, r, "/dashboard/cellar", statusSeeOther)
}

// Marketplace lists everyone's visible bottles.
func (h *CellarHandler) Marketplace(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	items, err := h.Svc.Marketplace(query, 50)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_marketplace", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": len(items)})
		return
	}
	renderTemplate(w, r, "marketplace", map[string]any{"Items": items, "Query": query})
}
