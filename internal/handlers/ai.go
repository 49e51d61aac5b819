package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/thecawe/cellar/internal/ai"
	"github.com/thecawe/cellar/internal/auth"
	"github.com/thecawe/cellar/internal/httpx"
	"github.com/thecawe/cellar/internal/models"
	"github.com/thecawe/cellar/internal/ratelimit"
	"github.com/thecawe/cellar/internal/services"
	"github.com/thecawe/cellar/internal/storage"
)

const maxLabelImageBytes = 8 << 20

// AIHandler glues the sommelier model to the cellar: advice over the
// inventory and structured label scans. All collaborators are
// injected; a nil limiter means no quota, a nil store means uploads
// are not archived.
type AIHandler struct {
	DB           *gorm.DB
	Cellar       *services.CellarService
	Advisor      ai.Advisor
	Scanner      ai.LabelScanner
	AdviceLimit  *ratelimit.FixedWindowLimiter
	ScanLimit    *ratelimit.FixedWindowLimiter
	LabelStore   storage.ObjectStore
	StoreTimeout time.Duration
}

func NewAIHandler(db *gorm.DB, cellar *services.CellarService, advisor ai.Advisor, scanner ai.LabelScanner) *AIHandler {
	return &AIHandler{
		DB:           db,
		Cellar:       cellar,
		Advisor:      advisor,
		Scanner:      scanner,
		StoreTimeout: 10 * time.Second,
	}
}

// Advise answers a free-form question (or gives a cellar review when
// the question is empty) grounded in the caller's active inventory.
func (h *AIHandler) Advise(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	if h.Advisor == nil {
		httpx.JSONError(w, http.StatusServiceUnavailable, "ai_not_configured", nil)
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	if !h.AdviceLimit.Allow(limitKey(uid)) {
		httpx.JSONError(w, http.StatusTooManyRequests, "rate_limited", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
		return
	}
	question := strings.TrimSpace(r.FormValue("question"))
	items, err := h.Cellar.ListActive(uid, "", "", "")
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_cellar", nil)
		return
	}
	summary := make([]ai.CellarEntry, 0, len(items))
	for _, item := range items {
		summary = append(summary, ai.CellarEntry{
			Name:     item.Wine.Name,
			Type:     item.Wine.Type,
			Quantity: item.Quantity,
			Country:  item.Wine.Country,
			Region:   item.Wine.Region,
			Vintage:  item.Wine.Vintage,
		})
	}
	answer, err := h.Advisor.Advise(r.Context(), summary, question)
	if err != nil {
		log.Warn().Err(err).Msg("ai advice failed")
		httpx.JSONError(w, http.StatusBadGateway, "ai_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"answer": answer})
}

// ScanLabel reads an uploaded label photo into structured wine fields.
// The image is archived to object storage when one is configured and a
// ScanEvent row records the parsed payload. A model response that
// cannot be parsed is an error for the caller, never retried.
func (h *AIHandler) ScanLabel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	if h.Scanner == nil {
		httpx.JSONError(w, http.StatusServiceUnavailable, "ai_not_configured", nil)
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	if !h.ScanLimit.Allow(limitKey(uid)) {
		httpx.JSONError(w, http.StatusTooManyRequests, "rate_limited", nil)
		return
	}
	if err := r.ParseMultipartForm(maxLabelImageBytes); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_upload", nil)
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "missing_image", nil)
		return
	}
	defer file.Close()
	image, err := io.ReadAll(io.LimitReader(file, maxLabelImageBytes+1))
	if err != nil || len(image) == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "unreadable_image", nil)
		return
	}
	if len(image) > maxLabelImageBytes {
		httpx.JSONError(w, http.StatusRequestEntityTooLarge, "image_too_large", nil)
		return
	}
	mimeType := header.Header.Get("Content-Type")

	info, err := h.Scanner.ScanLabel(r.Context(), image, mimeType)
	if err != nil {
		log.Warn().Err(err).Msg("label scan failed")
		httpx.JSONError(w, http.StatusBadGateway, "scan_failed", nil)
		return
	}

	storageKey := h.archiveLabel(r, uid, image, mimeType)
	h.recordScan(uid, storageKey, info)

	httpx.JSON(w, http.StatusOK, map[string]any{"data": info})
}

// archiveLabel stores the raw upload, best effort: failures are logged
// and the scan result is returned anyway.
func (h *AIHandler) archiveLabel(r *http.Request, uid uint, image []byte, mimeType string) string {
	if h.LabelStore == nil {
		return ""
	}
	key := fmt.Sprintf("labels/%d/%s", uid, uuid.NewString())
	ctx, cancel := contextWithTimeout(r, h.StoreTimeout)
	defer cancel()
	if err := h.LabelStore.Put(ctx, key, bytes.NewReader(image), int64(len(image)), mimeType); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("label archive failed")
		return ""
	}
	return key
}

func (h *AIHandler) recordScan(uid uint, storageKey string, info *ai.LabelInfo) {
	payload, err := json.Marshal(info)
	if err != nil {
		return
	}
	event := models.ScanEvent{UserID: uid, StorageKey: storageKey, Payload: datatypes.JSON(payload)}
	if err := h.DB.Create(&event).Error; err != nil {
		log.Warn().Err(err).Msg("scan event insert failed")
	}
}

func limitKey(uid uint) string { return "user:" + strconv.FormatUint(uint64(uid), 10) }

func contextWithTimeout(r *http.Request, d time.Duration) (ctx context.Context, cancel context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(r.Context(), d)
}
