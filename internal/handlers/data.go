package handlers

import (
	"net/http"

	"github.com/thecawe/cellar/internal/auth"
	"github.com/thecawe/cellar/internal/httpx"
	"github.com/thecawe/cellar/internal/services"
)

const maxImportBytes = 4 << 20

// DataHandler serves CSV export and import of the caller's cellar.
type DataHandler struct {
	Svc *services.CellarService
}

func NewDataHandler(svc *services.CellarService) *DataHandler { return &DataHandler{Svc: svc} }

// Export streams the full cellar, consumed bottles included, as a CSV
// download.
func (h *DataHandler) Export(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	data, err := h.Svc.ExportCSV(uid)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "export_failed", nil)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="cellar.csv"`)
	if _, err := w.Write(data); err != nil {
		_ = err
	}
}

// Import ingests a CSV upload row by row. Bad rows are skipped and
// reported; good rows are added regardless.
func (h *DataHandler) Import(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_upload", nil)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "missing_file", nil)
		return
	}
	defer file.Close()
	uid, _ := auth.UserIDFromContext(r.Context())
	report, err := h.Svc.ImportCSV(uid, file)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_csv", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, report)
		return
	}
	renderTemplate(w, r, "import_result", map[string]any{"Report": report})
}
