package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/thecawe/cellar/internal/auth"
	"github.com/thecawe/cellar/internal/services"
)

func TestExportDownload(t *testing.T) {
	conn := openTestDB(t)
	svc := services.NewCellarService(conn)
	h := NewDataHandler(svc)
	user := createApprovedUser(t, conn, "owner@test.local")
	if _, err := svc.Add(user.ID, services.AddInput{Name: "Fleurie", Producer: "Lapierre", Vintage: 2021, Type: "RED", Quantity: 3, BuyPrice: 15}); err != nil {
		t.Fatalf("add: %v", err)
	}

	rec := httptest.NewRecorder()
	h.Export(rec, jsonRequest(http.MethodGet, "/dashboard/data/export", nil, user.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("expected text/csv, got %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "cellar.csv") {
		t.Fatalf("expected a download disposition, got %q", cd)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "Name,Producer,Vintage,Type,Region,Country,Quantity,Price") {
		t.Fatalf("unexpected header row: %q", body)
	}
	if !strings.Contains(body, "Fleurie") {
		t.Fatalf("expected the bottle in the export: %q", body)
	}
}

func TestImportUpload(t *testing.T) {
	conn := openTestDB(t)
	svc := services.NewCellarService(conn)
	h := NewDataHandler(svc)
	user := createApprovedUser(t, conn, "owner@test.local")

	csvData := "Name,Producer,Vintage,Type,Region,Country,Quantity,Price\nMorgon,Foillard,2020,RED,Beaujolais,France,2,22\n,,bad,,,,,\n"
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "cellar.csv")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := fw.Write([]byte(csvData)); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/dashboard/data/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	req = req.WithContext(auth.WithUserID(req.Context(), user.ID))

	rec := httptest.NewRecorder()
	h.Import(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var report services.ImportReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Imported != 1 || report.Skipped != 1 {
		t.Fatalf("expected 1 imported / 1 skipped, got %+v", report)
	}

	items, err := svc.ListAll(user.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].Wine.Name != "Morgon" {
		t.Fatalf("expected the imported bottle, got %+v", items)
	}
}
