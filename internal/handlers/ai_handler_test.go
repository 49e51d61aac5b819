package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/thecawe/cellar/internal/ai"
	"github.com/thecawe/cellar/internal/auth"
	"github.com/thecawe/cellar/internal/models"
	"github.com/thecawe/cellar/internal/services"
)

type fakeAdvisor struct {
	answer string
	err    error
	cellar []ai.CellarEntry
}

func (f *fakeAdvisor) Advise(ctx context.Context, cellar []ai.CellarEntry, question string) (string, error) {
	f.cellar = cellar
	return f.answer, f.err
}

type fakeScanner struct {
	info *ai.LabelInfo
	err  error
}

func (f *fakeScanner) ScanLabel(ctx context.Context, image []byte, mimeType string) (*ai.LabelInfo, error) {
	return f.info, f.err
}

func TestAdviseUsesInventory(t *testing.T) {
	conn := openTestDB(t)
	svc := services.NewCellarService(conn)
	user := createApprovedUser(t, conn, "owner@test.local")
	if _, err := svc.Add(user.ID, services.AddInput{Name: "Barolo", Producer: "Conterno", Vintage: 2016, Type: "RED", Quantity: 2}); err != nil {
		t.Fatalf("add: %v", err)
	}

	advisor := &fakeAdvisor{answer: "Open the Barolo."}
	h := NewAIHandler(conn, svc, advisor, nil)

	form := url.Values{"question": {"what tonight?"}}
	rec := httptest.NewRecorder()
	h.Advise(rec, jsonRequest(http.MethodPost, "/dashboard/ai/advice", form, user.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var out struct {
		Answer string `json:"answer"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Answer != "Open the Barolo." {
		t.Fatalf("unexpected answer %q", out.Answer)
	}
	if len(advisor.cellar) != 1 || advisor.cellar[0].Name != "Barolo" {
		t.Fatalf("the advisor must receive the inventory, got %+v", advisor.cellar)
	}
}

func TestAdviseNotConfigured(t *testing.T) {
	conn := openTestDB(t)
	h := NewAIHandler(conn, services.NewCellarService(conn), nil, nil)
	user := createApprovedUser(t, conn, "owner@test.local")

	rec := httptest.NewRecorder()
	h.Advise(rec, jsonRequest(http.MethodPost, "/dashboard/ai/advice", url.Values{}, user.ID))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestAdviseModelFailure(t *testing.T) {
	conn := openTestDB(t)
	h := NewAIHandler(conn, services.NewCellarService(conn), &fakeAdvisor{err: errors.New("upstream down")}, nil)
	user := createApprovedUser(t, conn, "owner@test.local")

	rec := httptest.NewRecorder()
	h.Advise(rec, jsonRequest(http.MethodPost, "/dashboard/ai/advice", url.Values{}, user.ID))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func scanRequest(t *testing.T, uid uint) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "label.jpg")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := fw.Write([]byte("fake-jpeg-bytes")); err != nil {
		t.Fatalf("write image: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/dashboard/ai/scan", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	return req.WithContext(auth.WithUserID(req.Context(), uid))
}

func TestScanLabelRecordsEvent(t *testing.T) {
	conn := openTestDB(t)
	user := createApprovedUser(t, conn, "owner@test.local")
	scanner := &fakeScanner{info: &ai.LabelInfo{Name: "Barolo", Producer: "Conterno", Vintage: 2016, Type: "RED"}}
	h := NewAIHandler(conn, services.NewCellarService(conn), nil, scanner)

	rec := httptest.NewRecorder()
	h.ScanLabel(rec, scanRequest(t, user.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var out struct {
		Data ai.LabelInfo `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Data.Name != "Barolo" {
		t.Fatalf("unexpected payload %+v", out.Data)
	}

	var events []models.ScanEvent
	if err := conn.Find(&events).Error; err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 || events[0].UserID != user.ID {
		t.Fatalf("expected one scan event for the user, got %+v", events)
	}
}

func TestScanLabelMissingImage(t *testing.T) {
	conn := openTestDB(t)
	user := createApprovedUser(t, conn, "owner@test.local")
	h := NewAIHandler(conn, services.NewCellarService(conn), nil, &fakeScanner{info: &ai.LabelInfo{}})

	rec := httptest.NewRecorder()
	h.ScanLabel(rec, jsonRequest(http.MethodPost, "/dashboard/ai/scan", url.Values{}, user.ID))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
