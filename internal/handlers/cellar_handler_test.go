package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/thecawe/cellar/internal/services"
)

func addForm(name string, qty int) url.Values {
	return url.Values{
		"name":      {name},
		"producer":  {"Test Producer"},
		"vintage":   {"2018"},
		"type":      {"RED"},
		"region":    {"Rhone"},
		"country":   {"France"},
		"quantity":  {fmt.Sprint(qty)},
		"buy_price": {"20"},
	}
}

func TestAddConsumeLifecycle(t *testing.T) {
	conn := openTestDB(t)
	svc := services.NewCellarService(conn)
	h := NewCellarHandler(svc)
	user := createApprovedUser(t, conn, "owner@test.local")

	// Add a bottle with quantity 2.
	rec := httptest.NewRecorder()
	h.Add(rec, jsonRequest(http.MethodPost, "/dashboard/cellar/add", addForm("Cornas", 2), user.ID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var created struct {
		ID       uint `json:"ID"`
		Quantity int  `json:"Quantity"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode add response: %v", err)
	}
	if created.Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", created.Quantity)
	}

	consume := func() (int, *httptest.ResponseRecorder) {
		rec := httptest.NewRecorder()
		target := fmt.Sprintf("/dashboard/cellar/consume?id=%d", created.ID)
		h.Consume(rec, jsonRequest(http.MethodPost, target, url.Values{}, user.ID))
		var out struct {
			Quantity int `json:"quantity"`
		}
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
		return out.Quantity, rec
	}

	// First consume: 2 -> 1.
	qty, rec2 := consume()
	if rec2.Code != http.StatusOK || qty != 1 {
		t.Fatalf("first consume: got %d qty=%d", rec2.Code, qty)
	}
	// Second consume: 1 -> 0.
	qty, rec2 = consume()
	if rec2.Code != http.StatusOK || qty != 0 {
		t.Fatalf("second consume: got %d qty=%d", rec2.Code, qty)
	}
	// Third consume conflicts: the bottle is empty.
	_, rec2 = consume()
	if rec2.Code != http.StatusConflict {
		t.Fatalf("third consume: expected 409, got %d", rec2.Code)
	}

	// The empty bottle is out of the active list.
	rec = httptest.NewRecorder()
	h.List(rec, jsonRequest(http.MethodGet, "/dashboard/cellar", nil, user.ID))
	var listing struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if listing.Total != 0 {
		t.Fatalf("expected empty active cellar, got %d items", listing.Total)
	}
}

func TestAddValidationFailure(t *testing.T) {
	conn := openTestDB(t)
	h := NewCellarHandler(services.NewCellarService(conn))
	user := createApprovedUser(t, conn, "owner@test.local")

	form := addForm("", 0) // blank name, zero quantity
	rec := httptest.NewRecorder()
	h.Add(rec, jsonRequest(http.MethodPost, "/dashboard/cellar/add", form, user.ID))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body := rec.Body.String(); body == "" || rec.Code != http.StatusBadRequest {
		t.Fatalf("expected violation payload, got %q", body)
	}
}

func TestConsumeUnknownItem(t *testing.T) {
	conn := openTestDB(t)
	h := NewCellarHandler(services.NewCellarService(conn))
	user := createApprovedUser(t, conn, "owner@test.local")

	rec := httptest.NewRecorder()
	h.Consume(rec, jsonRequest(http.MethodPost, "/dashboard/cellar/consume?id=999", url.Values{}, user.ID))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestMarketplaceHidesInvisible(t *testing.T) {
	conn := openTestDB(t)
	svc := services.NewCellarService(conn)
	h := NewCellarHandler(svc)
	alice := createApprovedUser(t, conn, "alice@test.local")
	bob := createApprovedUser(t, conn, "bob@test.local")

	visible, err := svc.Add(alice.ID, services.AddInput{Name: "Open Bottle", Producer: "P", Vintage: 2019, Type: "RED", Quantity: 1, IsVisible: true})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.Add(bob.ID, services.AddInput{Name: "Hidden Bottle", Producer: "P", Vintage: 2019, Type: "RED", Quantity: 1}); err != nil {
		t.Fatalf("add: %v", err)
	}

	rec := httptest.NewRecorder()
	h.Marketplace(rec, jsonRequest(http.MethodGet, "/dashboard/marketplace", nil, bob.ID))
	var out struct {
		Total int `json:"total"`
		Items []struct {
			ID uint `json:"ID"`
		} `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Total != 1 || out.Items[0].ID != visible.ID {
		t.Fatalf("expected only the visible item, got %+v", out)
	}
}
