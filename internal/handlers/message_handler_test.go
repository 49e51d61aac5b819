package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestSendAndThreadMarksRead(t *testing.T) {
	conn := openTestDB(t)
	h := NewMessageHandler(conn)
	alice := createApprovedUser(t, conn, "alice@test.local")
	bob := createApprovedUser(t, conn, "bob@test.local")

	form := url.Values{
		"recipient_id": {fmt.Sprint(bob.ID)},
		"body":         {"Is the Chablis still available?"},
	}
	rec := httptest.NewRecorder()
	h.Send(rec, jsonRequest(http.MethodPost, "/dashboard/messages/send", form, alice.ID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("send: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	// Bob sees one unread conversation with Alice.
	rec = httptest.NewRecorder()
	h.Conversations(rec, jsonRequest(http.MethodGet, "/dashboard/messages", nil, bob.ID))
	var convs struct {
		Conversations []struct {
			OtherID uint  `json:"other_id"`
			Unread  int64 `json:"unread"`
		} `json:"conversations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &convs); err != nil {
		t.Fatalf("decode conversations: %v", err)
	}
	if len(convs.Conversations) != 1 || convs.Conversations[0].Unread != 1 {
		t.Fatalf("expected one unread conversation, got %+v", convs)
	}

	// Opening the thread marks it read.
	rec = httptest.NewRecorder()
	h.Thread(rec, jsonRequest(http.MethodGet, fmt.Sprintf("/dashboard/messages/thread?user=%d", alice.ID), nil, bob.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("thread: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Conversations(rec, jsonRequest(http.MethodGet, "/dashboard/messages", nil, bob.ID))
	if err := json.Unmarshal(rec.Body.Bytes(), &convs); err != nil {
		t.Fatalf("decode conversations: %v", err)
	}
	if convs.Conversations[0].Unread != 0 {
		t.Fatalf("expected the thread to be read after opening, got %+v", convs)
	}
}

func TestSendToUnknownRecipient(t *testing.T) {
	conn := openTestDB(t)
	h := NewMessageHandler(conn)
	alice := createApprovedUser(t, conn, "alice@test.local")

	form := url.Values{"recipient_id": {"999"}, "body": {"hello?"}}
	rec := httptest.NewRecorder()
	h.Send(rec, jsonRequest(http.MethodPost, "/dashboard/messages/send", form, alice.ID))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestThreadUnknownCounterpart(t *testing.T) {
	conn := openTestDB(t)
	h := NewMessageHandler(conn)
	alice := createApprovedUser(t, conn, "alice@test.local")

	rec := httptest.NewRecorder()
	h.Thread(rec, jsonRequest(http.MethodGet, "/dashboard/messages/thread?user=999", nil, alice.ID))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
