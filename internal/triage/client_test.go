package triage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"clinic-booking-server/internal/config"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewClient(config.TriageConfig{BaseURL: server.URL, TimeoutSeconds: 2})
	return client, server
}

func TestHealthy(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","model_loaded":true}`))
	}))
	defer server.Close()

	if !client.Healthy(context.Background()) {
		t.Error("expected healthy service")
	}
}

func TestHealthyModelNotLoaded(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","model_loaded":false}`))
	}))
	defer server.Close()

	if client.Healthy(context.Background()) {
		t.Error("service without a loaded model must not count as healthy")
	}
}

func TestHealthyServiceDown(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	if client.Healthy(context.Background()) {
		t.Error("unreachable service must not count as healthy")
	}
}

func TestSuggest(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"prediction":{"recommendedSpecialty":"Cardiology","confidence":0.91}}`))
	}))
	defer server.Close()

	specialty, confidence, err := client.Suggest(context.Background(), "chest pain and shortness of breath")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if specialty != "Cardiology" {
		t.Errorf("specialty = %q, want Cardiology", specialty)
	}
	if confidence != 0.91 {
		t.Errorf("confidence = %v, want 0.91", confidence)
	}
}

func TestSuggestDefaultsAndClamps(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"prediction":{"recommendedSpecialty":"","confidence":1.7}}`))
	}))
	defer server.Close()

	specialty, confidence, err := client.Suggest(context.Background(), "mild fatigue")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if specialty != "General Practice" {
		t.Errorf("specialty = %q, want the General Practice fallback", specialty)
	}
	if confidence != 1 {
		t.Errorf("confidence = %v, want clamp to 1", confidence)
	}
}

func TestSuggestErrorStatus(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	if _, _, err := client.Suggest(context.Background(), "anything"); err == nil {
		t.Error("expected an error for a 500 response")
	}
}

func TestWaitReadyGivesUp(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"starting","model_loaded":false}`))
	}))
	defer server.Close()

	if err := client.WaitReady(context.Background(), 2); err == nil {
		t.Error("expected WaitReady to give up on an unready service")
	}
}
