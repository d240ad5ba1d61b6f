package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"osteosex/db"
	"osteosex/ml"
)

func TestServerMiddlewareHeaders(t *testing.T) {
	srv := NewServer(DefaultServerConfig(), &Handlers{Models: newFakeModels(t)})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://lab.example")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("missing security header, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://lab.example" {
		t.Errorf("unexpected CORS origin %q", got)
	}
}

func TestServerRejectsOversizedBody(t *testing.T) {
	config := DefaultServerConfig()
	config.MaxBodyBytes = 16
	srv := NewServer(config, &Handlers{Models: newFakeModels(t)})

	body := `{"model":"csg","method":"LDA","bone":"Femur","side":"Left","slots":[1]}`
	req := httptest.NewRequest(http.MethodPost, "/api/estimate/csg", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestResultsFeed(t *testing.T) {
	saveEstimations = func(rows []ml.Row) error { return nil }
	defer func() { saveEstimations = db.SaveEstimations }()

	hub := NewResultsHub(nil)
	go hub.Run()
	defer hub.Stop()

	srv := NewServer(DefaultServerConfig(), &Handlers{Models: newFakeModels(t), Hub: hub})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/ws/results", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Give the hub time to register the client before publishing.
	time.Sleep(50 * time.Millisecond)

	b, _ := json.Marshal(vertebraRequest{
		Model: "vertebrae", SampleID: "V-1", Method: "LDA", Population: "Greek", Vertebra: "T12", Values: []float64{16, 12},
	})
	resp, err := http.Post(ts.URL+"/api/estimate/vertebra", "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != EstimationMessage {
		t.Fatalf("unexpected message type %q", msg.Type)
	}
	var rows []ml.Row
	if err := json.Unmarshal(msg.Data, &rows); err != nil {
		t.Fatalf("invalid rows: %v", err)
	}
	if len(rows) != 1 || rows[0].SampleID != "V-1" || rows[0].Element != "Greek T12" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}
