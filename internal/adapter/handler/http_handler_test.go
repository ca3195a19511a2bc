package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Dhruvmer/assemblyParts/internal/adapter/storage"
	"github.com/Dhruvmer/assemblyParts/internal/core/domain"
	"github.com/Dhruvmer/assemblyParts/internal/core/service"
	"github.com/Dhruvmer/assemblyParts/internal/metrics"
)

// mockIdempotencyStore rejects keys it has seen before.
type mockIdempotencyStore struct {
	seen map[string]bool
}

func (m *mockIdempotencyStore) SetIdempotency(ctx context.Context, key string) (bool, error) {
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *storage.MemoryAdapter) {
	t.Helper()

	store := storage.NewMemoryAdapter()
	inventory := service.NewInventoryService(store, zap.NewNop(), metrics.New(prometheus.NewRegistry()))
	h := NewHTTPHandler(inventory, &mockIdempotencyStore{}, zap.NewNop())

	mux := http.NewServeMux()
	h.Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, store
}

func seedPart(t *testing.T, store *storage.MemoryAdapter, part domain.Part) {
	t.Helper()
	if err := store.Create(context.Background(), part); err != nil {
		t.Fatalf("seed part %s: %v", part.ID, err)
	}
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestHTTP_CreatePart(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/part", map[string]any{
		"name": "Bolt",
		"type": "RAW",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	body := decodeBody[partResponse](t, resp)
	if body.ID != "bolt-1" {
		t.Errorf("expected id bolt-1, got %s", body.ID)
	}
	if body.Type != "RAW" {
		t.Errorf("expected type RAW, got %s", body.Type)
	}
}

func TestHTTP_CreatePart_MissingFields(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/part", map[string]any{"name": "Bolt"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestHTTP_CreatePart_CycleRejected(t *testing.T) {
	srv, store := newTestServer(t)
	seedPart(t, store, domain.Part{ID: "a", Name: "a", Kind: domain.PartKindAssembled,
		Constituents: []domain.Constituent{{PartID: "b", Quantity: 1}}})
	seedPart(t, store, domain.Part{ID: "b", Name: "b", Kind: domain.PartKindAssembled,
		Constituents: []domain.Constituent{{PartID: "a", Quantity: 1}}})

	resp := postJSON(t, srv.URL+"/api/part", map[string]any{
		"name": "widget",
		"type": "ASSEMBLED",
		"parts": []map[string]any{
			{"id": "a", "quantity": 1},
		},
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", resp.StatusCode)
	}
}

func TestHTTP_AddInventory_Success(t *testing.T) {
	srv, store := newTestServer(t)
	seedPart(t, store, domain.Part{ID: "screw-1", Name: "screw", Kind: domain.PartKindRaw, Quantity: 10})

	resp := postJSON(t, srv.URL+"/api/part/screw-1", map[string]any{"quantity": 5})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeBody[statusResponse](t, resp)
	if body.Status != "SUCCESS" {
		t.Errorf("expected SUCCESS, got %s", body.Status)
	}

	part, _ := store.Get(context.Background(), "screw-1")
	if part.Quantity != 15 {
		t.Errorf("expected quantity 15, got %d", part.Quantity)
	}
}

func TestHTTP_AddInventory_InsufficientStock(t *testing.T) {
	srv, store := newTestServer(t)
	seedPart(t, store, domain.Part{ID: "plate-1", Name: "plate", Kind: domain.PartKindRaw, Quantity: 0})
	seedPart(t, store, domain.Part{ID: "bracket-1", Name: "bracket", Kind: domain.PartKindAssembled,
		Constituents: []domain.Constituent{{PartID: "plate-1", Quantity: 1}}})

	resp := postJSON(t, srv.URL+"/api/part/bracket-1", map[string]any{"quantity": 1})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}

	body := decodeBody[statusResponse](t, resp)
	if body.Status != "FAILED" {
		t.Errorf("expected FAILED, got %s", body.Status)
	}
}

func TestHTTP_AddInventory_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/part/ghost", map[string]any{"quantity": 1})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestHTTP_AddInventory_InvalidQuantity(t *testing.T) {
	srv, store := newTestServer(t)
	seedPart(t, store, domain.Part{ID: "screw-1", Name: "screw", Kind: domain.PartKindRaw, Quantity: 10})

	resp := postJSON(t, srv.URL+"/api/part/screw-1", map[string]any{"quantity": 0})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestHTTP_AddInventory_DuplicateRequest(t *testing.T) {
	srv, store := newTestServer(t)
	seedPart(t, store, domain.Part{ID: "screw-1", Name: "screw", Kind: domain.PartKindRaw, Quantity: 0})

	payload := map[string]any{"request_id": "req-1", "quantity": 5}

	resp := postJSON(t, srv.URL+"/api/part/screw-1", payload)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on first request, got %d", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/api/part/screw-1", payload)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 on duplicate request, got %d", resp.StatusCode)
	}

	// Stock must only move once.
	part, _ := store.Get(context.Background(), "screw-1")
	if part.Quantity != 5 {
		t.Errorf("expected quantity 5, got %d", part.Quantity)
	}
}

func TestHTTP_GetPart(t *testing.T) {
	srv, store := newTestServer(t)
	seedPart(t, store, domain.Part{ID: "bracket-1", Name: "bracket", Kind: domain.PartKindAssembled, Quantity: 3,
		Constituents: []domain.Constituent{{PartID: "screw-1", Quantity: 2}}})

	resp, err := http.Get(srv.URL + "/api/part/bracket-1")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeBody[partResponse](t, resp)
	if body.Quantity != 3 {
		t.Errorf("expected quantity 3, got %d", body.Quantity)
	}
	if len(body.Parts) != 1 || body.Parts[0].ID != "screw-1" {
		t.Errorf("unexpected constituents: %v", body.Parts)
	}
}

func TestHTTP_GetPart_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/part/ghost")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestHTTP_ListParts(t *testing.T) {
	srv, store := newTestServer(t)
	seedPart(t, store, domain.Part{ID: "screw-1", Name: "screw", Kind: domain.PartKindRaw})
	seedPart(t, store, domain.Part{ID: "plate-1", Name: "plate", Kind: domain.PartKindRaw})

	resp, err := http.Get(srv.URL + "/api/part")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeBody[[]partResponse](t, resp)
	if len(body) != 2 {
		t.Errorf("expected 2 parts, got %d", len(body))
	}
}

func TestHTTP_SetQuantity(t *testing.T) {
	srv, store := newTestServer(t)
	seedPart(t, store, domain.Part{ID: "screw-1", Name: "screw", Kind: domain.PartKindRaw, Quantity: 1})

	data, _ := json.Marshal(map[string]any{"quantity": 9})
	req, _ := http.NewRequest(http.MethodPatch, srv.URL+"/api/part/screw-1/quantity", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PATCH failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeBody[partResponse](t, resp)
	if body.Quantity != 9 {
		t.Errorf("expected quantity 9, got %d", body.Quantity)
	}
}

func TestHTTP_DeletePart(t *testing.T) {
	srv, store := newTestServer(t)
	seedPart(t, store, domain.Part{ID: "screw-1", Name: "screw", Kind: domain.PartKindRaw})

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/part/screw-1", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	part, _ := store.Get(context.Background(), "screw-1")
	if part != nil {
		t.Error("expected part to be gone")
	}

	// Deleting again is a 404.
	req, _ = http.NewRequest(http.MethodDelete, srv.URL+"/api/part/screw-1", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("second DELETE failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestHTTP_HealthCheck(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}
