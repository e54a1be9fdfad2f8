package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/GeorgeMargineanu/toolgate/internal/domain/audit"
	"github.com/GeorgeMargineanu/toolgate/internal/infra/sqlite"
)

func newTestStore(t *testing.T) *audit.Store {
	t.Helper()

	db, err := sqlite.NewDB(":memory:")
	if err != nil {
		t.Fatalf("NewDB(:memory:) error = %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := sqlite.MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}
	return audit.NewStore(db)
}

func appendRecords(t *testing.T, store *audit.Store, n int) []*audit.Record {
	t.Helper()

	out := make([]*audit.Record, 0, n)
	for i := 0; i < n; i++ {
		rec := audit.NewRecord("alice", "update_file",
			json.RawMessage(`{"path":"a.txt","content":"hi"}`),
			json.RawMessage(`{"path":"a.txt","status":"written"}`))
		if err := store.Append(context.Background(), rec); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		out = append(out, rec)
	}
	return out
}

func TestAuditHandler_List(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	recs := appendRecords(t, store, 3)
	h := NewAuditHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/v1/audit?limit=2", nil)
	rr := httptest.NewRecorder()
	h.List(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200: %s", rr.Code, rr.Body)
	}

	var resp ListAuditResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if resp.Meta.Total != 3 || resp.Meta.Limit != 2 {
		t.Errorf("meta = %+v; want total 3 limit 2", resp.Meta)
	}
	if len(resp.Data) != 2 {
		t.Fatalf("len(data) = %d; want 2", len(resp.Data))
	}
	// Insertion order.
	if resp.Data[0].ID != recs[0].ID || resp.Data[1].ID != recs[1].ID {
		t.Error("records not returned in insertion order")
	}
}

func TestAuditHandler_ListEmpty(t *testing.T) {
	t.Parallel()

	h := NewAuditHandler(newTestStore(t))

	req := httptest.NewRequest(http.MethodGet, "/v1/audit", nil)
	rr := httptest.NewRecorder()
	h.List(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rr.Code)
	}
	var resp ListAuditResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if resp.Data == nil || len(resp.Data) != 0 {
		t.Errorf("data = %v; want empty array, not null", resp.Data)
	}
}

func TestAuditHandler_Get(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	recs := appendRecords(t, store, 1)
	h := NewAuditHandler(store)

	router := chi.NewRouter()
	router.Get("/v1/audit/{id}", h.Get)

	req := httptest.NewRequest(http.MethodGet, "/v1/audit/"+recs[0].ID, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200: %s", rr.Code, rr.Body)
	}
	var got audit.Record
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if got.ID != recs[0].ID {
		t.Errorf("id = %q; want %q", got.ID, recs[0].ID)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/audit/nope", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d for unknown id; want 404", rr.Code)
	}
}
