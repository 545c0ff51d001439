package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	blobmem "syndic/internal/blob/memory"
	"syndic/internal/core"
	ledgermem "syndic/internal/ledger/memory"
	"syndic/internal/services"
	"syndic/internal/session"
	"syndic/internal/workflow"
)

func newTestServer(t *testing.T, sess *session.Session) (*Server, *ledgermem.Store) {
	t.Helper()
	repo := ledgermem.New([]core.Unit{
		{ID: 1, Name: "Appartement 1"},
		{ID: 2, Name: "Appartement 2"},
		{ID: 99, Name: "Syndic"},
	}, "Syndic")
	blobs := blobmem.New("http://blob.local")
	svc := services.NewLedgerService(repo, blobs, nil)
	ctrl := workflow.New(repo, blobs, nil)
	return NewServer(":0", svc, ctrl, sess, "Syndic"), repo
}

func doJSON(t *testing.T, srv *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, srv, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestCreateDueAndSnapshot(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/dues", map[string]any{
		"unit_id": 1, "month": "Janvier", "year": 2024, "amount": "500,00",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create due status = %d, body %s", rec.Code, rec.Body)
	}
	var due core.Due
	if err := json.Unmarshal(rec.Body.Bytes(), &due); err != nil {
		t.Fatalf("decode due: %v", err)
	}
	if due.Amount.Cents != 50000 || due.Month != core.Janvier {
		t.Fatalf("due = %+v", due)
	}

	// Mutation invalidated the snapshot; the new due must be visible.
	rec = doJSON(t, srv, http.MethodGet, "/api/snapshot?year=2024", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("snapshot status = %d", rec.Code)
	}
	var snap struct {
		Dues  []core.Due  `json:"dues"`
		Units []core.Unit `json:"units"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snap.Dues) != 1 || snap.Dues[0].ID != due.ID {
		t.Fatalf("snapshot dues = %+v", snap.Dues)
	}
	if len(snap.Units) != 2 {
		t.Fatalf("snapshot has %d units, want 2 residents", len(snap.Units))
	}
}

func TestCreateDueRejectsBadInput(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/dues", map[string]any{
		"unit_id": 1, "month": "Mardi", "year": 2024, "amount": "500",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown month status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/dues", map[string]any{
		"unit_id": 1, "month": "Janvier", "year": 2024, "amount": "abc",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad amount status = %d, want 422", rec.Code)
	}
}

// A bad amount must look the same whether the due is recorded plain or with a
// generated receipt.
func TestBadAmountErrorMatchesAcrossEntryPoints(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	payload := map[string]any{"unit_id": 1, "month": "Janvier", "year": 2024, "amount": "abc"}

	plain := doJSON(t, srv, http.MethodPost, "/api/dues", payload)
	withReceipt := doJSON(t, srv, http.MethodPost, "/api/dues/receipt", payload)

	if plain.Code != http.StatusUnprocessableEntity || withReceipt.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d/%d, want 422 on both", plain.Code, withReceipt.Code)
	}
	if plain.Body.String() != withReceipt.Body.String() {
		t.Fatalf("error bodies diverge:\nplain: %s\nwith receipt: %s", plain.Body.String(), withReceipt.Body.String())
	}
	if !strings.Contains(withReceipt.Body.String(), "invalid amount") {
		t.Fatalf("body = %s, want structured amount validation message", withReceipt.Body.String())
	}
}

func TestDuplicateDueConflicts(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	payload := map[string]any{"unit_id": 1, "month": "Mars", "year": 2024, "amount": "500"}

	if rec := doJSON(t, srv, http.MethodPost, "/api/dues", payload); rec.Code != http.StatusCreated {
		t.Fatalf("first create status = %d", rec.Code)
	}
	if rec := doJSON(t, srv, http.MethodPost, "/api/dues", payload); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d, want 409", rec.Code)
	}
}

func TestTablePagination(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodGet, "/api/table?year=2024&page=1&per_page=1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("table status = %d", rec.Code)
	}
	var resp struct {
		Table struct {
			Rows []struct {
				Unit core.Unit `json:"unit"`
			} `json:"rows"`
		} `json:"table"`
		Pagination struct {
			Page       int `json:"page"`
			TotalPages int `json:"total_pages"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Table.Rows) != 1 || resp.Pagination.TotalPages != 2 {
		t.Fatalf("rows=%d pages=%d, want 1 row over 2 pages", len(resp.Table.Rows), resp.Pagination.TotalPages)
	}
}

func TestPresence(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	doJSON(t, srv, http.MethodPost, "/api/dues", map[string]any{
		"unit_id": 1, "month": "Janvier", "year": 2024, "amount": "500",
	})

	rec := doJSON(t, srv, http.MethodGet, "/api/presence?year=2024&month=Janvier", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("presence status = %d", rec.Code)
	}
	var resp struct {
		Paid   []core.Unit `json:"paid"`
		Unpaid []core.Unit `json:"unpaid"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Paid) != 1 || resp.Paid[0].ID != 1 {
		t.Fatalf("paid = %+v", resp.Paid)
	}
	if len(resp.Unpaid) != 1 || resp.Unpaid[0].ID != 2 {
		t.Fatalf("unpaid = %+v", resp.Unpaid)
	}
}

func TestDeleteDue(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/dues", map[string]any{
		"unit_id": 1, "month": "Janvier", "year": 2024, "amount": "500",
	})
	var due core.Due
	_ = json.Unmarshal(rec.Body.Bytes(), &due)

	rec = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/dues/%d?year=2024", due.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, srv, http.MethodDelete, "/api/dues/9999?year=2024", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing delete status = %d, want 404", rec.Code)
	}
}

func TestUploadDueReceiptAndStatus(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/dues", map[string]any{
		"unit_id": 1, "month": "Fevrier", "year": 2024, "amount": "500",
	})
	var due core.Due
	_ = json.Unmarshal(rec.Body.Bytes(), &due)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "recu février.pdf")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write([]byte("%PDF-stub"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/dues/%d/receipt?year=2024", due.ID), &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	urec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(urec, req)
	if urec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body %s", urec.Code, urec.Body)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/upload-status?unit_id=1&month=Fevrier&year=2024", nil)
	var status struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Status != string(workflow.StatusSuccess) {
		t.Fatalf("upload status = %q, want success", status.Status)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/snapshot?year=2024", nil)
	if !strings.Contains(rec.Body.String(), core.StatusValidated) {
		t.Fatal("due not validated after receipt upload")
	}
}

func TestChargeLifecycleOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/charges", map[string]any{
		"month": "Janvier", "year": 2024, "category": "Eau", "amount": "120",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create charge status = %d, body %s", rec.Code, rec.Body)
	}
	var charge core.Charge
	_ = json.Unmarshal(rec.Body.Bytes(), &charge)

	rec = doJSON(t, srv, http.MethodGet, "/api/cards?year=2024&unit_id=1&through=Janvier", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cards status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Eau") {
		t.Fatal("charge missing from cards")
	}

	rec = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/charges/%d?year=2024", charge.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete charge status = %d", rec.Code)
	}
}

func TestExpiredSessionBlocksWrites(t *testing.T) {
	sess := session.New("gestionnaire", session.RoleSyndic, session.WithTimeout(time.Minute))
	// Never started: inactive, so writes must be refused.
	srv, _ := newTestServer(t, sess)

	rec := doJSON(t, srv, http.MethodPost, "/api/dues", map[string]any{
		"unit_id": 1, "month": "Janvier", "year": 2024, "amount": "500",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("write with dead session = %d, want 401", rec.Code)
	}

	// Reads still work.
	if rec := doJSON(t, srv, http.MethodGet, "/api/snapshot?year=2024", nil); rec.Code != http.StatusOK {
		t.Fatalf("read with dead session = %d, want 200", rec.Code)
	}
}

func TestViewerSessionIsReadOnly(t *testing.T) {
	sess := session.New("voisin", session.RoleViewer, session.WithTimeout(time.Minute))
	sess.Start()
	t.Cleanup(sess.Stop)
	srv, _ := newTestServer(t, sess)

	rec := doJSON(t, srv, http.MethodPost, "/api/charges", map[string]any{
		"month": "Janvier", "year": 2024, "category": "Eau", "amount": "120",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("viewer write = %d, want 403", rec.Code)
	}
}
