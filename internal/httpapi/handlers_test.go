package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"opticpos/internal/domain"
	"opticpos/internal/sequence"
	"opticpos/internal/service"
	"opticpos/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	seq := sequence.NewCountSequencer(repo, "INV-")
	svc := service.New(repo, nil, seq, service.Options{})
	auth := NewAuthManager("test-secret-key-with-enough-length", time.Hour, repo)

	return New(svc, auth, []string{"*"})
}

func login(t *testing.T, handler http.Handler, username, password string) string {
	t.Helper()

	body, _ := json.Marshal(domain.LoginRequest{Username: username, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()

	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("%s login failed, status %d", username, res.Code)
	}

	var payload domain.LoginResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode login response failed: %v", err)
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		t.Fatalf("expected access token in login response")
	}
	return payload.AccessToken
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v (raw %s)", err, rec.Body.String())
	}
	return out
}

func invoiceBody(itemID string, qty int, cash float64) domain.InvoiceRequest {
	return domain.InvoiceRequest{
		Customer: domain.CustomerSnapshot{Name: "Asha Rao", Mobile: "9876543210"},
		Items: []domain.LineItem{
			{ItemID: itemID, Name: "TR90 Full Rim Frame", UnitPrice: 1500, Quantity: qty, GSTPercent: 12},
		},
		PaymentCash:  cash,
		DeliveryDate: "2026-10-25",
	}
}

func TestHandleHealth(t *testing.T) {
	handler := newTestAPI(t).Handler()

	rec := doJSON(t, handler, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody[map[string]any](t, rec)
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestMetricsEndpointIsPublic(t *testing.T) {
	handler := newTestAPI(t).Handler()

	doJSON(t, handler, http.MethodGet, "/healthz", "", nil)
	rec := doJSON(t, handler, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "opticpos_http_requests_total") {
		t.Fatalf("expected request counter in metrics output")
	}
}

func TestHandleLoginWrongPassword(t *testing.T) {
	handler := newTestAPI(t).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/auth/login", "", domain.LoginRequest{Username: "admin", Password: "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	handler := newTestAPI(t).Handler()

	rec := doJSON(t, handler, http.MethodGet, "/items", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodGet, "/items", "not-a-jwt", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", rec.Code)
	}
}

func TestInvoiceNumberPeeksWithoutConsuming(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := login(t, handler, "staff", "staff123")

	for i := 0; i < 2; i++ {
		rec := doJSON(t, handler, http.MethodGet, "/invoice-number", token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got := decodeBody[domain.InvoiceNumberResponse](t, rec); got.InvoiceNo != "INV-0001" {
			t.Fatalf("expected INV-0001, got %q", got.InvoiceNo)
		}
	}
}

func TestSubmitReduceStockAndDeliver(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := login(t, handler, "staff", "staff123")

	rec := doJSON(t, handler, http.MethodPost, "/submit", token, invoiceBody("NE-2", 2, 1000))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	invoice := decodeBody[domain.Invoice](t, rec)
	if invoice.InvoiceNo != "INV-0001" || invoice.OrderStatus.State() != domain.StateOrdered {
		t.Fatalf("unexpected invoice %+v", invoice)
	}
	if invoice.GrandTotal != 3360 || invoice.Remaining != 2360 {
		t.Fatalf("expected grand 3360 remaining 2360, got %v / %v", invoice.GrandTotal, invoice.Remaining)
	}

	rec = doJSON(t, handler, http.MethodPost, "/items/reduce-stock", token, domain.ReduceStockRequest{
		Items: []domain.StockDecrement{{ItemID: "NE-2", Quantity: 2}, {ItemID: "NE-404", Quantity: 1}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	reduced := decodeBody[domain.ReduceStockResponse](t, rec)
	if reduced.Applied != 1 || len(reduced.Missing) != 1 || reduced.Missing[0] != "NE-404" {
		t.Fatalf("unexpected reduce result %+v", reduced)
	}

	rec = doJSON(t, handler, http.MethodGet, "/items/NE-2", token, nil)
	if got := decodeBody[domain.InventoryItem](t, rec); got.Stock != 23 {
		t.Fatalf("expected stock 23, got %d", got.Stock)
	}

	rec = doJSON(t, handler, http.MethodPut, "/status/"+invoice.ID, token, domain.StatusRequest{Status: domain.StateDelivered})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 while balance is open, got %d", rec.Code)
	}

	settle := invoiceBody("NE-2", 2, 3360)
	rec = doJSON(t, handler, http.MethodPut, "/update/"+invoice.ID, token, settle)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on update, got %d (%s)", rec.Code, rec.Body.String())
	}
	if got := decodeBody[domain.Invoice](t, rec); got.Remaining != 0 || got.InvoiceNo != invoice.InvoiceNo {
		t.Fatalf("unexpected updated invoice %+v", got)
	}

	rec = doJSON(t, handler, http.MethodPut, "/status/"+invoice.ID, token, domain.StatusRequest{Status: domain.StateDelivered, PaymentMethod: "upi"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on deliver, got %d (%s)", rec.Code, rec.Body.String())
	}
	delivered := decodeBody[domain.Invoice](t, rec)
	if !delivered.OrderStatus.Delivered || delivered.PaymentMethod != "upi" {
		t.Fatalf("unexpected delivered invoice %+v", delivered)
	}

	rec = doJSON(t, handler, http.MethodGet, "/all?type=delivered", token, nil)
	if got := decodeBody[[]domain.Invoice](t, rec); len(got) != 1 {
		t.Fatalf("expected 1 delivered invoice, got %d", len(got))
	}
	rec = doJSON(t, handler, http.MethodGet, "/all?type=ordered", token, nil)
	if got := decodeBody[[]domain.Invoice](t, rec); len(got) != 0 {
		t.Fatalf("expected 0 ordered invoices, got %d", len(got))
	}
}

func TestListInvoicesRejectsUnknownType(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := login(t, handler, "staff", "staff123")

	rec := doJSON(t, handler, http.MethodGet, "/all?type=cancelled", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSubmitValidationReturns400(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := login(t, handler, "staff", "staff123")

	body := invoiceBody("NE-2", 0, 0)
	rec := doJSON(t, handler, http.MethodPost, "/submit", token, body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(`{"unknown":true}`))
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", res.Code)
	}
}

func TestUnknownInvoiceReturns404(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := login(t, handler, "admin", "admin123")

	if rec := doJSON(t, handler, http.MethodGet, "/invoice/missing", token, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on get, got %d", rec.Code)
	}
	if rec := doJSON(t, handler, http.MethodDelete, "/delete/missing", token, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on delete, got %d", rec.Code)
	}
}

func TestCreateAndUpdateItem(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := login(t, handler, "staff", "staff123")

	rec := doJSON(t, handler, http.MethodPost, "/items", token, domain.ItemCreateRequest{
		ItemNumber: "FR-KIDS-01", Name: "Kids Flex Frame", Type: "frame", SalePrice: 900, GSTPercent: 12, Stock: 5,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	created := decodeBody[domain.InventoryItem](t, rec)
	if created.ID != "NE-6" || created.CGSTPercent != 6 {
		t.Fatalf("unexpected item %+v", created)
	}

	price := 950.0
	rec = doJSON(t, handler, http.MethodPut, "/items/"+created.ID, token, domain.ItemUpdateRequest{SalePrice: &price})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decodeBody[domain.InventoryItem](t, rec); got.SalePrice != 950 || got.Name != "Kids Flex Frame" {
		t.Fatalf("unexpected updated item %+v", got)
	}

	rec = doJSON(t, handler, http.MethodGet, "/items", token, nil)
	if got := decodeBody[[]domain.InventoryItem](t, rec); len(got) != 6 {
		t.Fatalf("expected 6 items, got %d", len(got))
	}

	if rec := doJSON(t, handler, http.MethodDelete, "/items/"+created.ID, token, nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", rec.Code)
	}
	if rec := doJSON(t, handler, http.MethodGet, "/items/"+created.ID, token, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestBulkItemsReportsPartialSuccess(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := login(t, handler, "staff", "staff123")

	rec := doJSON(t, handler, http.MethodPost, "/items/bulk", token, domain.BulkItemRequest{Items: []domain.ItemCreateRequest{
		{ItemNumber: "LN-BLUE-01", Name: "Blue Cut Lens", SalePrice: 1100, GSTPercent: 12, Stock: 20},
		{ItemNumber: "FR-RB3025", Name: "Duplicate Aviator", SalePrice: 4800, GSTPercent: 12},
	}})
	if rec.Code != http.StatusMultiStatus {
		t.Fatalf("expected 207, got %d (%s)", rec.Code, rec.Body.String())
	}
	result := decodeBody[domain.BulkItemResponse](t, rec)
	if len(result.Inserted) != 1 || len(result.Skipped) != 1 || result.Skipped[0].Index != 1 {
		t.Fatalf("unexpected bulk result %+v", result)
	}

	rec = doJSON(t, handler, http.MethodPost, "/items/bulk", token, domain.BulkItemRequest{Items: []domain.ItemCreateRequest{
		{ItemNumber: "AC-CASE-01", Name: "Hard Case", SalePrice: 150, GSTPercent: 18},
	}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
}

func TestDeleteAllItemsIsAdminOnly(t *testing.T) {
	handler := newTestAPI(t).Handler()
	staff := login(t, handler, "staff", "staff123")
	admin := login(t, handler, "admin", "admin123")

	if rec := doJSON(t, handler, http.MethodDelete, "/items/delete-all", staff, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff, got %d", rec.Code)
	}

	rec := doJSON(t, handler, http.MethodDelete, "/items/delete-all", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", rec.Code)
	}
	if got := decodeBody[map[string]any](t, rec); got["deleted"] != float64(5) {
		t.Fatalf("expected 5 deleted, got %v", got["deleted"])
	}

	rec = doJSON(t, handler, http.MethodGet, "/items", admin, nil)
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Fatalf("expected empty array, got %s", body)
	}
}

func TestCalculatePreviewsTotals(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := login(t, handler, "staff", "staff123")

	rec := doJSON(t, handler, http.MethodPost, "/calculate", token, invoiceBody("NE-2", 2, 0))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	totals := decodeBody[map[string]any](t, rec)
	if totals["grandTotal"] != float64(3360) {
		t.Fatalf("expected grandTotal 3360, got %v", totals["grandTotal"])
	}

	rec = doJSON(t, handler, http.MethodGet, "/all", token, nil)
	if got := decodeBody[[]domain.Invoice](t, rec); len(got) != 0 {
		t.Fatalf("expected preview to persist nothing, got %d invoices", len(got))
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	handler := newTestAPI(t).Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "req-123" {
		t.Fatalf("expected request id echoed, got %q", got)
	}
}

func TestWrongMethodReturnsJSON405(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := login(t, handler, "staff", "staff123")

	rec := doJSON(t, handler, http.MethodPatch, "/submit", token, nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if got := decodeBody[map[string]any](t, rec); got["error"] == nil {
		t.Fatalf("expected JSON error body")
	}
}

func TestUpdateItemAcceptsFetchedItem(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := login(t, handler, "staff", "staff123")

	rec := doJSON(t, handler, http.MethodGet, "/items/NE-1", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on get, got %d", rec.Code)
	}
	item := decodeBody[domain.InventoryItem](t, rec)
	original := item
	item.SalePrice = 4500
	item.ID = "NE-999"
	item.CGSTPercent = 40

	rec = doJSON(t, handler, http.MethodPut, "/items/NE-1", token, item)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 when sending the fetched item back, got %d (%s)", rec.Code, rec.Body.String())
	}
	saved := decodeBody[domain.InventoryItem](t, rec)
	if saved.SalePrice != 4500 {
		t.Fatalf("expected salePrice 4500, got %v", saved.SalePrice)
	}
	if saved.ID != "NE-1" || saved.CGSTPercent != original.CGSTPercent || !saved.CreatedAt.Equal(original.CreatedAt) {
		t.Fatalf("expected read-only fields to be ignored, got %+v", saved)
	}
}
