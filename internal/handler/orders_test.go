package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bazaar-kiosk/api/internal/auth"
	"github.com/bazaar-kiosk/api/internal/handler"
	"github.com/bazaar-kiosk/api/internal/middleware"
	"github.com/bazaar-kiosk/api/internal/service"
	"github.com/go-chi/chi/v5"
)

// --- Mock OrderServicer ---

type mockOrderService struct {
	createFn     func(ctx context.Context, req service.CreateOrderRequest) (*service.OrderView, error)
	getFn        func(ctx context.Context, id int64) (*service.OrderView, error)
	listFn       func(ctx context.Context, req service.ListOrdersRequest) ([]service.OrderView, error)
	setStatusFn  func(ctx context.Context, orderID int64, status string) (*service.OrderView, error)
	progressFn   func(ctx context.Context, itemID int64, req service.ProgressRequest) (*service.OrderView, error)
	addItemFn    func(ctx context.Context, orderID int64, req service.CreateOrderItemRequest) (*service.OrderView, error)
	updateQtyFn  func(ctx context.Context, itemID int64, qty int32) (*service.OrderView, error)
	removeItemFn func(ctx context.Context, itemID int64) (*service.OrderView, error)
}

func (m *mockOrderService) CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.OrderView, error) {
	return m.createFn(ctx, req)
}

func (m *mockOrderService) GetOrder(ctx context.Context, id int64) (*service.OrderView, error) {
	return m.getFn(ctx, id)
}

func (m *mockOrderService) ListOrders(ctx context.Context, req service.ListOrdersRequest) ([]service.OrderView, error) {
	return m.listFn(ctx, req)
}

func (m *mockOrderService) SetStatus(ctx context.Context, orderID int64, status string) (*service.OrderView, error) {
	return m.setStatusFn(ctx, orderID, status)
}

func (m *mockOrderService) SetItemProgress(ctx context.Context, itemID int64, req service.ProgressRequest) (*service.OrderView, error) {
	return m.progressFn(ctx, itemID, req)
}

func (m *mockOrderService) AddItem(ctx context.Context, orderID int64, req service.CreateOrderItemRequest) (*service.OrderView, error) {
	return m.addItemFn(ctx, orderID, req)
}

func (m *mockOrderService) UpdateItemQty(ctx context.Context, itemID int64, qty int32) (*service.OrderView, error) {
	return m.updateQtyFn(ctx, itemID, qty)
}

func (m *mockOrderService) RemoveItem(ctx context.Context, itemID int64) (*service.OrderView, error) {
	return m.removeItemFn(ctx, itemID)
}

// --- Helpers ---

const testJWTSecret = "test-secret-for-orders"

var editorRoles = []string{"B1_COUNTER", "KITCHEN", "KITCHEN_HALL", "KITCHEN_TAKEOUT"}

// setupOrderRouter mounts the order routes the way the application router does.
func setupOrderRouter(svc *mockOrderService) *chi.Mux {
	h := handler.NewOrderHandler(svc)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/api/orders", func(r chi.Router) {
		h.RegisterRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(editorRoles...))
			h.RegisterEditRoutes(r)
		})
	})
	return r
}

func doAuthRequest(t *testing.T, router http.Handler, method, path string, body interface{}, role string) *httptest.ResponseRecorder {
	t.Helper()

	token, err := auth.GenerateToken(testJWTSecret, role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func testOrderView() *service.OrderView {
	no := int32(7)
	date := "2026-03-02"
	table := int32(5)
	return &service.OrderView{
		ID:            42,
		Floor:         "B1",
		OrderType:     "DINE_IN",
		Status:        "PREPARING",
		Source:        "B1_COUNTER",
		OrderNo:       &no,
		OrderDate:     &date,
		TableNumber:   &table,
		PaymentMethod: "CASH",
		TotalPrice:    11000,
		ChangeAmount:  9000,
		Items: []service.OrderItemView{
			{ID: 1, MenuItemID: 1, MenuItemName: "Tteokbokki", Qty: 2, UnitPrice: 3000, LineTotal: 6000, RemainingQty: 2},
			{ID: 2, MenuItemID: 2, MenuItemName: "Kimbap", Qty: 1, UnitPrice: 5000, LineTotal: 5000, RemainingQty: 1},
		},
	}
}

// =====================
// Create
// =====================

func TestOrderCreate_HappyPath(t *testing.T) {
	svc := &mockOrderService{
		createFn: func(ctx context.Context, req service.CreateOrderRequest) (*service.OrderView, error) {
			if req.Floor != "B1" {
				t.Errorf("floor: got %q, want B1", req.Floor)
			}
			if req.TableNumber == nil || *req.TableNumber != 5 {
				t.Errorf("table_number: got %v, want 5", req.TableNumber)
			}
			if req.ReceivedAmount != "20000" {
				t.Errorf("received_amount: got %q, want 20000", req.ReceivedAmount)
			}
			if len(req.Items) != 2 || req.Items[0].Qty != 2 || req.Items[1].MenuItemID != 2 {
				t.Errorf("items: got %+v", req.Items)
			}
			return testOrderView(), nil
		},
	}

	router := setupOrderRouter(svc)
	rr := doAuthRequest(t, router, "POST", "/api/orders", map[string]interface{}{
		"floor":           "B1",
		"order_type":      "DINE_IN",
		"table_number":    5,
		"payment_method":  "CASH",
		"received_amount": 20000,
		"items": []map[string]interface{}{
			{"menu_item_id": 1, "qty": 2},
			{"menu_item_id": 2, "qty": 1},
		},
	}, "ORDER")

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["total_price"] != float64(11000) {
		t.Errorf("total_price: got %v, want 11000", resp["total_price"])
	}
	if resp["order_no"] != float64(7) {
		t.Errorf("order_no: got %v, want 7", resp["order_no"])
	}
	if resp["order_date"] != "2026-03-02" {
		t.Errorf("order_date: got %v", resp["order_date"])
	}
	items, ok := resp["items"].([]interface{})
	if !ok || len(items) != 2 {
		t.Fatalf("items: got %v", resp["items"])
	}
	first := items[0].(map[string]interface{})
	if first["line_total"] != float64(6000) || first["remaining_qty"] != float64(2) {
		t.Errorf("derived fields: got %v", first)
	}
}

func TestOrderCreate_AmountsAsStrings(t *testing.T) {
	svc := &mockOrderService{
		createFn: func(ctx context.Context, req service.CreateOrderRequest) (*service.OrderView, error) {
			if req.ReceivedCashAmount != "6,000" {
				t.Errorf("received_cash_amount: got %q", req.ReceivedCashAmount)
			}
			if req.ReceivedTicketAmount != "4000" {
				t.Errorf("received_ticket_amount: got %q", req.ReceivedTicketAmount)
			}
			if req.ReceivedAmount != "" {
				t.Errorf("received_amount: got %q, want empty for null", req.ReceivedAmount)
			}
			return testOrderView(), nil
		},
	}

	router := setupOrderRouter(svc)
	rr := doAuthRequest(t, router, "POST", "/api/orders", map[string]interface{}{
		"order_type":             "TAKEOUT",
		"payment_method":         "CASH_TICKET",
		"received_amount":        nil,
		"received_cash_amount":   "6,000",
		"received_ticket_amount": 4000,
		"items":                  []map[string]interface{}{{"menu_item_id": 1, "qty": 1}},
	}, "ORDER")

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
}

func TestOrderCreate_BadAmountType(t *testing.T) {
	svc := &mockOrderService{}
	router := setupOrderRouter(svc)

	rr := doAuthRequest(t, router, "POST", "/api/orders", map[string]interface{}{
		"order_type":      "TAKEOUT",
		"received_amount": []int{1},
		"items":           []map[string]interface{}{{"menu_item_id": 1, "qty": 1}},
	}, "ORDER")

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestOrderCreate_MissingFields(t *testing.T) {
	svc := &mockOrderService{}
	router := setupOrderRouter(svc)

	tests := []struct {
		name string
		body map[string]interface{}
		want string
	}{
		{"no order_type", map[string]interface{}{"items": []map[string]interface{}{{"menu_item_id": 1, "qty": 1}}}, "order_type is required"},
		{"no items", map[string]interface{}{"order_type": "DINE_IN"}, "items are required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doAuthRequest(t, router, "POST", "/api/orders", tt.body, "ORDER")
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
			}
			if resp := decodeResponse(t, rr); resp["error"] != tt.want {
				t.Errorf("error: got %v, want %q", resp["error"], tt.want)
			}
		})
	}
}

func TestOrderCreate_ServiceErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", service.ErrTableUnavailable, http.StatusBadRequest},
		{"wrapped validation", errors.Join(errors.New("item[1]"), service.ErrInvalidQuantity), http.StatusBadRequest},
		{"allocation", service.ErrAllocation, http.StatusServiceUnavailable},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockOrderService{
				createFn: func(ctx context.Context, req service.CreateOrderRequest) (*service.OrderView, error) {
					return nil, tt.err
				},
			}
			router := setupOrderRouter(svc)
			rr := doAuthRequest(t, router, "POST", "/api/orders", map[string]interface{}{
				"order_type": "DINE_IN",
				"items":      []map[string]interface{}{{"menu_item_id": 1, "qty": 1}},
			}, "ORDER")
			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d; body: %s", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}

func TestOrderCreate_RequiresAuth(t *testing.T) {
	router := setupOrderRouter(&mockOrderService{})

	req := httptest.NewRequest("POST", "/api/orders", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

// =====================
// List / Get
// =====================

func TestOrderList_Filters(t *testing.T) {
	svc := &mockOrderService{
		listFn: func(ctx context.Context, req service.ListOrdersRequest) ([]service.OrderView, error) {
			if req.Floor != "B1" || req.Status != "PREPARING" {
				t.Errorf("filters: got %+v", req)
			}
			if strings.Join(req.Types, ",") != "DINE_IN,TAKEOUT" {
				t.Errorf("types: got %v", req.Types)
			}
			if req.Limit == nil || *req.Limit != 20 {
				t.Errorf("limit: got %v, want 20", req.Limit)
			}
			return []service.OrderView{*testOrderView()}, nil
		},
	}

	router := setupOrderRouter(svc)
	rr := doAuthRequest(t, router, "GET", "/api/orders?floor=B1&status=PREPARING&types=DINE_IN,TAKEOUT&limit=20", nil, "KITCHEN")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["count"] != float64(1) {
		t.Errorf("count: got %v, want 1", resp["count"])
	}
	if results, ok := resp["results"].([]interface{}); !ok || len(results) != 1 {
		t.Errorf("results: got %v", resp["results"])
	}
}

func TestOrderList_LimitAbsentVsZero(t *testing.T) {
	var got []*int
	svc := &mockOrderService{
		listFn: func(ctx context.Context, req service.ListOrdersRequest) ([]service.OrderView, error) {
			got = append(got, req.Limit)
			return []service.OrderView{}, nil
		},
	}
	router := setupOrderRouter(svc)

	doAuthRequest(t, router, "GET", "/api/orders", nil, "KITCHEN")
	doAuthRequest(t, router, "GET", "/api/orders?limit=0", nil, "KITCHEN")

	if len(got) != 2 {
		t.Fatalf("calls: got %d, want 2", len(got))
	}
	if got[0] != nil {
		t.Errorf("absent limit: got %d, want nil", *got[0])
	}
	if got[1] == nil || *got[1] != 0 {
		t.Errorf("limit=0: got %v, want 0", got[1])
	}
	if service.ClampLimit(got[1]) != 1 {
		t.Errorf("limit=0 clamps to %d, want 1", service.ClampLimit(got[1]))
	}
}

func TestOrderList_InvalidLimit(t *testing.T) {
	router := setupOrderRouter(&mockOrderService{})

	rr := doAuthRequest(t, router, "GET", "/api/orders?limit=abc", nil, "KITCHEN")

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestOrderList_InvalidFilter(t *testing.T) {
	svc := &mockOrderService{
		listFn: func(ctx context.Context, req service.ListOrdersRequest) ([]service.OrderView, error) {
			return nil, service.ErrInvalidFilter
		},
	}
	router := setupOrderRouter(svc)

	rr := doAuthRequest(t, router, "GET", "/api/orders?status=DONE", nil, "KITCHEN")

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestOrderGet(t *testing.T) {
	svc := &mockOrderService{
		getFn: func(ctx context.Context, id int64) (*service.OrderView, error) {
			if id == 42 {
				return testOrderView(), nil
			}
			return nil, service.ErrOrderNotFound
		},
	}
	router := setupOrderRouter(svc)

	rr := doAuthRequest(t, router, "GET", "/api/orders/42", nil, "ORDER")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}

	rr = doAuthRequest(t, router, "GET", "/api/orders/43", nil, "ORDER")
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing order: got %d, want %d", rr.Code, http.StatusNotFound)
	}

	rr = doAuthRequest(t, router, "GET", "/api/orders/abc", nil, "ORDER")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad id: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// =====================
// Status / progress
// =====================

func TestOrderUpdateStatus(t *testing.T) {
	svc := &mockOrderService{
		setStatusFn: func(ctx context.Context, orderID int64, status string) (*service.OrderView, error) {
			if orderID != 42 || status != "CANCELLED" {
				t.Errorf("got (%d, %q)", orderID, status)
			}
			o := testOrderView()
			o.Status = "CANCELLED"
			return o, nil
		},
	}
	router := setupOrderRouter(svc)

	rr := doAuthRequest(t, router, "PATCH", "/api/orders/42/status", map[string]string{"status": "CANCELLED"}, "B1_COUNTER")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if resp := decodeResponse(t, rr); resp["status"] != "CANCELLED" {
		t.Errorf("status field: got %v", resp["status"])
	}
}

func TestOrderUpdateStatus_ForbiddenForOrderRole(t *testing.T) {
	router := setupOrderRouter(&mockOrderService{})

	rr := doAuthRequest(t, router, "PATCH", "/api/orders/42/status", map[string]string{"status": "READY"}, "ORDER")

	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestOrderUpdateStatus_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", service.ErrOrderNotFound, http.StatusNotFound},
		{"reopen cancelled", service.ErrOrderCancelled, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockOrderService{
				setStatusFn: func(ctx context.Context, orderID int64, status string) (*service.OrderView, error) {
					return nil, tt.err
				},
			}
			router := setupOrderRouter(svc)
			rr := doAuthRequest(t, router, "PATCH", "/api/orders/42/status", map[string]string{"status": "READY"}, "KITCHEN")
			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d", rr.Code, tt.want)
			}
		})
	}

	router := setupOrderRouter(&mockOrderService{})
	rr := doAuthRequest(t, router, "PATCH", "/api/orders/42/status", map[string]string{}, "KITCHEN")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestOrderUpdateProgress(t *testing.T) {
	svc := &mockOrderService{
		progressFn: func(ctx context.Context, itemID int64, req service.ProgressRequest) (*service.OrderView, error) {
			if itemID != 2 {
				t.Errorf("item id: got %d, want 2", itemID)
			}
			if req.Done == nil || !*req.Done || req.PreparedQty != nil {
				t.Errorf("progress request: got %+v", req)
			}
			o := testOrderView()
			o.Status = "READY"
			return o, nil
		},
	}
	router := setupOrderRouter(svc)

	rr := doAuthRequest(t, router, "PATCH", "/api/orders/items/2/progress", map[string]bool{"done": true}, "KITCHEN_HALL")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if resp := decodeResponse(t, rr); resp["status"] != "READY" {
		t.Errorf("status field: got %v", resp["status"])
	}
}

func TestOrderUpdateProgress_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"out of range", service.ErrValidation, http.StatusBadRequest},
		{"cancelled order", service.ErrOrderCancelled, http.StatusBadRequest},
		{"missing item", service.ErrItemNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockOrderService{
				progressFn: func(ctx context.Context, itemID int64, req service.ProgressRequest) (*service.OrderView, error) {
					return nil, tt.err
				},
			}
			router := setupOrderRouter(svc)
			rr := doAuthRequest(t, router, "PATCH", "/api/orders/items/2/progress", map[string]int{"prepared_qty": 9}, "KITCHEN")
			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

// =====================
// Item editing
// =====================

func TestOrderAddItem(t *testing.T) {
	svc := &mockOrderService{
		addItemFn: func(ctx context.Context, orderID int64, req service.CreateOrderItemRequest) (*service.OrderView, error) {
			if orderID != 42 || req.MenuItemID != 3 || req.Qty != 2 || req.Mode != "TAKEOUT" {
				t.Errorf("got (%d, %+v)", orderID, req)
			}
			return testOrderView(), nil
		},
	}
	router := setupOrderRouter(svc)

	rr := doAuthRequest(t, router, "POST", "/api/orders/42/items", map[string]interface{}{
		"menu_item_id": 3, "qty": 2, "mode": "TAKEOUT",
	}, "B1_COUNTER")

	if rr.Code != http.StatusCreated {
		t.Errorf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
}

func TestOrderUpdateItem(t *testing.T) {
	svc := &mockOrderService{
		updateQtyFn: func(ctx context.Context, itemID int64, qty int32) (*service.OrderView, error) {
			if itemID != 1 || qty != 3 {
				t.Errorf("got (%d, %d)", itemID, qty)
			}
			return testOrderView(), nil
		},
	}
	router := setupOrderRouter(svc)

	rr := doAuthRequest(t, router, "PATCH", "/api/orders/items/1", map[string]int{"qty": 3}, "B1_COUNTER")
	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusOK)
	}

	rr = doAuthRequest(t, router, "PATCH", "/api/orders/items/1", map[string]int{}, "B1_COUNTER")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing qty: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestOrderRemoveItem(t *testing.T) {
	svc := &mockOrderService{
		removeItemFn: func(ctx context.Context, itemID int64) (*service.OrderView, error) {
			if itemID == 1 {
				return nil, service.ErrLastItem
			}
			return testOrderView(), nil
		},
	}
	router := setupOrderRouter(svc)

	rr := doAuthRequest(t, router, "DELETE", "/api/orders/items/2", nil, "B1_COUNTER")
	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusOK)
	}

	rr = doAuthRequest(t, router, "DELETE", "/api/orders/items/1", nil, "B1_COUNTER")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("last item: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}
