package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/bazaar-kiosk/api/internal/service"
	"github.com/go-chi/chi/v5"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.OrderView, error)
	GetOrder(ctx context.Context, id int64) (*service.OrderView, error)
	ListOrders(ctx context.Context, req service.ListOrdersRequest) ([]service.OrderView, error)
	SetStatus(ctx context.Context, orderID int64, status string) (*service.OrderView, error)
	SetItemProgress(ctx context.Context, itemID int64, req service.ProgressRequest) (*service.OrderView, error)
	AddItem(ctx context.Context, orderID int64, req service.CreateOrderItemRequest) (*service.OrderView, error)
	UpdateItemQty(ctx context.Context, itemID int64, qty int32) (*service.OrderView, error)
	RemoveItem(ctx context.Context, itemID int64) (*service.OrderView, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc OrderServicer
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// RegisterRoutes registers the order endpoints open to every signed-in role.
// Expected to be mounted at /api/orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
}

// RegisterEditRoutes registers status, progress and item editing. The caller
// restricts these to counter and kitchen roles.
func (h *OrderHandler) RegisterEditRoutes(r chi.Router) {
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Post("/{id}/items", h.AddItem)
	r.Patch("/items/{item_id}", h.UpdateItem)
	r.Delete("/items/{item_id}", h.RemoveItem)
	r.Patch("/items/{item_id}/progress", h.UpdateProgress)
}

// --- Request / Response types ---

// amountField accepts 6000, "6000", "6,000" and "6000+4000". Parsing and
// range checks happen in the service.
type amountField string

func (a *amountField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("amount must be a number or a string")
	}
	*a = amountField(n.String())
	return nil
}

type createOrderRequest struct {
	Floor                string                   `json:"floor"`
	OrderType            string                   `json:"order_type"`
	Source               string                   `json:"source"`
	IsTakeout            bool                     `json:"is_takeout"`
	TableNumber          *int32                   `json:"table_number"`
	PaymentMethod        string                   `json:"payment_method"`
	ReceivedAmount       amountField              `json:"received_amount"`
	ReceivedCashAmount   amountField              `json:"received_cash_amount"`
	ReceivedTicketAmount amountField              `json:"received_ticket_amount"`
	Note                 string                   `json:"note"`
	Items                []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	MenuItemID int64  `json:"menu_item_id"`
	Qty        int32  `json:"qty"`
	Mode       string `json:"mode"`
}

type orderListResponse struct {
	Results []service.OrderView `json:"results"`
	Count   int                 `json:"count"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type updateItemRequest struct {
	Qty *int32 `json:"qty"`
}

type progressRequest struct {
	PreparedQty *int32 `json:"prepared_qty"`
	Done        *bool  `json:"done"`
}

// --- Handlers ---

// List handles GET /api/orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req := service.ListOrdersRequest{
		Floor:  q.Get("floor"),
		Status: q.Get("status"),
	}
	if s := q.Get("types"); s != "" {
		req.Types = strings.Split(s, ",")
	}
	if s := q.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		req.Limit = &limit
	}

	orders, err := h.svc.ListOrders(r.Context(), req)
	if err != nil {
		writeServiceError(w, "list orders", err)
		return
	}

	writeJSON(w, http.StatusOK, orderListResponse{Results: orders, Count: len(orders)})
}

// Create handles POST /api/orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.OrderType == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "order_type is required"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}

	items := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = service.CreateOrderItemRequest{
			MenuItemID: item.MenuItemID,
			Qty:        item.Qty,
			Mode:       item.Mode,
		}
	}

	order, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		Floor:                req.Floor,
		OrderType:            req.OrderType,
		Source:               req.Source,
		IsTakeout:            req.IsTakeout,
		TableNumber:          req.TableNumber,
		PaymentMethod:        req.PaymentMethod,
		ReceivedAmount:       string(req.ReceivedAmount),
		ReceivedCashAmount:   string(req.ReceivedCashAmount),
		ReceivedTicketAmount: string(req.ReceivedTicketAmount),
		Note:                 req.Note,
		Items:                items,
	})
	if err != nil {
		writeServiceError(w, "create order", err)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// Get handles GET /api/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseID(w, r, "id", "invalid order ID")
	if !ok {
		return
	}

	order, err := h.svc.GetOrder(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, "get order", err)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// UpdateStatus handles PATCH /api/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseID(w, r, "id", "invalid order ID")
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	order, err := h.svc.SetStatus(r.Context(), orderID, req.Status)
	if err != nil {
		writeServiceError(w, "update order status", err)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// AddItem handles POST /api/orders/{id}/items.
func (h *OrderHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseID(w, r, "id", "invalid order ID")
	if !ok {
		return
	}

	var req createOrderItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	order, err := h.svc.AddItem(r.Context(), orderID, service.CreateOrderItemRequest{
		MenuItemID: req.MenuItemID,
		Qty:        req.Qty,
		Mode:       req.Mode,
	})
	if err != nil {
		writeServiceError(w, "add order item", err)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// UpdateItem handles PATCH /api/orders/items/{item_id}.
func (h *OrderHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := parseID(w, r, "item_id", "invalid item ID")
	if !ok {
		return
	}

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Qty == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "qty is required"})
		return
	}

	order, err := h.svc.UpdateItemQty(r.Context(), itemID, *req.Qty)
	if err != nil {
		writeServiceError(w, "update order item", err)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// RemoveItem handles DELETE /api/orders/items/{item_id}.
func (h *OrderHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := parseID(w, r, "item_id", "invalid item ID")
	if !ok {
		return
	}

	order, err := h.svc.RemoveItem(r.Context(), itemID)
	if err != nil {
		writeServiceError(w, "remove order item", err)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// UpdateProgress handles PATCH /api/orders/items/{item_id}/progress.
func (h *OrderHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	itemID, ok := parseID(w, r, "item_id", "invalid item ID")
	if !ok {
		return
	}

	var req progressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	order, err := h.svc.SetItemProgress(r.Context(), itemID, service.ProgressRequest{
		PreparedQty: req.PreparedQty,
		Done:        req.Done,
	})
	if err != nil {
		writeServiceError(w, "update item progress", err)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// --- Helpers ---

func parseID(w http.ResponseWriter, r *http.Request, param, msg string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return 0, false
	}
	return id, true
}

// writeServiceError maps service error kinds to HTTP status codes. Anything
// unclassified is logged and reported as 500.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrState):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrAllocation):
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "could not allocate an order number, please retry"})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
