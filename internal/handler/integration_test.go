//go:build integration

package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bazaar-kiosk/api/internal/auth"
	"github.com/bazaar-kiosk/api/internal/config"
	"github.com/bazaar-kiosk/api/internal/database"
	"github.com/bazaar-kiosk/api/internal/numbering"
	"github.com/bazaar-kiosk/api/internal/ordering"
	"github.com/bazaar-kiosk/api/internal/router"
	"github.com/bazaar-kiosk/api/internal/service"
	"github.com/bazaar-kiosk/api/internal/ws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var seoul = mustLoadLocation("Asia/Seoul")

// TestIntegrationConcurrentNumbering creates orders in parallel on one floor
// and checks that every strategy hands out 1..N with no duplicates or gaps.
func TestIntegrationConcurrentNumbering(t *testing.T) {
	for _, strategy := range []string{numbering.StrategySequence, numbering.StrategyCounter} {
		t.Run(strategy, func(t *testing.T) {
			ctx := context.Background()
			pool := setupDatabase(t, ctx)
			menuID := insertMenuItem(t, ctx, pool, "Tteokbokki", 3000)

			svc := newIntegrationService(t, pool, strategy)

			const n = 20
			var wg sync.WaitGroup
			nos := make(chan int32, n)
			errs := make(chan error, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					view, err := svc.CreateOrder(ctx, service.CreateOrderRequest{
						Floor:          "F1",
						OrderType:      "TAKEOUT",
						PaymentMethod:  "CASH",
						ReceivedAmount: "3000",
						Items:          []service.CreateOrderItemRequest{{MenuItemID: menuID, Qty: 1}},
					})
					if err != nil {
						errs <- err
						return
					}
					nos <- *view.OrderNo
				}()
			}
			wg.Wait()
			close(nos)
			close(errs)

			for err := range errs {
				t.Errorf("create order: %v", err)
			}

			seen := make(map[int32]bool)
			for no := range nos {
				if seen[no] {
					t.Errorf("duplicate order_no %d", no)
				}
				seen[no] = true
			}
			for no := int32(1); no <= n; no++ {
				if !seen[no] {
					t.Errorf("missing order_no %d", no)
				}
			}
		})
	}
}

// TestIntegrationOrderFlow drives login, creation and kitchen progress
// through the full router.
func TestIntegrationOrderFlow(t *testing.T) {
	ctx := context.Background()
	pool := setupDatabase(t, ctx)

	pricey := insertMenuItem(t, ctx, pool, "Japchae", 5000)
	cheap := insertMenuItem(t, ctx, pool, "Hotteok", 3000)
	if _, err := pool.Exec(ctx, `INSERT INTO tables (number, name) VALUES (5, 'T5')`); err != nil {
		t.Fatalf("insert table: %v", err)
	}

	cfg := &config.Config{
		JWTSecret:          "integration-test-secret",
		Location:           seoul,
		Floors:             []string{"B1", "F1"},
		CORSAllowedOrigins: []string{"http://localhost:5173"},
	}
	pins, err := auth.NewPinBook(map[string]string{"ORDER": "1001", "KITCHEN": "3001"})
	if err != nil {
		t.Fatalf("pin book: %v", err)
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	hub := ws.NewHub()
	go hub.Run(hubCtx)

	svc := newIntegrationService(t, pool, numbering.StrategySequence)
	server := httptest.NewServer(router.New(cfg, database.New(pool), svc, pins, hub))
	defer server.Close()

	orderToken := pinLogin(t, server, "ORDER", "1001")
	kitchenToken := pinLogin(t, server, "KITCHEN", "3001")

	// --- 1. Create an order from the kiosk ---
	body := fmt.Sprintf(`{
		"floor": "B1",
		"order_type": "DINE_IN",
		"table_number": 5,
		"payment_method": "CASH",
		"received_amount": "20,000",
		"items": [
			{"menu_item_id": %d, "qty": 2},
			{"menu_item_id": %d, "qty": 1}
		]
	}`, cheap, pricey)
	var order service.OrderView
	resp := apiRequest(t, server, http.MethodPost, "/api/orders", orderToken, body, &order)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create order: status %d", resp.StatusCode)
	}
	if order.TotalPrice != 11000 {
		t.Errorf("total_price = %d, want 11000", order.TotalPrice)
	}
	if order.ChangeAmount != 9000 {
		t.Errorf("change_amount = %d, want 9000", order.ChangeAmount)
	}
	if order.OrderNo == nil || *order.OrderNo != 1 {
		t.Errorf("order_no = %v, want 1", order.OrderNo)
	}
	if order.Status != "PREPARING" {
		t.Errorf("status = %s, want PREPARING", order.Status)
	}

	// --- 2. Kiosk role cannot mark progress ---
	progressPath := fmt.Sprintf("/api/orders/items/%d/progress", order.Items[0].ID)
	resp = apiRequest(t, server, http.MethodPatch, progressPath, orderToken, `{"done": true}`, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("progress as ORDER: status %d, want 403", resp.StatusCode)
	}

	// --- 3. Kitchen prepares every item ---
	for _, item := range order.Items {
		path := fmt.Sprintf("/api/orders/items/%d/progress", item.ID)
		resp = apiRequest(t, server, http.MethodPatch, path, kitchenToken, `{"done": true}`, &order)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("progress item %d: status %d", item.ID, resp.StatusCode)
		}
	}
	if order.Status != "READY" {
		t.Errorf("status after progress = %s, want READY", order.Status)
	}

	// --- 4. The kitchen board is empty, the sales view is not ---
	var counts struct {
		TotalQty    int64 `json:"total_qty"`
		TotalAmount int64 `json:"total_amount"`
	}
	resp = apiRequest(t, server, http.MethodGet, "/api/stats/menu-counts?floor=B1", kitchenToken, "", &counts)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("menu counts: status %d", resp.StatusCode)
	}
	if counts.TotalQty != 3 || counts.TotalAmount != 11000 {
		t.Errorf("menu counts = %+v, want qty 3 amount 11000", counts)
	}

	// --- 5. The list shows the order for the floor ---
	var list struct {
		Count int `json:"count"`
	}
	resp = apiRequest(t, server, http.MethodGet, "/api/orders?floor=B1&status=READY", orderToken, "", &list)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list orders: status %d", resp.StatusCode)
	}
	if list.Count != 1 {
		t.Errorf("count = %d, want 1", list.Count)
	}
}

// --- Helpers ---

func newIntegrationService(t *testing.T, pool *pgxpool.Pool, strategy string) *service.OrderService {
	t.Helper()
	alloc, err := numbering.New(strategy, func(db database.DBTX) numbering.Store { return database.New(db) }, seoul)
	if err != nil {
		t.Fatalf("numbering: %v", err)
	}
	return service.NewOrderService(pool,
		func(db database.DBTX) service.OrderStore { return database.New(db) },
		alloc,
		service.Options{
			Floors:      []string{"B1", "F1"},
			TablePolicy: ordering.TablePolicy{Mode: ordering.PolicyDineIn, TableFloors: []string{"B1"}},
		})
}

func setupDatabase(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("bazaar_test"),
		tcpostgres.WithUsername("bazaar"),
		tcpostgres.WithPassword("bazaar"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	if err := database.Migrate(connStr, "../../migrations"); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func insertMenuItem(t *testing.T, ctx context.Context, pool *pgxpool.Pool, name string, price int64) int64 {
	t.Helper()
	var id int64
	err := pool.QueryRow(ctx,
		`INSERT INTO menu_items (name, price) VALUES ($1, $2) RETURNING id`,
		name, price,
	).Scan(&id)
	if err != nil {
		t.Fatalf("insert menu item: %v", err)
	}
	return id
}

func pinLogin(t *testing.T, server *httptest.Server, role, pin string) string {
	t.Helper()
	var out struct {
		AccessToken string `json:"access_token"`
	}
	body := fmt.Sprintf(`{"role": %q, "pin": %q}`, role, pin)
	resp := apiRequest(t, server, http.MethodPost, "/auth/pin-login", "", body, &out)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pin login %s: status %d", role, resp.StatusCode)
	}
	return out.AccessToken
}

func apiRequest(t *testing.T, server *httptest.Server, method, path, token, body string, out any) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, server.URL+path, bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp
}

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}
