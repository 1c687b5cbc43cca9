package handler

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/bazaar-kiosk/api/internal/database"
	"github.com/bazaar-kiosk/api/internal/enum"
	"github.com/bazaar-kiosk/api/internal/ordering"
	"github.com/go-chi/chi/v5"
)

// StatsStore defines the database methods needed by the aggregation handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type StatsStore interface {
	ListPendingByMenuItem(ctx context.Context, arg database.MenuStatsParams) ([]database.ListPendingByMenuItemRow, error)
	ListSoldByMenuItem(ctx context.Context, arg database.MenuStatsParams) ([]database.ListSoldByMenuItemRow, error)
}

// StatsHandler serves per-menu-item aggregates for one floor and one local day.
type StatsHandler struct {
	store StatsStore
	loc   *time.Location
	now   func() time.Time
}

// NewStatsHandler creates a new StatsHandler. Days are cut in loc.
func NewStatsHandler(store StatsStore, loc *time.Location) *StatsHandler {
	return &StatsHandler{store: store, loc: loc, now: time.Now}
}

// RegisterKitchenRoutes registers the kitchen board aggregate.
// Expected to be mounted at /api/kitchen.
func (h *StatsHandler) RegisterKitchenRoutes(r chi.Router) {
	r.Get("/menu-summary", h.MenuSummary)
}

// RegisterStatsRoutes registers the sales aggregate.
// Expected to be mounted at /api/stats.
func (h *StatsHandler) RegisterStatsRoutes(r chi.Router) {
	r.Get("/menu-counts", h.MenuCounts)
}

// --- Response types ---

type menuSummaryResponse struct {
	Floor   string                              `json:"floor"`
	Date    string                              `json:"date"`
	Results []database.ListPendingByMenuItemRow `json:"results"`
}

type menuCountsResponse struct {
	Floor       string                           `json:"floor"`
	Date        string                           `json:"date"`
	TotalQty    int64                            `json:"total_qty"`
	TotalAmount int64                            `json:"total_amount"`
	Results     []database.ListSoldByMenuItemRow `json:"results"`
}

// --- Handlers ---

// MenuSummary handles GET /api/kitchen/menu-summary?floor=&date=. It lists
// the quantity still to be prepared per menu item, largest first.
func (h *StatsHandler) MenuSummary(w http.ResponseWriter, r *http.Request) {
	params, ok := h.statsParams(w, r)
	if !ok {
		return
	}

	rows, err := h.store.ListPendingByMenuItem(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list pending by menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, menuSummaryResponse{
		Floor:   params.Floor,
		Date:    params.Since.Format(time.DateOnly),
		Results: rows,
	})
}

// MenuCounts handles GET /api/stats/menu-counts?floor=&date=. It lists sold
// quantity and amount per menu item across preparing and ready orders.
func (h *StatsHandler) MenuCounts(w http.ResponseWriter, r *http.Request) {
	params, ok := h.statsParams(w, r)
	if !ok {
		return
	}

	rows, err := h.store.ListSoldByMenuItem(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list sold by menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := menuCountsResponse{
		Floor:   params.Floor,
		Date:    params.Since.Format(time.DateOnly),
		Results: rows,
	}
	for _, row := range rows {
		resp.TotalQty += row.Qty
		resp.TotalAmount += row.Amount
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

// statsParams reads floor (default B1) and an optional date (default today
// in the configured location).
func (h *StatsHandler) statsParams(w http.ResponseWriter, r *http.Request) (database.MenuStatsParams, bool) {
	floor := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("floor")))
	if floor == "" {
		floor = enum.FloorB1
	}
	if !enum.IsFloor(floor) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid floor"})
		return database.MenuStatsParams{}, false
	}

	day := h.now()
	if s := r.URL.Query().Get("date"); s != "" {
		t, err := time.ParseInLocation(time.DateOnly, s, h.loc)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date format, use YYYY-MM-DD"})
			return database.MenuStatsParams{}, false
		}
		day = t
	}

	since, until := ordering.DayBounds(day, h.loc)
	return database.MenuStatsParams{Floor: floor, Since: since, Until: until}, true
}
