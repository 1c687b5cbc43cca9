package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bazaar-kiosk/api/internal/database"
	"github.com/bazaar-kiosk/api/internal/enum"
	"github.com/bazaar-kiosk/api/internal/ordering"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// CatalogStore defines the database methods needed by menu and table handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CatalogStore interface {
	ListMenuItemsByChannel(ctx context.Context, channel string) ([]database.MenuItem, error)
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id int64) error
	ListActiveTables(ctx context.Context) ([]database.Table, error)
	CreateTable(ctx context.Context, arg database.CreateTableParams) (database.Table, error)
	DeleteTable(ctx context.Context, id int64) error
}

// CatalogHandler handles menu and table lookups plus their admin endpoints.
type CatalogHandler struct {
	store CatalogStore
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(store CatalogStore) *CatalogHandler {
	return &CatalogHandler{store: store}
}

// RegisterMenuRoutes registers the read-only menu lookup.
// Expected to be mounted at /api/menus.
func (h *CatalogHandler) RegisterMenuRoutes(r chi.Router) {
	r.Get("/", h.ListMenus)
}

// RegisterMenuAdminRoutes registers menu create and delete.
func (h *CatalogHandler) RegisterMenuAdminRoutes(r chi.Router) {
	r.Post("/", h.CreateMenu)
	r.Delete("/{id}", h.DeleteMenu)
}

// RegisterTableRoutes registers the read-only table lookup.
// Expected to be mounted at /api/tables.
func (h *CatalogHandler) RegisterTableRoutes(r chi.Router) {
	r.Get("/", h.ListTables)
}

// RegisterTableAdminRoutes registers table create and delete.
func (h *CatalogHandler) RegisterTableAdminRoutes(r chi.Router) {
	r.Post("/", h.CreateTable)
	r.Delete("/{id}", h.DeleteTable)
}

// Column widths of menu_items and tables, in characters.
const (
	maxMenuNameLength  = 100
	maxSkuLength       = 50
	maxTableNameLength = 50
)

// --- Request / Response types ---

type createMenuRequest struct {
	Name           string      `json:"name"`
	Price          amountField `json:"price"`
	IsActive       *bool       `json:"is_active"`
	VisibleCounter *bool       `json:"visible_counter"`
	VisibleBooth   *bool       `json:"visible_booth"`
	VisibleKitchen *bool       `json:"visible_kitchen"`
	Sku            string      `json:"sku"`
	SortIndex      int32       `json:"sort_index"`
}

type menuResponse struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Price          int64     `json:"price"`
	IsActive       bool      `json:"is_active"`
	VisibleCounter bool      `json:"visible_counter"`
	VisibleBooth   bool      `json:"visible_booth"`
	VisibleKitchen bool      `json:"visible_kitchen"`
	Sku            *string   `json:"sku"`
	SortIndex      int32     `json:"sort_index"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toMenuResponse(m database.MenuItem) menuResponse {
	resp := menuResponse{
		ID:             m.ID,
		Name:           m.Name,
		Price:          m.Price,
		IsActive:       m.IsActive,
		VisibleCounter: m.VisibleCounter,
		VisibleBooth:   m.VisibleBooth,
		VisibleKitchen: m.VisibleKitchen,
		SortIndex:      m.SortIndex,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.Sku.Valid {
		resp.Sku = &m.Sku.String
	}
	return resp
}

type createTableRequest struct {
	Number    int32  `json:"number"`
	Name      string `json:"name"`
	IsActive  *bool  `json:"is_active"`
	SortIndex int32  `json:"sort_index"`
}

// --- Handlers ---

// ListMenus handles GET /api/menus?scope=. The scope picks which visibility
// flag applies: KITCHEN or B1 for the kitchen, BOOTH for the booth, anything
// else for the counter.
func (h *CatalogHandler) ListMenus(w http.ResponseWriter, r *http.Request) {
	channel := enum.ChannelForScope(r.URL.Query().Get("scope"))

	items, err := h.store.ListMenuItemsByChannel(r.Context(), channel)
	if err != nil {
		log.Printf("ERROR: list menu items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]menuResponse, len(items))
	for i, m := range items {
		resp[i] = toMenuResponse(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateMenu handles POST /api/menus.
func (h *CatalogHandler) CreateMenu(w http.ResponseWriter, r *http.Request) {
	var req createMenuRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if utf8.RuneCountInString(name) > maxMenuNameLength {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name must be at most 100 characters"})
		return
	}
	if utf8.RuneCountInString(strings.TrimSpace(req.Sku)) > maxSkuLength {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "sku must be at most 50 characters"})
		return
	}
	if req.Price == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price is required"})
		return
	}
	price, err := ordering.ParseAmount(string(req.Price))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price: " + err.Error()})
		return
	}

	sku := pgtype.Text{}
	if s := strings.TrimSpace(req.Sku); s != "" {
		sku = pgtype.Text{String: s, Valid: true}
	}

	item, err := h.store.CreateMenuItem(r.Context(), database.CreateMenuItemParams{
		Name:           name,
		Price:          price,
		IsActive:       boolOr(req.IsActive, true),
		VisibleCounter: boolOr(req.VisibleCounter, true),
		VisibleBooth:   boolOr(req.VisibleBooth, false),
		VisibleKitchen: boolOr(req.VisibleKitchen, true),
		Sku:            sku,
		SortIndex:      req.SortIndex,
	})
	if err != nil {
		log.Printf("ERROR: create menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toMenuResponse(item))
}

// DeleteMenu handles DELETE /api/menus/{id}. Menu items that orders refer to
// cannot be deleted.
func (h *CatalogHandler) DeleteMenu(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "invalid menu item ID")
	if !ok {
		return
	}

	if err := h.store.DeleteMenuItem(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
		case isForeignKeyViolation(err):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "menu item is referenced by orders; deactivate it instead"})
		default:
			log.Printf("ERROR: delete menu item: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListTables handles GET /api/tables.
func (h *CatalogHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.store.ListActiveTables(r.Context())
	if err != nil {
		log.Printf("ERROR: list tables: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, tables)
}

// CreateTable handles POST /api/tables.
func (h *CatalogHandler) CreateTable(w http.ResponseWriter, r *http.Request) {
	var req createTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Number <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "number must be > 0"})
		return
	}
	name := strings.TrimSpace(req.Name)
	if utf8.RuneCountInString(name) > maxTableNameLength {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name must be at most 50 characters"})
		return
	}

	table, err := h.store.CreateTable(r.Context(), database.CreateTableParams{
		Number:    req.Number,
		Name:      name,
		IsActive:  boolOr(req.IsActive, true),
		SortIndex: req.SortIndex,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "table number already exists"})
			return
		}
		log.Printf("ERROR: create table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, table)
}

// DeleteTable handles DELETE /api/tables/{id}.
func (h *CatalogHandler) DeleteTable(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "invalid table ID")
	if !ok {
		return
	}

	if err := h.store.DeleteTable(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
		case isForeignKeyViolation(err):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "table is referenced by orders; deactivate it instead"})
		default:
			log.Printf("ERROR: delete table: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
