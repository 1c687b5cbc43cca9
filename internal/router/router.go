package router

import (
	"log"
	"net/http"

	"github.com/bazaar-kiosk/api/internal/config"
	"github.com/bazaar-kiosk/api/internal/database"
	"github.com/bazaar-kiosk/api/internal/enum"
	"github.com/bazaar-kiosk/api/internal/handler"
	mw "github.com/bazaar-kiosk/api/internal/middleware"
	"github.com/bazaar-kiosk/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// EditorRoles may change order status, item progress and items, and manage
// the catalog.
var EditorRoles = []string{
	enum.RoleB1Counter,
	enum.RoleKitchen,
	enum.RoleKitchenHall,
	enum.RoleKitchenTakeout,
}

// New creates a Chi router with all application routes wired up.
// Everything under /api requires a bearer token; mutations past order
// creation also require an editor role.
func New(cfg *config.Config, queries *database.Queries, orders handler.OrderServicer, pins handler.PinVerifier, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	authHandler := handler.NewAuthHandler(pins, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/floors/{floor}/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, cfg.Floors, w, r)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))
		editors := mw.RequireRole(EditorRoles...)

		catalogHandler := handler.NewCatalogHandler(queries)
		r.Route("/menus", func(r chi.Router) {
			catalogHandler.RegisterMenuRoutes(r)
			r.With(editors).Group(catalogHandler.RegisterMenuAdminRoutes)
		})
		r.Route("/tables", func(r chi.Router) {
			catalogHandler.RegisterTableRoutes(r)
			r.With(editors).Group(catalogHandler.RegisterTableAdminRoutes)
		})

		orderHandler := handler.NewOrderHandler(orders)
		r.Route("/orders", func(r chi.Router) {
			orderHandler.RegisterRoutes(r)
			r.With(editors).Group(orderHandler.RegisterEditRoutes)
		})

		statsHandler := handler.NewStatsHandler(queries, cfg.Location)
		r.Route("/kitchen", statsHandler.RegisterKitchenRoutes)
		r.Route("/stats", statsHandler.RegisterStatsRoutes)
	})

	log.Println("Router initialized with all handlers")
	return r
}
