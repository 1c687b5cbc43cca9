package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/bazaar-kiosk/api/internal/config"
	"github.com/bazaar-kiosk/api/internal/ordering"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type starterItem struct {
	name           string
	price          int64
	visibleBooth   bool
	visibleKitchen bool
}

var starterMenu = []starterItem{
	{name: "Tteokbokki", price: 5000, visibleKitchen: true},
	{name: "Sundae", price: 6000, visibleKitchen: true},
	{name: "Gimbap", price: 4000, visibleBooth: true, visibleKitchen: true},
	{name: "Odeng", price: 3000, visibleKitchen: true},
	{name: "Hotteok", price: 2000, visibleBooth: true},
	{name: "Sikhye", price: 2000, visibleBooth: true},
}

func main() {
	// CLI flags
	tableCount := flag.Int("tables", 12, "Number of dine-in tables to create (1..N)")
	withMenu := flag.Bool("menu", true, "Create the starter menu when no menu items exist")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	// Seed in a transaction: tables and menu land together or not at all
	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	created, err := seedTables(ctx, tx, 1, int32(*tableCount), "T")
	if err != nil {
		log.Fatalf("Failed to seed tables: %v", err)
	}
	log.Printf("Dine-in tables: %d created", created)

	if cfg.TablePolicy.Mode == ordering.PolicyTakeoutPickup {
		created, err := seedTables(ctx, tx, cfg.TablePolicy.PickupMin, cfg.TablePolicy.PickupMax, "P")
		if err != nil {
			log.Fatalf("Failed to seed pickup numbers: %v", err)
		}
		log.Printf("Pickup numbers %d-%d: %d created", cfg.TablePolicy.PickupMin, cfg.TablePolicy.PickupMax, created)
	}

	if *withMenu {
		if err := seedMenu(ctx, tx); err != nil {
			log.Fatalf("Failed to seed menu: %v", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}

	log.Println("Seed completed successfully")
}

// seedTables creates tables numbered from..to that do not exist yet and
// returns how many were created.
func seedTables(ctx context.Context, tx pgx.Tx, from, to int32, prefix string) (int, error) {
	insertSQL := `
		INSERT INTO tables (number, name, sort_index)
		VALUES ($1, $2, $1)
		ON CONFLICT (number) DO NOTHING
	`
	created := 0
	for n := from; n <= to; n++ {
		tag, err := tx.Exec(ctx, insertSQL, n, fmt.Sprintf("%s%d", prefix, n))
		if err != nil {
			return created, fmt.Errorf("insert table %d: %w", n, err)
		}
		created += int(tag.RowsAffected())
	}
	return created, nil
}

// seedMenu creates the starter menu unless menu items already exist.
func seedMenu(ctx context.Context, tx pgx.Tx) error {
	var count int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM menu_items`).Scan(&count); err != nil {
		return fmt.Errorf("count menu items: %w", err)
	}
	if count > 0 {
		log.Printf("Menu already has %d items, skipping", count)
		return nil
	}

	insertSQL := `
		INSERT INTO menu_items (name, price, visible_counter, visible_booth, visible_kitchen, sort_index)
		VALUES ($1, $2, true, $3, $4, $5)
		RETURNING id
	`
	for i, item := range starterMenu {
		var id int64
		err := tx.QueryRow(ctx, insertSQL, item.name, item.price, item.visibleBooth, item.visibleKitchen, i).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert menu item %q: %w", item.name, err)
		}
		log.Printf("Created menu item '%s' (ID: %d)", item.name, id)
	}
	return nil
}
