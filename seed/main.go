package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/densematrix/study_api/config"
	"github.com/densematrix/study_api/model"
	"github.com/densematrix/study_api/seed/seeders"
	"github.com/joho/godotenv"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	var (
		deviceID   = flag.String("device", "", "Device ID to seed")
		tokens     = flag.Int("tokens", 0, "Tokens to grant to the device")
		checkoutID = flag.String("checkout", "", "Checkout ID to mark completed for the device")
		sku        = flag.String("sku", config.DefaultProductSKU, "Product sku for -checkout")
		dbPath     = flag.String("db", "", "Database path (overrides DB_DATABASE env var)")
		history    = flag.Int("history", 0, "Print the device's last N study sessions")
		help       = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	if *help || *deviceID == "" {
		showHelp()
		if *deviceID == "" && !*help {
			os.Exit(2)
		}
		return
	}

	databasePath := *dbPath
	if databasePath == "" {
		cfg, err := config.Load()
		if err != nil {
			log.Fatalf("Invalid configuration: %v", err)
		}
		databasePath = cfg.SqlitePath
	}

	db, err := gorm.Open(sqlite.Open(databasePath+"?_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(model.Models()...); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Printf("Connected to database: %s", databasePath)

	ctx := context.Background()
	seeder := seeders.NewLedgerSeeder(db)

	if *tokens > 0 {
		if _, err := seeder.GrantTokens(ctx, *deviceID, *tokens); err != nil {
			log.Fatalf("Failed to grant tokens: %v", err)
		}
	}

	if *checkoutID != "" {
		if _, err := seeder.CompleteCheckout(ctx, *deviceID, *checkoutID, *sku); err != nil {
			log.Fatalf("Failed to complete checkout: %v", err)
		}
	}

	if *history > 0 {
		if err := seeder.PrintHistory(ctx, *deviceID, *history); err != nil {
			log.Fatalf("Failed to load history: %v", err)
		}
	}

	log.Println("Seeding operation completed successfully!")
}

func showHelp() {
	log.Println(`
Ledger seeding tool for the gamified study API

Usage: go run ./seed -device <id> [flags]

Flags:
  -device string
        Device ID to seed (required)
  -tokens int
        Tokens to grant outside of any checkout
  -checkout string
        Checkout ID to complete, crediting the -sku bundle once
  -sku string
        Product sku for -checkout (default "quiz_5")
  -history int
        Print the device's last N study sessions
  -db string
        Database path (overrides DB_DATABASE environment variable)
  -help
        Show this help message

Examples:
  go run ./seed -device dev-1 -tokens 10
  go run ./seed -device dev-1 -checkout chk_local_1 -sku quiz_20
  go run ./seed -device dev-1 -history 5
`)
}
