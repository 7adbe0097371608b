package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/Ayan-Alam-07/VELoop-Backend/internal/infrastructure/database"
	"github.com/joho/godotenv"
)

// Creates the account and referral tables and reports what is there
func main() {
	_ = godotenv.Load()

	dsn := flag.String("dsn", os.Getenv("DATABASE_DSN"), "postgres connection string")
	flag.Parse()
	if *dsn == "" {
		log.Fatal("a DSN is required (-dsn or DATABASE_DSN)")
	}

	db, err := database.Open(*dsn)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get underlying sql.DB: %v", err)
	}
	defer sqlDB.Close()

	if err := database.Ping(db); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	fmt.Println("✓ Database connection successful")

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run auto-migration: %v", err)
	}
	fmt.Println("✓ AutoMigrate completed successfully")

	for _, table := range []string{"accounts", "referral_events"} {
		var count int64
		if err := db.Table(table).Count(&count).Error; err != nil {
			log.Fatalf("Failed to query %s table: %v", table, err)
		}
		fmt.Printf("✓ %s table accessible (current count: %d)\n", table, count)
	}
}
