package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// Seeds the first ADMIN role grant. Run once after migrations:
//
//	go run scripts/seed_admin.go <wallet-address>
func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run scripts/seed_admin.go <wallet-address>")
	}
	wallet := os.Args[1]

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Build connection string
	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		dbHost, dbPort, dbUser, dbPassword, dbName)

	// Connect to database
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	log.Println("Connected to database successfully")

	// Refuse to seed twice; later grants go through the admin API
	var admins int
	if err := db.QueryRow(`SELECT COUNT(*) FROM role_grants WHERE role = 'ADMIN'`).Scan(&admins); err != nil {
		log.Fatalf("Failed to count existing admins: %v", err)
	}
	if admins > 0 {
		log.Fatalf("An ADMIN grant already exists (%d). Use the admin API to manage roles.", admins)
	}

	_, err = db.Exec(
		`INSERT INTO role_grants (wallet, role, granted_by, created_at) VALUES ($1, 'ADMIN', 'seed', NOW())`,
		wallet,
	)
	if err != nil {
		log.Fatalf("Failed to insert admin grant: %v", err)
	}

	log.Printf("✅ ADMIN granted to %s", wallet)
}
