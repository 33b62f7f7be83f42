package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = "postgres://localhost:5432/spaces?sslmode=disable"
	}

	fmt.Printf("Connecting to: %s\n", dbURL)

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	fmt.Println("Database connection successful!")

	fmt.Println("\n=== Checking tables ===")
	tables, err := db.Query(`
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		ORDER BY table_name
	`)
	if err != nil {
		log.Fatal("Failed to query tables:", err)
	}
	defer tables.Close()

	for tables.Next() {
		var tableName string
		tables.Scan(&tableName)
		fmt.Printf("Table: %s\n", tableName)
	}

	for _, table := range []string{"spaces", "space_versions"} {
		fmt.Printf("\n=== %s table schema ===\n", table)
		columns, err := db.Query(`
			SELECT column_name, data_type
			FROM information_schema.columns
			WHERE table_name = $1
			ORDER BY ordinal_position
		`, table)
		if err != nil {
			log.Printf("Failed to query %s schema: %v\n", table, err)
			continue
		}
		for columns.Next() {
			var colName, dataType string
			columns.Scan(&colName, &dataType)
			fmt.Printf("Column: %s (%s)\n", colName, dataType)
		}
		columns.Close()
	}

	fmt.Println("\n=== Counts ===")
	var spaceCount, versionCount int
	db.QueryRow("SELECT COUNT(*) FROM spaces").Scan(&spaceCount)
	db.QueryRow("SELECT COUNT(*) FROM space_versions").Scan(&versionCount)
	fmt.Printf("Spaces: %d\nVersions: %d\n", spaceCount, versionCount)

	fmt.Println("\nDatabase debug complete!")
}
