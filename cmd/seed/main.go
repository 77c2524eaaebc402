package main

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/userdesk/userdesk/config"
	"github.com/userdesk/userdesk/pkg/helpers"
)

// Seeds a verified operator account for local development so the roster is
// reachable without going through the email verification flow.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	email := "operator@example.com"
	password := "password123"
	name := "Operator"
	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	var id string
	err = db.QueryRow(`
		INSERT INTO accounts (id, name, email, password_hash, registration_time, is_verified)
		VALUES ($1, $2, $3, $4, now(), TRUE)
		ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, is_verified = TRUE
		RETURNING id
	`, uuid.NewString(), name, email, hash).Scan(&id)
	if err != nil {
		log.Fatalf("failed to seed account: %v", err)
	}
	fmt.Printf("seeded account: id=%s email=%s password=%s\n", id, email, password)
}
