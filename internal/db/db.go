// internal/db/db.go
package db

import (
	"database/sql"
	"log"

	_ "github.com/lib/pq"
)

// Open connects to Postgres and verifies the connection. The handle is
// returned to the caller and injected into each repository; there is no
// package-level singleton.
func Open(dsn string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err = conn.Ping(); err != nil {
		return nil, err
	}
	log.Println("✅ Connected to database")
	return conn, nil
}
