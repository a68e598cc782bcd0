// Package database provides database helper functions
package database

import (
	"database/sql"
	"fmt"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// BuildTursoDSN assembles a libsql connection string from a database URL and
// auth token.
func BuildTursoDSN(databaseURL, authToken string) string {
	return fmt.Sprintf("%s?authToken=%s", databaseURL, authToken)
}

// TestTursoConnection tests the Turso database connection
func TestTursoConnection(databaseURL, authToken string) error {
	db, err := sql.Open("libsql", BuildTursoDSN(databaseURL, authToken))
	if err != nil {
		return fmt.Errorf("failed to open connection: %w", err)
	}
	defer db.Close()

	var result int
	err = db.QueryRow("SELECT 1").Scan(&result)
	if err != nil {
		return fmt.Errorf("connection test query failed: %w", err)
	}

	if result != 1 {
		return fmt.Errorf("unexpected query result: %d", result)
	}

	return nil
}
