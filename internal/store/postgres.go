package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// OpenPostgres connects to PostgreSQL at dsn and runs schema migrations.
func OpenPostgres(dsn string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return newSQLStore(db, dialect{
		name:              "postgres",
		numbered:          true,
		isUniqueViolation: isPostgresUniqueViolation,
	})
}

func isPostgresUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
