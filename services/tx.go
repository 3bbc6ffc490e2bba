package services

import (
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Postgres error codes we translate into sentinel errors
const (
	pgLockNotAvailable = "55P03"
	pgUniqueViolation  = "23505"
)

// lockForUpdate adds a row lock to the query on dialects that support it.
// The sqlite driver used in tests runs single-writer and has no FOR UPDATE.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// setLockTimeout bounds how long the transaction waits for row locks so a
// contended activation fails fast instead of queueing.
func setLockTimeout(tx *gorm.DB, timeout string) {
	if tx.Dialector.Name() != "postgres" {
		return
	}
	tx.Exec("SET LOCAL lock_timeout = ?", timeout)
}

// isUniqueViolation reports whether err is a unique constraint violation
func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return string(pqErr.Code) == pgUniqueViolation
	}
	// sqlite in tests
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isLockTimeout reports whether err is a lock acquisition timeout
func isLockTimeout(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return string(pqErr.Code) == pgLockNotAvailable
	}
	return err != nil && strings.Contains(err.Error(), "database is locked")
}
