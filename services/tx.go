// services/tx.go
package services

import (
	"fmt"
	"strings"

	"challenge-platform/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxTxRetries = 3

// lockForUpdate adds a row-level lock on Postgres. SQLite (used by the test
// harness) serializes writers itself and rejects FOR UPDATE syntax.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// isRetryableTxError reports whether the error is a transient conflict worth
// retrying (deadlock, serialization failure, sqlite write contention).
func isRetryableTxError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "could not serialize") ||
		strings.Contains(msg, "40001") ||
		strings.Contains(msg, "40p01") ||
		strings.Contains(msg, "database is locked")
}

// transactionWithRetry runs fn in a transaction, retrying a bounded number of
// times on transient conflicts before surfacing ErrConcurrencyConflict.
func transactionWithRetry(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err = db.Transaction(fn)
		if err == nil || !isRetryableTxError(err) {
			return err
		}
	}
	return fmt.Errorf("%w after %d attempts: %v", models.ErrConcurrencyConflict, maxTxRetries, err)
}
