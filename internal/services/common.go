package services

import (
	"errors"

	"fixpoint_backend/internal/repositories"
)

// ErrValidation is the base error for rejected input. Services wrap it with
// the precondition that failed so handlers can surface a specific message.
var ErrValidation = errors.New("validation error")

// TxRunner executes a function inside a single database transaction.
// Implemented by database.TxManager.
type TxRunner interface {
	WithinTx(fn func(tx repositories.SQLExecutor) error) error
}
