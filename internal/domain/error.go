package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid transaction execution context")

	// Ledger / tier errors
	ErrTierNotConfigured    = errors.New("tier has no configuration")
	ErrRankNotHigher        = errors.New("target rank must exceed current rank")
	ErrInsufficientBalance  = errors.New("insufficient points balance")
	ErrInsufficientFrozen   = errors.New("insufficient frozen points")
	ErrAmountMismatch       = errors.New("paid amount does not match order amount")
	ErrOrderTerminal        = errors.New("order is in a terminal state")
	ErrOrderExpired         = errors.New("order has expired")
	ErrLockUnavailable      = errors.New("could not acquire lock")
	ErrGatewayUnavailable   = errors.New("payment gateway unreachable")
	ErrGatewayRejected      = errors.New("payment gateway rejected request")
	ErrCallbackVerification = errors.New("callback signature verification failed")
)
