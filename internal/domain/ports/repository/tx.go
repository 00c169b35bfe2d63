package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is the opaque transaction handle passed through repositories. Its
// concrete type is infra-defined (pgx.Tx for Postgres); repositories must
// gracefully accept nil for the non-transactional path.
type Tx interface{}

// TransactionManager runs fn inside a database transaction, rolling back on
// error and committing otherwise. Use cases hold their whole atomic unit of
// work inside one WithTx call so balance read-modify-writes stay atomic with
// respect to concurrent reward grants.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
