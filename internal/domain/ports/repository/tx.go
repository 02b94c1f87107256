package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager executes fn inside a database transaction and passes the
// transaction handle through tx.
//
// Repositories accept that handle and run their statements on it; they also
// accept NoTX (nil) and then use the pool directly. Every multi-step money
// movement (debit + history, order + stock, payment transition + credit) runs
// inside a single WithTx call so that any failing step rolls back the others.
//
// The concrete type of tx is infra-defined (pgx.Tx for Postgres).
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
