package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager executes fn within a storage transaction, handing the
// backend-specific handle to fn as tx. Repositories accept that handle on every
// call and fall back to a non-transactional executor when it is nil.
//
// If fn returns an error every write made through tx is undone; otherwise the
// writes become visible together.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
