package repo

import (
	"context"
	"database/sql"
)

// TxRunner runs a function inside a database transaction, rolling back on
// error. Lifecycle transitions use it to keep the status update and its
// side effects one atomic unit.
type TxRunner struct {
	DB *sql.DB
}

func (r TxRunner) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
