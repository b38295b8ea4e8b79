package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ErrDuplicate is returned when a unique constraint is violated
var ErrDuplicate = errors.New("duplicate record")

// uniqueViolation is the PostgreSQL error code for unique_violation
const uniqueViolation = "23505"

// BaseRepository holds the pool shared by the concrete repositories
type BaseRepository struct {
	db *sqlx.DB
}

// NewBaseRepository creates a new BaseRepository
func NewBaseRepository(db *sqlx.DB) *BaseRepository {
	return &BaseRepository{
		db: db,
	}
}

// Transaction runs fn inside a transaction. fn's error, or a panic, rolls it
// back; a failed rollback is reported alongside fn's error.
func (r *BaseRepository) Transaction(ctx context.Context, opts *sql.TxOptions, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetDB returns the database connection
func (r *BaseRepository) GetDB() *sqlx.DB {
	return r.db
}

// translate maps driver errors onto repository errors
func translate(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return ErrDuplicate
	}
	return err
}
