package postgres

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-storefront/internal/domain"
	"github.com/ariefcatur/go-storefront/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the part of *pgxpool.Pool the store needs.
type DB interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

type Store struct{ DB DB }

var _ store.Store = (*Store)(nil)

// InTx runs fn in a read-committed transaction. Rows are locked with
// FOR UPDATE by the *ForUpdate lookups; counters change through guarded
// UPDATEs, so concurrent writers serialize on the row lock.
func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) (err error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(&Tx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type Tx struct{ tx pgx.Tx }

var _ store.Tx = (*Tx)(nil)

// mapErr turns constraint violations into domain conflicts.
func mapErr(err error, what string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return domain.Conflict("%s already exists", what)
		case "23503":
			return domain.Conflict("%s references a missing or still referenced row", what)
		case "23514":
			return domain.Conflict("%s violates %s", what, pgErr.ConstraintName)
		}
	}
	return err
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NotFound(format, args...)
	}
	return err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func pageArgs(p store.Page) (int, int) {
	p = p.Normalize()
	return p.Limit, p.Offset
}
