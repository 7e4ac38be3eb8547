package db

import (
	"context"
	"errors"
	"spendsage-server/src/access"
	"spendsage-server/src/store"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store runs each unit of work in its own PostgreSQL transaction.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) View(ctx context.Context, fn func(store.Repository) error) error {
	return s.run(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly}, fn)
}

func (s *Store) Update(ctx context.Context, fn func(store.Repository) error) error {
	return s.run(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

func (s *Store) run(ctx context.Context, opts pgx.TxOptions, fn func(store.Repository) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, opts, func(tx pgx.Tx) error {
		return fn(&Repo{q: tx})
	})
}

func (s *Store) Close() {
	s.pool.Close()
}

// Repo implements store.Repository on top of a single transaction.
type Repo struct {
	q querier
}

var _ store.Repository = (*Repo)(nil)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"

	emailIndex = "users_email_lower_idx"
)

// forUpdate is the row-lock suffix for f, naming tables when the select
// joins others.
func forUpdate(f access.Filter, tables ...string) string {
	if !f.ForUpdate {
		return ""
	}
	if len(tables) == 0 {
		return " FOR UPDATE"
	}
	return " FOR UPDATE OF " + strings.Join(tables, ", ")
}

// mapErr translates driver errors into the store sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			if pgErr.ConstraintName == emailIndex {
				return store.ErrEmailTaken
			}
			return store.ErrConflict
		case codeForeignKeyViolation:
			return store.ErrInvalidReference
		case codeCheckViolation:
			return store.ErrCheckViolation
		}
	}
	return err
}

// expectOne reports ErrNotFound when a scoped write matched no row.
func expectOne(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
