package store

import (
	"context"
	"database/sql"
	"errors"
	"sync"
)

// Tx is one metadata transaction. Every write made through it commits or
// rolls back as a unit. Compensations registered with OnRollback run after
// a rollback, so side effects outside the database (written blobs) can be
// undone when the caller abandons the boundary.
type Tx struct {
	tx *sql.Tx

	mu         sync.Mutex
	done       bool
	onRollback []func()
}

// Begin starts a transaction. The caller must Commit or Rollback.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx}, nil
}

// WithTx runs fn inside a transaction, committing when fn returns nil and
// rolling back on error or panic.
func (s *Store) WithTx(ctx context.Context, fn func(*Tx) error) (err error) {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// OnRollback registers fn to run if the transaction is rolled back, or if
// its commit fails. Registrations after completion are ignored.
func (t *Tx) OnRollback(fn func()) {
	if t == nil || fn == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.onRollback = append(t.onRollback, fn)
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	hooks, ok := t.finish()
	if !ok {
		return sql.ErrTxDone
	}
	if err := t.tx.Commit(); err != nil {
		runHooks(hooks)
		return err
	}
	return nil
}

// Rollback aborts the transaction and runs compensations. Rolling back a
// finished transaction is a no-op.
func (t *Tx) Rollback() error {
	hooks, ok := t.finish()
	if !ok {
		return nil
	}
	err := t.tx.Rollback()
	runHooks(hooks)
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

func (t *Tx) finish() ([]func(), bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil, false
	}
	t.done = true
	hooks := t.onRollback
	t.onRollback = nil
	return hooks, true
}

// runHooks runs compensations newest first.
func runHooks(hooks []func()) {
	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}
}
