package postgres

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// assign copies vals into the scan destinations. A nil value leaves the
// destination untouched.
func assign(dest, vals []any) error {
	if len(dest) != len(vals) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(vals))
	}
	for i := range dest {
		if vals[i] == nil {
			continue
		}
		reflect.ValueOf(dest[i]).Elem().Set(reflect.ValueOf(vals[i]))
	}
	return nil
}

// rowStub implements pgx.Row
type rowStub struct {
	vals []any
	err  error
}

func (r rowStub) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(dest, r.vals)
}

// rowsStub implements the parts of pgx.Rows the repos use.
type rowsStub struct {
	pgx.Rows
	data   [][]any
	idx    int
	err    error
	closed bool
}

func (r *rowsStub) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *rowsStub) Scan(dest ...any) error { return assign(dest, r.data[r.idx-1]) }
func (r *rowsStub) Err() error             { return r.err }
func (r *rowsStub) Close()                 { r.closed = true }

type call struct {
	sql  string
	args []any
}

// execRecorder answers Exec calls and remembers them.
type execRecorder struct {
	mu    sync.Mutex
	calls []call
	// exec decides the outcome of a statement; nil means "1 row affected".
	exec func(sql string) (pgconn.CommandTag, error)
}

func (e *execRecorder) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	e.mu.Lock()
	e.calls = append(e.calls, call{sql: sql, args: args})
	e.mu.Unlock()
	if e.exec != nil {
		return e.exec(sql)
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (e *execRecorder) matching(prefix string) []call {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []call
	for _, c := range e.calls {
		if strings.HasPrefix(strings.TrimSpace(c.sql), prefix) {
			out = append(out, c)
		}
	}
	return out
}

// txStub implements pgx.Tx
type txStub struct {
	pgx.Tx
	execRecorder
	committed  bool
	rolledBack bool
}

func (t *txStub) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.execRecorder.Exec(ctx, sql, args...)
}
func (t *txStub) Commit(context.Context) error   { t.committed = true; return nil }
func (t *txStub) Rollback(context.Context) error { t.rolledBack = true; return nil }

// poolStub implements PgxPool for tests
type poolStub struct {
	execRecorder
	tx      *txStub
	row     rowStub
	rows    *rowsStub
	queries []call
}

func (p *poolStub) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	p.queries = append(p.queries, call{sql: sql, args: args})
	return p.row
}

func (p *poolStub) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	p.queries = append(p.queries, call{sql: sql, args: args})
	if p.rows == nil {
		return &rowsStub{}, nil
	}
	return p.rows, nil
}

func (p *poolStub) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) {
	if p.tx == nil {
		p.tx = &txStub{}
	}
	return p.tx, nil
}
