package store

import (
	"context"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type MockPgPool struct {
	QueryFunc    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
	ExecFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (m *MockPgPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, sql, args...)
	}
	return &MockPgRows{}, nil
}

func (m *MockPgPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.QueryRowFunc != nil {
		return m.QueryRowFunc(ctx, sql, args...)
	}
	return &MockPgRow{Err: pgx.ErrNoRows}
}

func (m *MockPgPool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if m.ExecFunc != nil {
		return m.ExecFunc(ctx, sql, args...)
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

// MockPgRow scans Values positionally into the destinations.
type MockPgRow struct {
	Values []any
	Err    error
}

func (r *MockPgRow) Scan(dest ...any) error {
	if r.Err != nil {
		return r.Err
	}
	return scanValues(r.Values, dest)
}

type MockPgRows struct {
	Data [][]any
	curr int
}

func (r *MockPgRows) Close()                                       {}
func (r *MockPgRows) Err() error                                   { return nil }
func (r *MockPgRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *MockPgRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *MockPgRows) Values() ([]any, error)                       { return nil, nil }
func (r *MockPgRows) RawValues() [][]byte                          { return nil }
func (r *MockPgRows) Conn() *pgx.Conn                              { return nil }

func (r *MockPgRows) Next() bool {
	r.curr++
	return r.curr <= len(r.Data)
}

func (r *MockPgRows) Scan(dest ...any) error {
	return scanValues(r.Data[r.curr-1], dest)
}

// scanValues assigns values to pointer destinations. A nil value leaves a
// pointer-to-pointer destination nil.
func scanValues(values []any, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("scan: %d values for %d destinations", len(values), len(dest))
	}
	for i, val := range values {
		d := reflect.ValueOf(dest[i]).Elem()
		if val == nil {
			d.Set(reflect.Zero(d.Type()))
			continue
		}
		if s, ok := dest[i].(interface{ Scan(any) error }); ok {
			if err := s.Scan(val); err != nil {
				return err
			}
			continue
		}
		v := reflect.ValueOf(val)
		if d.Kind() == reflect.Pointer && v.Type() != d.Type() {
			p := reflect.New(d.Type().Elem())
			p.Elem().Set(v.Convert(d.Type().Elem()))
			d.Set(p)
			continue
		}
		d.Set(v.Convert(d.Type()))
	}
	return nil
}
