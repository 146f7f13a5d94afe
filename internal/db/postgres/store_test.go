package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kailas-cloud/analogist/internal/db"
)

// --- fakes ---

type execCall struct {
	sql  string
	args []any
}

type fakeRow struct {
	value []byte
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*[]byte)) = r.value
	return nil
}

type fakePool struct {
	execs   []execCall
	execTag string
	execErr error
	row     fakeRow
	pingErr error
	pings   int
	closed  bool
}

func (p *fakePool) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	p.execs = append(p.execs, execCall{sql: sql, args: args})
	if p.execErr != nil {
		return pgconn.CommandTag{}, p.execErr
	}
	return pgconn.NewCommandTag(p.execTag), nil
}

func (p *fakePool) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	return p.row
}

func (p *fakePool) Ping(_ context.Context) error {
	p.pings++
	return p.pingErr
}

func (p *fakePool) Close() { p.closed = true }

// --- tests ---

func TestNewStore_RequiresDSN(t *testing.T) {
	if _, err := NewStore(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for empty dsn")
	}
}

func TestGet_Success(t *testing.T) {
	s := &Store{pool: &fakePool{row: fakeRow{value: []byte("v")}}}
	got, err := s.Get(context.Background(), "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("got %q, want %q", got, "v")
	}
}

func TestGet_NotFound(t *testing.T) {
	s := &Store{pool: &fakePool{row: fakeRow{err: pgx.ErrNoRows}}}
	if _, err := s.Get(context.Background(), "k"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestGet_Error(t *testing.T) {
	s := &Store{pool: &fakePool{row: fakeRow{err: errors.New("conn reset")}}}
	_, err := s.Get(context.Background(), "k")
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpGet {
		t.Fatalf("expected db.Error{Op: GET}, got %v", err)
	}
}

func TestSet_Upserts(t *testing.T) {
	p := &fakePool{execTag: "INSERT 0 1"}
	s := &Store{pool: p}
	if err := s.Set(context.Background(), "k", []byte("v")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.execs) != 1 || !strings.Contains(p.execs[0].sql, "ON CONFLICT (key) DO UPDATE") {
		t.Errorf("unexpected exec: %+v", p.execs)
	}
}

func TestCompareAndSwap_ExpectAbsentInserts(t *testing.T) {
	p := &fakePool{execTag: "INSERT 0 1"}
	s := &Store{pool: p}
	ok, err := s.CompareAndSwap(context.Background(), "k", nil, []byte("new"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected swap")
	}
	if !strings.Contains(p.execs[0].sql, "DO NOTHING") {
		t.Errorf("expected insert-if-absent, got %s", p.execs[0].sql)
	}
}

func TestCompareAndSwap_UpdateIfEqual(t *testing.T) {
	p := &fakePool{execTag: "UPDATE 1"}
	s := &Store{pool: p}
	ok, err := s.CompareAndSwap(context.Background(), "k", []byte("old"), []byte("new"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected swap")
	}
	call := p.execs[0]
	if !strings.HasPrefix(call.sql, "UPDATE") || len(call.args) != 3 {
		t.Errorf("unexpected exec: %+v", call)
	}
}

func TestCompareAndSwap_Conflict(t *testing.T) {
	s := &Store{pool: &fakePool{execTag: "UPDATE 0"}}
	ok, err := s.CompareAndSwap(context.Background(), "k", []byte("old"), []byte("new"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected conflict")
	}
}

func TestCompareAndSwap_Error(t *testing.T) {
	s := &Store{pool: &fakePool{execErr: errors.New("deadlock")}}
	_, err := s.CompareAndSwap(context.Background(), "k", nil, []byte("new"))
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpCAS {
		t.Fatalf("expected db.Error{Op: CAS}, got %v", err)
	}
}

func TestMigrate(t *testing.T) {
	p := &fakePool{execTag: "CREATE TABLE"}
	s := &Store{pool: p}
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(p.execs[0].sql, "CREATE TABLE IF NOT EXISTS analogist_kv") {
		t.Errorf("unexpected schema sql: %s", p.execs[0].sql)
	}
}

func TestPingAndClose(t *testing.T) {
	p := &fakePool{pingErr: errors.New("down")}
	s := &Store{pool: p}
	if err := s.Ping(context.Background()); err == nil {
		t.Error("expected ping error")
	}
	s.Close()
	if !p.closed {
		t.Error("expected pool to be closed")
	}
}

func TestWaitForReady_FirstPingImmediate(t *testing.T) {
	p := &fakePool{}
	s := &Store{pool: p}
	if err := s.WaitForReady(context.Background(), time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.pings != 1 {
		t.Errorf("pings = %d, want 1", p.pings)
	}
}

func TestWaitForReady_ReportsLastError(t *testing.T) {
	refused := errors.New("connection refused")
	p := &fakePool{pingErr: refused}
	s := &Store{pool: p}

	err := s.WaitForReady(context.Background(), 250*time.Millisecond)
	if !errors.Is(err, refused) {
		t.Errorf("expected last ping error in chain, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline in chain, got %v", err)
	}
	if p.pings < 2 {
		t.Errorf("pings = %d, want retries", p.pings)
	}
}
