package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"stylegen/internal/domain"
	"stylegen/internal/sqlinline"
)

type execCall struct {
	query string
	args  []any
}

type stubExecutor struct {
	execs []execCall
	rows  [][]any
	err   error
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.execs = append(s.execs, execCall{query: query, args: args})
	return pgconn.NewCommandTag("INSERT 0 0"), s.err
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return nil
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &stubRows{rows: s.rows, idx: -1}, nil
}

type stubRows struct {
	rows [][]any
	idx  int
}

func (r *stubRows) Close()                                       {}
func (r *stubRows) Err() error                                   { return nil }
func (r *stubRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *stubRows) Values() ([]any, error)                       { return r.rows[r.idx], nil }
func (r *stubRows) RawValues() [][]byte                          { return nil }
func (r *stubRows) Conn() *pgx.Conn                              { return nil }

func (r *stubRows) Next() bool {
	r.idx++
	return r.idx < len(r.rows)
}

func (r *stubRows) Scan(dest ...any) error {
	row := r.rows[r.idx]
	if len(dest) != len(row) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		switch ptr := d.(type) {
		case *string:
			*ptr = row[i].(string)
		case *time.Time:
			*ptr = row[i].(time.Time)
		default:
			return errors.New("unsupported dest")
		}
	}
	return nil
}

func TestPostgresSaveBatchArgs(t *testing.T) {
	exec := &stubExecutor{}
	s := NewPostgresBatchStore(exec)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	batch := domain.StyleBatch{
		BatchID:   "0190f2c4-0000-7000-8000-000000000001",
		Catalogue: domain.CatalogueStyles,
		CreatedAt: at,
		Items: []domain.Style{
			{Title: "复古港风", Prompt: "p1", Source: []string{"weibo", "zhihu"}},
			{Title: "赛博朋克"},
		},
	}
	if err := s.SaveBatch(context.Background(), batch); err != nil {
		t.Fatalf("SaveBatch error: %v", err)
	}
	if len(exec.execs) != 1 || exec.execs[0].query != sqlinline.QInsertStyleBatch {
		t.Fatalf("unexpected execs: %#v", exec.execs)
	}
	args := exec.execs[0].args
	sources := args[3].([]string)
	if sources[0] != `["weibo","zhihu"]` || sources[1] != `[]` {
		t.Fatalf("unexpected sources %v", sources)
	}
	if titles := args[2].([]string); titles[1] != "赛博朋克" {
		t.Fatalf("unexpected titles %v", titles)
	}
	if args[5].(time.Time) != at {
		t.Fatalf("unexpected created_at %v", args[5])
	}
}

func TestPostgresLatestBatch(t *testing.T) {
	at := time.Now().UTC()
	exec := &stubExecutor{rows: [][]any{
		{"b9", "复古港风", `["weibo"]`, "霓虹", at},
		{"b9", "赛博朋克", `[]`, "", at},
	}}
	got, err := NewPostgresBatchStore(exec).LatestBatch(context.Background(), domain.CatalogueStyles)
	if err != nil {
		t.Fatalf("LatestBatch error: %v", err)
	}
	if got.BatchID != "b9" || len(got.Items) != 2 || got.Items[0].Source[0] != "weibo" {
		t.Fatalf("unexpected batch %+v", got)
	}
	if got.Items[1].Source == nil {
		t.Fatalf("empty source should decode to an empty list")
	}
}

func TestPostgresLatestBatchEmpty(t *testing.T) {
	_, err := NewPostgresBatchStore(&stubExecutor{}).LatestBatch(context.Background(), domain.CatalogueStyles)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
