// Package store holds the durable StyleBatch repositories.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stylegen/internal/domain"
	"stylegen/internal/infra"
	"stylegen/internal/sqlinline"
)

// PostgresBatchStore keeps every batch as rows of style_batches.
type PostgresBatchStore struct {
	sql infra.SQLExecutor
}

func NewPostgresBatchStore(sql infra.SQLExecutor) *PostgresBatchStore {
	return &PostgresBatchStore{sql: sql}
}

// EnsureSchema creates the tables when missing.
func (s *PostgresBatchStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.sql.Exec(ctx, sqlinline.QEnsureSchema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresBatchStore) SaveBatch(ctx context.Context, batch domain.StyleBatch) error {
	if err := validateBatch(batch); err != nil {
		return err
	}
	titles := make([]string, len(batch.Items))
	sources := make([]string, len(batch.Items))
	prompts := make([]string, len(batch.Items))
	for i, item := range batch.Items {
		src := item.Source
		if src == nil {
			src = []string{}
		}
		raw, err := json.Marshal(src)
		if err != nil {
			return fmt.Errorf("encode source: %w", err)
		}
		titles[i] = item.Title
		sources[i] = string(raw)
		prompts[i] = item.Prompt
	}
	createdAt := batch.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	tag, err := s.sql.Exec(ctx, sqlinline.QInsertStyleBatch,
		batch.BatchID, string(batch.Catalogue), titles, sources, prompts, createdAt)
	if err != nil {
		return fmt.Errorf("insert style batch: %w", err)
	}
	if n := tag.RowsAffected(); n != int64(len(batch.Items)) && n != 0 {
		return fmt.Errorf("insert style batch: wrote %d of %d rows", n, len(batch.Items))
	}
	return nil
}

func (s *PostgresBatchStore) LatestBatch(ctx context.Context, cat domain.Catalogue) (*domain.StyleBatch, error) {
	rows, err := s.sql.Query(ctx, sqlinline.QSelectLatestStyleBatch, string(cat))
	if err != nil {
		return nil, fmt.Errorf("select latest batch: %w", err)
	}
	defer rows.Close()

	batch := &domain.StyleBatch{Catalogue: cat}
	for rows.Next() {
		var (
			style     domain.Style
			rawSource string
			createdAt time.Time
		)
		if err := rows.Scan(&batch.BatchID, &style.Title, &rawSource, &style.Prompt, &createdAt); err != nil {
			return nil, fmt.Errorf("scan style row: %w", err)
		}
		style.Source = []string{}
		if rawSource != "" {
			if err := json.Unmarshal([]byte(rawSource), &style.Source); err != nil {
				return nil, fmt.Errorf("decode source of %q: %w", style.Title, err)
			}
		}
		batch.CreatedAt = createdAt
		batch.Items = append(batch.Items, style)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate style rows: %w", err)
	}
	if len(batch.Items) == 0 {
		return nil, domain.ErrNotFound
	}
	return batch, nil
}

func validateBatch(batch domain.StyleBatch) error {
	if batch.BatchID == "" {
		return fmt.Errorf("%w: batch id is required", domain.ErrInvalidRequest)
	}
	if !batch.Catalogue.Valid() {
		return fmt.Errorf("%w: unknown catalogue %q", domain.ErrInvalidRequest, batch.Catalogue)
	}
	if len(batch.Items) == 0 {
		return fmt.Errorf("%w: batch %s has no items", domain.ErrInvalidRequest, batch.BatchID)
	}
	return nil
}

var _ domain.StyleBatchRepository = (*PostgresBatchStore)(nil)
