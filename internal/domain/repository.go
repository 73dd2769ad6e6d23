package domain

import "context"

// StyleBatchRepository is the durable store of catalogue batches.
type StyleBatchRepository interface {
	// LatestBatch returns the most recently created batch or ErrNotFound.
	LatestBatch(ctx context.Context, catalogue Catalogue) (*StyleBatch, error)
	SaveBatch(ctx context.Context, batch StyleBatch) error
}
