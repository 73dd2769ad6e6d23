package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"stylegen/internal/domain"
)

// RedisBatchStore keeps batches as JSON documents indexed by a sorted set
// scored by creation time. It lets several API instances share one durable
// catalogue.
type RedisBatchStore struct {
	client    redis.UniversalClient
	keyPrefix string
	history   int64
}

type redisBatch struct {
	BatchID   string         `json:"batchId"`
	Catalogue string         `json:"catalogue"`
	Items     []domain.Style `json:"items"`
	CreatedAt time.Time      `json:"createdAt"`
}

// RedisOption configures a RedisBatchStore.
type RedisOption func(*RedisBatchStore)

// WithKeyPrefix namespaces every key. Default "stylegen:".
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisBatchStore) {
		if prefix != "" {
			s.keyPrefix = prefix
		}
	}
}

// WithHistory keeps only the newest n batches per catalogue. Zero keeps all.
func WithHistory(n int) RedisOption {
	return func(s *RedisBatchStore) {
		if n > 0 {
			s.history = int64(n)
		}
	}
}

func NewRedisBatchStore(client redis.UniversalClient, opts ...RedisOption) *RedisBatchStore {
	s := &RedisBatchStore{client: client, keyPrefix: "stylegen:"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewRedisClient parses url and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func (s *RedisBatchStore) indexKey(cat domain.Catalogue) string {
	return s.keyPrefix + "styles:" + string(cat) + ":batches"
}

func (s *RedisBatchStore) batchKey(cat domain.Catalogue, id string) string {
	return s.keyPrefix + "styles:" + string(cat) + ":batch:" + id
}

func (s *RedisBatchStore) SaveBatch(ctx context.Context, batch domain.StyleBatch) error {
	if err := validateBatch(batch); err != nil {
		return err
	}
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(redisBatch{
		BatchID:   batch.BatchID,
		Catalogue: string(batch.Catalogue),
		Items:     batch.Items,
		CreatedAt: batch.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.batchKey(batch.Catalogue, batch.BatchID), data, 0)
		pipe.ZAdd(ctx, s.indexKey(batch.Catalogue), redis.Z{
			Score:  float64(batch.CreatedAt.UnixNano()),
			Member: batch.BatchID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save batch: %w", err)
	}
	if s.history > 0 {
		return s.trim(ctx, batch.Catalogue)
	}
	return nil
}

func (s *RedisBatchStore) trim(ctx context.Context, cat domain.Catalogue) error {
	old, err := s.client.ZRange(ctx, s.indexKey(cat), 0, -s.history-1).Result()
	if err != nil {
		return fmt.Errorf("failed to list old batches: %w", err)
	}
	if len(old) == 0 {
		return nil
	}
	keys := make([]string, len(old))
	members := make([]any, len(old))
	for i, id := range old {
		keys[i] = s.batchKey(cat, id)
		members[i] = id
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.ZRem(ctx, s.indexKey(cat), members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to trim batches: %w", err)
	}
	return nil
}

func (s *RedisBatchStore) LatestBatch(ctx context.Context, cat domain.Catalogue) (*domain.StyleBatch, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(cat), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read batch index: %w", err)
	}
	if len(ids) == 0 {
		return nil, domain.ErrNotFound
	}
	data, err := s.client.Get(ctx, s.batchKey(cat, ids[0])).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read batch: %w", err)
	}
	var stored redisBatch
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal batch: %w", err)
	}
	return &domain.StyleBatch{
		BatchID:   stored.BatchID,
		Catalogue: domain.Catalogue(stored.Catalogue),
		Items:     stored.Items,
		CreatedAt: stored.CreatedAt,
	}, nil
}

// Ping checks if the store is healthy.
func (s *RedisBatchStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

var _ domain.StyleBatchRepository = (*RedisBatchStore)(nil)
