package patients

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/heart-disease-predictor-server/internal/domain"
)

// CachedRepository decorates a PatientRepository with a two-tier read cache:
// an in-process LRU in front of an optional shared Redis tier. Cache failures
// never fail a request; the decorator falls through to the backing store.
type CachedRepository struct {
	inner      domain.PatientRepository
	memory     *lru.Cache[int64, *domain.Patient]
	redis      *redis.Client
	defaultTTL time.Duration
	log        *logrus.Logger
}

// cachedPatient is the Redis envelope for a patient record.
type cachedPatient struct {
	Data     *domain.Patient `json:"data"`
	CachedAt time.Time       `json:"cached_at"`
}

// NewCachedRepository wraps a repository with caching. A nil Redis URL in the
// configuration disables the shared tier; the memory tier is always active.
func NewCachedRepository(inner domain.PatientRepository, cfg domain.CacheConfig, logger *logrus.Logger) (*CachedRepository, error) {
	size := cfg.MemorySize
	if size <= 0 {
		size = 512
	}
	memory, err := lru.New[int64, *domain.Patient](size)
	if err != nil {
		return nil, fmt.Errorf("creating memory cache: %w", err)
	}

	repo := &CachedRepository{
		inner:      inner,
		memory:     memory,
		defaultTTL: cfg.DefaultTTL,
		log:        logger,
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		opts.PoolSize = cfg.PoolSize
		opts.PoolTimeout = cfg.PoolTimeout
		opts.MaxRetries = cfg.MaxRetries

		client := redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		repo.redis = client
	}

	return repo, nil
}

func patientKey(id int64) string {
	return fmt.Sprintf("patient:%d", id)
}

// Create inserts through to the backing store and primes the cache with the
// stored record.
func (c *CachedRepository) Create(ctx context.Context, input *domain.PatientInput) (*domain.Patient, error) {
	p, err := c.inner.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	c.store(ctx, p)
	return p, nil
}

// Get serves from the memory tier, then Redis, then the backing store.
func (c *CachedRepository) Get(ctx context.Context, id int64) (*domain.Patient, error) {
	if p, ok := c.memory.Get(id); ok {
		return p, nil
	}

	if p, ok := c.redisGet(ctx, id); ok {
		c.memory.Add(id, p)
		return p, nil
	}

	p, err := c.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, p)
	return p, nil
}

// List always reads the backing store; pagination windows are not cached.
func (c *CachedRepository) List(ctx context.Context, offset, limit int) ([]*domain.Patient, error) {
	return c.inner.List(ctx, offset, limit)
}

// Count always reads the backing store.
func (c *CachedRepository) Count(ctx context.Context) (int64, error) {
	return c.inner.Count(ctx)
}

// GetLatest always reads the backing store; recency ordering cannot be
// answered from a keyed cache.
func (c *CachedRepository) GetLatest(ctx context.Context) (*domain.Patient, error) {
	return c.inner.GetLatest(ctx)
}

// Update writes through to the backing store and replaces the cached record.
func (c *CachedRepository) Update(ctx context.Context, id int64, update *domain.PatientUpdate) (*domain.Patient, error) {
	p, err := c.inner.Update(ctx, id, update)
	if err != nil {
		if domain.IsNotFound(err) {
			c.invalidate(ctx, id)
		}
		return nil, err
	}
	c.store(ctx, p)
	return p, nil
}

// Delete removes the record from the backing store and evicts it.
func (c *CachedRepository) Delete(ctx context.Context, id int64) error {
	if err := c.inner.Delete(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

// Close closes the Redis connection, if any, then the backing store.
func (c *CachedRepository) Close() error {
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.log.WithError(err).Warn("Failed to close Redis connection")
		}
	}
	return c.inner.Close()
}

func (c *CachedRepository) store(ctx context.Context, p *domain.Patient) {
	c.memory.Add(p.ID, p)

	if c.redis == nil {
		return
	}
	payload, err := json.Marshal(cachedPatient{Data: p, CachedAt: time.Now().UTC()})
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, patientKey(p.ID), payload, c.defaultTTL).Err(); err != nil {
		c.log.WithError(err).WithField("patient_id", p.ID).Warn("Failed to write patient cache")
	}
}

func (c *CachedRepository) redisGet(ctx context.Context, id int64) (*domain.Patient, bool) {
	if c.redis == nil {
		return nil, false
	}

	val, err := c.redis.Get(ctx, patientKey(id)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.log.WithError(err).WithField("patient_id", id).Warn("Failed to read patient cache")
		return nil, false
	}

	var cached cachedPatient
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		// Remove corrupted cache entry
		c.redis.Del(ctx, patientKey(id))
		return nil, false
	}
	return cached.Data, true
}

func (c *CachedRepository) invalidate(ctx context.Context, id int64) {
	c.memory.Remove(id)
	if c.redis != nil {
		if err := c.redis.Del(ctx, patientKey(id)).Err(); err != nil {
			c.log.WithError(err).WithField("patient_id", id).Warn("Failed to evict patient cache")
		}
	}
}
