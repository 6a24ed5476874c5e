package redis

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/jobassist-backend/internal/inference/engine"
	"github.com/yungbote/jobassist-backend/internal/pkg/logger"
)

const (
	embeddingKeyPrefix      = "emb:"
	DefaultEmbeddingTTL     = 7 * 24 * time.Hour
	embeddingCacheOpTimeout = 500 * time.Millisecond
)

// Store is the slice of the go-redis API the cache needs.
type Store interface {
	MGet(ctx context.Context, keys ...string) *goredis.SliceCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
}

// EmbeddingCache wraps an Embedder with a Redis read-through cache. Redis
// errors are logged and treated as misses.
type EmbeddingCache struct {
	inner engine.Embedder
	store Store
	model string
	ttl   time.Duration
	log   *logger.Logger
}

func NewEmbeddingCache(inner engine.Embedder, store Store, model string, ttl time.Duration, log *logger.Logger) *EmbeddingCache {
	if ttl <= 0 {
		ttl = DefaultEmbeddingTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &EmbeddingCache{inner: inner, store: store, model: model, ttl: ttl, log: log.With("component", "EmbeddingCache")}
}

func EmbeddingKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return embeddingKeyPrefix + hex.EncodeToString(sum[:])
}

func (c *EmbeddingCache) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	keys := make([]string, len(inputs))
	for i, s := range inputs {
		keys[i] = EmbeddingKey(c.model, s)
	}

	out := make([][]float32, len(inputs))
	c.lookup(ctx, keys, out)

	var (
		missIdx    []int
		missInputs []string
	)
	for i := range out {
		if out[i] == nil {
			missIdx = append(missIdx, i)
			missInputs = append(missInputs, inputs[i])
		}
	}
	if len(missIdx) == 0 {
		return out, nil
	}

	vecs, err := c.inner.Embed(ctx, missInputs)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missInputs) {
		return nil, fmt.Errorf("embedding cache: got %d vectors for %d inputs", len(vecs), len(missInputs))
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		c.store1(ctx, keys[i], vecs[j])
	}
	return out, nil
}

func (c *EmbeddingCache) lookup(ctx context.Context, keys []string, out [][]float32) {
	ctx, cancel := context.WithTimeout(ctx, embeddingCacheOpTimeout)
	defer cancel()

	vals, err := c.store.MGet(ctx, keys...).Result()
	if err != nil {
		c.log.Warn("Embedding cache read failed", "error", err)
		return
	}
	for i, v := range vals {
		if i >= len(out) {
			break
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		if vec, ok := decodeVector([]byte(s)); ok {
			out[i] = vec
		}
	}
}

func (c *EmbeddingCache) store1(ctx context.Context, key string, vec []float32) {
	ctx, cancel := context.WithTimeout(ctx, embeddingCacheOpTimeout)
	defer cancel()
	if err := c.store.Set(ctx, key, encodeVector(vec), c.ttl).Err(); err != nil {
		c.log.Warn("Embedding cache write failed", "error", err)
	}
}

func encodeVector(vec []float32) []byte {
	b := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return b
}

func decodeVector(b []byte) ([]float32, bool) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, false
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, true
}
