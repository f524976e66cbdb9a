package ocr

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

const cacheKeyPrefix = "safe2go:ocr:"

// CachedRecognizer memoizes recognition results in Redis keyed by the image
// digest, so re-uploading the same screenshot skips the OCR pass.
type CachedRecognizer struct {
	next   Recognizer
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedRecognizer wraps next. A nil client disables caching.
func NewCachedRecognizer(next Recognizer, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedRecognizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedRecognizer{next: next, client: client, ttl: ttl, logger: logger}
}

// Recognize returns a cached result when present, otherwise delegates and
// stores the outcome. Cache errors never fail recognition.
func (c *CachedRecognizer) Recognize(ctx context.Context, in Input) (Result, error) {
	if c.client == nil {
		return c.next.Recognize(ctx, in)
	}
	key := CacheKey(in)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached Result
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			c.logger.Debug("ocr cache hit", zap.String("key", key))
			return cached, nil
		}
		c.logger.Warn("discarding malformed ocr cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("ocr cache lookup failed", zap.String("key", key), zap.Error(err))
	}

	res, err := c.next.Recognize(ctx, in)
	if err != nil {
		return Result{}, err
	}

	payload, err := json.Marshal(res)
	if err == nil {
		err = c.client.Set(ctx, key, payload, c.ttl).Err()
	}
	if err != nil {
		c.logger.Warn("ocr cache store failed", zap.String("key", key), zap.Error(err))
	}
	return res, nil
}

// CacheKey derives the cache key for an input from a BLAKE2b-256 digest of
// the image and the language hint.
func CacheKey(in Input) string {
	h, _ := blake2b.New256(nil)
	h.Write(in.Image)
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(in.Languages, "+")))
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}
