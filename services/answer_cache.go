package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"pdf-rag-backend/internal/logger"
	"pdf-rag-backend/models"
	"pdf-rag-backend/utils"

	"github.com/redis/go-redis/v9"
)

const answerCachePrefix = "rag:answer:"

// AnswerCache caches generated answers in Redis, keyed by the question,
// top-k and document filter. Entries are gzipped JSON. The cache fails
// open: Redis being down degrades to cache misses, never to errors.
type AnswerCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAnswerCache(client *redis.Client, ttl time.Duration) *AnswerCache {
	return &AnswerCache{client: client, ttl: ttl}
}

// key builds the cache key. The document filter is sorted so that the same
// filter expressed in a different order hits the same entry.
func (c *AnswerCache) key(question string, topK int, documentIDs []string) string {
	filter := append([]string(nil), documentIDs...)
	sort.Strings(filter)
	return answerCachePrefix + utils.HashKey(question, fmt.Sprintf("%d", topK), strings.Join(filter, ","))
}

// Get returns a cached answer or nil on miss.
func (c *AnswerCache) Get(ctx context.Context, question string, topK int, documentIDs []string) *models.RAGAnswer {
	if c.client == nil {
		return nil
	}

	raw, err := c.client.Get(ctx, c.key(question, topK, documentIDs)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("Answer cache read failed", "error", err)
		}
		return nil
	}

	data, err := utils.DecompressData(raw)
	if err != nil {
		logger.Warn("Answer cache entry corrupt", "error", err)
		return nil
	}
	var answer models.RAGAnswer
	if err := json.Unmarshal(data, &answer); err != nil {
		logger.Warn("Answer cache entry undecodable", "error", err)
		return nil
	}
	return &answer
}

// Set stores an answer. Failures are logged, not returned.
func (c *AnswerCache) Set(ctx context.Context, question string, topK int, documentIDs []string, answer *models.RAGAnswer) {
	if c.client == nil || answer == nil {
		return
	}

	data, err := json.Marshal(answer)
	if err != nil {
		logger.Warn("Answer cache encode failed", "error", err)
		return
	}
	compressed, err := utils.CompressData(data)
	if err != nil {
		logger.Warn("Answer cache compress failed", "error", err)
		return
	}
	if err := c.client.Set(ctx, c.key(question, topK, documentIDs), compressed, c.ttl).Err(); err != nil {
		logger.Warn("Answer cache write failed", "error", err)
	}
}

// InvalidateAll drops every cached answer. Called when the document set
// changes, since any cached answer may cite stale content.
func (c *AnswerCache) InvalidateAll(ctx context.Context) {
	if c.client == nil {
		return
	}

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, answerCachePrefix+"*", 100).Result()
		if err != nil {
			logger.Warn("Answer cache invalidation scan failed", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				logger.Warn("Answer cache invalidation delete failed", "error", err)
				return
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}
