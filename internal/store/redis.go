package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/devroom-hq/devroom/internal/metrics"
	"github.com/devroom-hq/devroom/internal/models"
)

const (
	messageTTL = 24 * time.Hour
	searchTTL  = 24 * time.Hour
)

// RedisStore handles Redis operations: the hot message cache, the search
// index, revoked-token tracking and rate-limit counters.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Client exposes the underlying client for middleware that needs raw
// pipeline access.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// projectMessagesKey returns the key for a project's message sorted set.
func projectMessagesKey(projectID string) string {
	return fmt.Sprintf("project:%s:messages", projectID)
}

// searchWordKey returns the key for a search word index.
func searchWordKey(word string) string {
	return fmt.Sprintf("search:words:%s", strings.ToLower(word))
}

// CacheMessage stores a message in the hot cache and indexes it for
// search. Entries expire after messageTTL; the durable copy lives in the
// SQL store.
func (s *RedisStore) CacheMessage(ctx context.Context, msg *models.Message) error {
	start := time.Now()
	defer func() { metrics.RedisLatency.Observe(time.Since(start).Seconds()) }()

	// Generate ULID if not set
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}

	// Set timestamp if not set
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	key := projectMessagesKey(msg.ProjectID)

	err = s.client.ZAdd(ctx, key, redis.Z{
		Score:  float64(msg.Timestamp),
		Member: string(data),
	}).Err()
	if err != nil {
		return err
	}

	s.client.Expire(ctx, key, messageTTL)

	// Search indexing is best-effort
	_ = s.IndexMessage(ctx, msg)

	return nil
}

// GetRecentMessages retrieves cached messages for a project, newest
// first, optionally only those strictly older than before (unix ms).
func (s *RedisStore) GetRecentMessages(ctx context.Context, projectID string, limit int, before int64) ([]models.Message, error) {
	key := projectMessagesKey(projectID)

	var maxScore string
	if before > 0 {
		maxScore = fmt.Sprintf("(%d", before) // exclusive
	} else {
		maxScore = "+inf"
	}

	results, err := s.client.ZRevRangeByScore(ctx, key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   maxScore,
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0, len(results))
	for _, data := range results {
		var msg models.Message
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

// GetMessage retrieves a specific cached message by ID.
func (s *RedisStore) GetMessage(ctx context.Context, projectID, msgID string) (*models.Message, error) {
	key := projectMessagesKey(projectID)

	results, err := s.client.ZRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	for _, data := range results {
		var msg models.Message
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			continue
		}
		if msg.ID == msgID {
			return &msg, nil
		}
	}

	return nil, nil
}

// wordRegex matches word characters for search indexing.
var wordRegex = regexp.MustCompile(`\w+`)

// IndexMessage indexes a message's plain-text body for search.
func (s *RedisStore) IndexMessage(ctx context.Context, msg *models.Message) error {
	words := wordRegex.FindAllString(strings.ToLower(msg.Body), -1)

	seen := make(map[string]bool)
	for _, word := range words {
		if len(word) < 3 || seen[word] {
			continue
		}
		seen[word] = true

		key := searchWordKey(word)
		ref := fmt.Sprintf("%s:%s", msg.ProjectID, msg.ID)

		s.client.ZAdd(ctx, key, redis.Z{
			Score:  float64(msg.Timestamp),
			Member: ref,
		})
		s.client.Expire(ctx, key, searchTTL)
	}

	return nil
}

// SearchMessages searches cached messages containing all query tokens,
// optionally scoped to one project.
func (s *RedisStore) SearchMessages(ctx context.Context, tokens []string, limit int, after int64, projectFilter string) ([]models.Message, error) {
	if len(tokens) == 0 {
		return []models.Message{}, nil
	}

	keys := make([]string, len(tokens))
	for i, t := range tokens {
		keys[i] = searchWordKey(t)
	}

	var refs []string

	minScore := "-inf"
	if after > 0 {
		minScore = fmt.Sprintf("(%d", after) // exclusive
	}

	if len(keys) == 1 {
		refs, _ = s.client.ZRevRangeByScore(ctx, keys[0], &redis.ZRangeBy{
			Min:   minScore,
			Max:   "+inf",
			Count: int64(limit * 3), // Fetch extra for filtering
		}).Result()
	} else {
		tempKey := fmt.Sprintf("search:temp:%d", time.Now().UnixNano())

		s.client.ZInterStore(ctx, tempKey, &redis.ZStore{
			Keys:      keys,
			Aggregate: "MIN",
		})
		s.client.Expire(ctx, tempKey, 10*time.Second)

		refs, _ = s.client.ZRevRangeByScore(ctx, tempKey, &redis.ZRangeBy{
			Min:   minScore,
			Max:   "+inf",
			Count: int64(limit * 3),
		}).Result()

		s.client.Del(ctx, tempKey)
	}

	messages := make([]models.Message, 0, limit)
	for _, ref := range refs {
		parts := strings.SplitN(ref, ":", 2)
		if len(parts) != 2 {
			continue
		}
		projectID, msgID := parts[0], parts[1]

		if projectFilter != "" && projectID != projectFilter {
			continue
		}

		msg, err := s.GetMessage(ctx, projectID, msgID)
		if err != nil || msg == nil {
			continue // Message expired
		}

		messages = append(messages, *msg)

		if len(messages) >= limit {
			break
		}
	}

	return messages, nil
}

// Tokenize splits a query into indexable tokens.
func Tokenize(query string) []string {
	return wordRegex.FindAllString(strings.ToLower(query), -1)
}

// blacklistKey returns the key for a revoked token. The raw token never
// touches Redis, only its digest.
func blacklistKey(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return fmt.Sprintf("blacklist:token:%s", hex.EncodeToString(sum[:]))
}

// BlacklistToken revokes a token until its natural expiry.
func (s *RedisStore) BlacklistToken(ctx context.Context, tok string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return s.client.Set(ctx, blacklistKey(tok), "1", ttl).Err()
}

// IsTokenBlacklisted checks whether a token has been revoked.
func (s *RedisStore) IsTokenBlacklisted(ctx context.Context, tok string) bool {
	exists, _ := s.client.Exists(ctx, blacklistKey(tok)).Result()
	return exists > 0
}
