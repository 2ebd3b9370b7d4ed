package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"grouping-server-go/models"
)

const (
	archivePrefix = "grouping:archive:" // String: grouping:archive:{token} -> zip bytes
	summaryPrefix = "grouping:summary:" // String: grouping:summary:{token} -> summary JSON
)

// ErrArchiveNotFound is returned for unknown or expired tokens
var ErrArchiveNotFound = errors.New("archive not found or expired")

// RedisService keeps built archives for a short time so clients can
// download them after reviewing the summary
type RedisService struct {
	Client *redis.Client
	TTL    time.Duration
}

// NewRedisService creates a new RedisService instance
func NewRedisService(client *redis.Client, ttl time.Duration) *RedisService {
	return &RedisService{
		Client: client,
		TTL:    ttl,
	}
}

// Helper to generate archive key
func getArchiveKey(token string) string {
	return archivePrefix + token
}

// Helper to generate summary key
func getSummaryKey(token string) string {
	return summaryPrefix + token
}

// SaveArchive stores the archive and its summary under a new token. Both
// keys expire after TTL.
func (s *RedisService) SaveArchive(ctx context.Context, archive []byte, summary models.Summary) (string, error) {
	encoded, err := json.Marshal(summary)
	if err != nil {
		return "", fmt.Errorf("failed to encode summary: %w", err)
	}

	token := uuid.NewString()
	pipe := s.Client.TxPipeline()
	pipe.Set(ctx, getArchiveKey(token), archive, s.TTL)
	pipe.Set(ctx, getSummaryKey(token), encoded, s.TTL)

	if _, err := pipe.Exec(ctx); err != nil {
		slog.Error("Error storing archive", "token", token, "error", err)
		return "", fmt.Errorf("failed to store archive in Redis: %w", err)
	}
	slog.Debug("Stored archive", "token", token, "bytes", len(archive), "ttl", s.TTL)
	return token, nil
}

// LoadArchive returns the zip bytes stored under token
func (s *RedisService) LoadArchive(ctx context.Context, token string) ([]byte, error) {
	data, err := s.Client.Get(ctx, getArchiveKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrArchiveNotFound
		}
		return nil, fmt.Errorf("failed to get archive from Redis: %w", err)
	}
	return data, nil
}

// LoadSummary returns the summary stored under token
func (s *RedisService) LoadSummary(ctx context.Context, token string) (*models.Summary, error) {
	data, err := s.Client.Get(ctx, getSummaryKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrArchiveNotFound
		}
		return nil, fmt.Errorf("failed to get summary from Redis: %w", err)
	}

	var summary models.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to decode summary %s: %w", token, err)
	}
	return &summary, nil
}

// Ping checks the Redis connection
func (s *RedisService) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx).Err()
}

// --- Utility ---

// InitializeRedisClient creates and tests a Redis client connection
func InitializeRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("could not connect to Redis at %s: %w", addr, err)
	}

	slog.Info("Successfully connected to Redis", "addr", addr, "db", db)
	return rdb, nil
}
