package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/lecture_booking/internal/model"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "lecture_booking:times"

// TimesCache кэш списков доступного и занятого времени лекции в redis.
// Ошибки redis не прерывают запрос: промах кэша и запись в лог.
type TimesCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewTimesCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *TimesCache {
	return &TimesCache{client: client, ttl: ttl, logger: logger}
}

// NewRedisClient подключается к redis и проверяет соединение
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Списки лекции хранятся под ключом с номером поколения. Invalidate увеличивает
// поколение, поэтому запись, прочитанная из базы до изменения, попадает под
// старый ключ и больше не читается.

func genKey(lectureID int64) string {
	return fmt.Sprintf("%s:gen:%d", keyPrefix, lectureID)
}

func timesKey(kind model.TimesKind, lectureID, gen int64) string {
	return fmt.Sprintf("%s:%s:%d:%d", keyPrefix, kind, lectureID, gen)
}

// Generation текущее поколение списков лекции; false если redis недоступен
func (c *TimesCache) Generation(ctx context.Context, lectureID int64) (int64, bool) {
	gen, err := c.client.Get(ctx, genKey(lectureID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, true
		}
		c.logger.Warn("Cache generation read failed", zap.Int64("lecture_id", lectureID), zap.Error(err))
		return 0, false
	}
	return gen, true
}

func (c *TimesCache) GetTimes(ctx context.Context, kind model.TimesKind, lectureID, gen int64) ([]model.TimeRange, bool) {
	data, err := c.client.Get(ctx, timesKey(kind, lectureID, gen)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Cache read failed", zap.String("kind", string(kind)), zap.Int64("lecture_id", lectureID), zap.Error(err))
		}
		return nil, false
	}

	var times []model.TimeRange
	if err := json.Unmarshal(data, &times); err != nil {
		c.logger.Warn("Cache entry is corrupted", zap.String("kind", string(kind)), zap.Int64("lecture_id", lectureID), zap.Error(err))
		return nil, false
	}
	return times, true
}

func (c *TimesCache) SetTimes(ctx context.Context, kind model.TimesKind, lectureID, gen int64, times []model.TimeRange) {
	data, err := json.Marshal(times)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, timesKey(kind, lectureID, gen), data, c.ttl).Err(); err != nil {
		c.logger.Warn("Cache write failed", zap.String("kind", string(kind)), zap.Int64("lecture_id", lectureID), zap.Error(err))
	}
}

// Invalidate переводит лекцию на новое поколение; старые записи истекут по TTL
func (c *TimesCache) Invalidate(ctx context.Context, lectureID int64) {
	if err := c.client.Incr(ctx, genKey(lectureID)).Err(); err != nil {
		c.logger.Warn("Cache invalidation failed", zap.Int64("lecture_id", lectureID), zap.Error(err))
	}
}
