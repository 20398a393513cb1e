package rediscache

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lessonbuddy/lessonbuddy-backend/internal/pkg/logger"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/utils"
)

// LessonCache fronts the object store for lesson markdown reads. A nil
// *LessonCache is a valid no-op cache, so callers never branch on whether
// Redis is configured.
type LessonCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewLessonCache(log *logger.Logger) (*LessonCache, error) {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ttlSeconds := utils.GetEnvAsInt("LESSON_CACHE_TTL_SECONDS", 3600, log)
	return &LessonCache{
		log: log.With("service", "LessonCache"),
		rdb: rdb,
		ttl: time.Duration(ttlSeconds) * time.Second,
	}, nil
}

func lessonKey(courseID, chapterID, lessonID string) string {
	return fmt.Sprintf("lesson:md:%s:%s:%s", courseID, chapterID, lessonID)
}

// GetMarkdown returns the cached document and whether it was present. Cache
// errors read as a miss.
func (c *LessonCache) GetMarkdown(ctx context.Context, courseID, chapterID, lessonID string) (string, bool) {
	if c == nil || c.rdb == nil {
		return "", false
	}
	val, err := c.rdb.Get(ctx, lessonKey(courseID, chapterID, lessonID)).Result()
	if err != nil {
		if err != goredis.Nil {
			c.log.Warn("Lesson cache read failed", "error", err)
		}
		return "", false
	}
	return val, true
}

func (c *LessonCache) SetMarkdown(ctx context.Context, courseID, chapterID, lessonID, markdown string) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, lessonKey(courseID, chapterID, lessonID), markdown, c.ttl).Err(); err != nil {
		c.log.Warn("Lesson cache write failed", "error", err)
	}
}

func (c *LessonCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
