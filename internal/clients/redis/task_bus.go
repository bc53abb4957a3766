package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/fitlink/fitlink-backend/internal/logger"
	"github.com/fitlink/fitlink-backend/internal/services"
)

// TaskBus fans lifecycle events out over redis pub/sub so dashboards can
// refresh buckets without polling. Publishing is best-effort; a bus failure
// never blocks a transition.
type TaskBus interface {
	services.LifecycleEventBus
	Close() error
}

type taskBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewTaskBus(log *logger.Logger) (TaskBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	channel := strings.TrimSpace(os.Getenv("REDIS_TASK_CHANNEL"))
	if channel == "" {
		channel = "relationship_tasks"
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

	return &taskBus{
		log:     log.With("client", "RedisTaskBus"),
		rdb:     rdb,
		channel: channel,
	}, nil
}

func (b *taskBus) PublishTaskEvent(ctx context.Context, event services.TaskEvent) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("task bus not initialized")
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *taskBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
