package redis

import (
	"context"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"
)

// loggingAdapter routes go-redis internal messages to the global logger.
type loggingAdapter struct{}

// Printf logs go-redis reconnect and pool messages at warn level.
func (l *loggingAdapter) Printf(ctx context.Context, format string, v ...interface{}) {
	logger.Warnf("redis: "+format, v...)
}

func init() {
	goredis.SetLogger(&loggingAdapter{})
}
