package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storefront-svc/config"
)

const settingTTL = 5 * time.Minute

func InitRedis(cfg *config.Config, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established")
	return rdb, nil
}

func GetSetting(ctx context.Context, rdb *redis.Client, key string) (string, error) {
	return rdb.Get(ctx, "setting:"+key).Result()
}

func SetSetting(ctx context.Context, rdb *redis.Client, key, value string) error {
	return rdb.Set(ctx, "setting:"+key, value, settingTTL).Err()
}

func DeleteSetting(ctx context.Context, rdb *redis.Client, key string) error {
	return rdb.Del(ctx, "setting:"+key).Err()
}

// IncrOTPCounter bumps the per-email OTP request counter and returns its new
// value. The window starts with the first request.
func IncrOTPCounter(ctx context.Context, rdb *redis.Client, email string, window time.Duration) (int64, error) {
	key := "otp_requests:" + email
	count, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}
