// db/redis.go
package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	logger "github.com/workforcehq/aegis/logging"
	"github.com/workforcehq/aegis/model"
)

var RedisClient *redis.Client

func InitRedis() error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:         viper.GetString("redis.addr"),
		Password:     viper.GetString("redis.password"),
		DB:           viper.GetInt("redis.db"),
		DialTimeout:  viper.GetDuration("redis.dialTimeout"),
		ReadTimeout:  viper.GetDuration("redis.readTimeout"),
		WriteTimeout: viper.GetDuration("redis.writeTimeout"),
		PoolSize:     viper.GetInt("redis.poolSize"),
		PoolTimeout:  viper.GetDuration("redis.poolTimeout"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Successfully connected to Redis")
	return nil
}

func CloseRedis() {
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logger.Error("Error closing Redis connection", zap.Error(err))
		}
	}
}

// CacheEmployee stores an employee profile used for subject enrichment.
func CacheEmployee(ctx context.Context, employee *model.Employee) error {
	employeeJSON, err := json.Marshal(employee)
	if err != nil {
		return fmt.Errorf("failed to marshal employee: %w", err)
	}

	key := fmt.Sprintf("employee:%s", employee.UserID)
	defaultTTL := viper.GetDuration("redis.defaultCacheTTL")
	err = RedisClient.Set(ctx, key, employeeJSON, defaultTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to cache employee: %w", err)
	}

	logger.Debug("Employee cached successfully", zap.String("userID", employee.UserID))
	return nil
}

// GetCachedEmployee returns the cached profile for a user, or nil on a miss.
func GetCachedEmployee(ctx context.Context, userID string) (*model.Employee, error) {
	key := fmt.Sprintf("employee:%s", userID)
	employeeJSON, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		logger.Debug("Employee not found in cache", zap.String("userID", userID))
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get employee from cache: %w", err)
	}

	var employee model.Employee
	err = json.Unmarshal([]byte(employeeJSON), &employee)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal employee: %w", err)
	}

	logger.Debug("Employee retrieved from cache", zap.String("userID", userID))
	return &employee, nil
}

func RateLimit(ctx context.Context, key string, limit int, per time.Duration) (bool, error) {
	pipe := RedisClient.Pipeline()
	now := time.Now().UnixNano()
	key = fmt.Sprintf("ratelimit:%s", key)

	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", now-(per.Nanoseconds())))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: now})
	pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, per)

	cmds, err := pipe.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to execute rate limit commands: %w", err)
	}

	count := cmds[2].(*redis.IntCmd).Val()
	allowed := count <= int64(limit)
	logger.Debug("Rate limit check",
		zap.String("key", key),
		zap.Int64("count", count),
		zap.Int("limit", limit),
		zap.Bool("allowed", allowed))
	return allowed, nil
}

// RedisLocker adapts the lock helpers to the service layer's ResourceLocker
// interface.
type RedisLocker struct{}

func (RedisLocker) Lock(ctx context.Context, resource string, ttl time.Duration) (bool, error) {
	return LockResource(ctx, resource, ttl)
}

func (RedisLocker) Unlock(ctx context.Context, resource string) error {
	return UnlockResource(ctx, resource)
}

func LockResource(ctx context.Context, resourceName string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:%s", resourceName)
	locked, err := RedisClient.SetNX(ctx, key, "locked", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	logger.Debug("Lock acquisition attempt",
		zap.String("resource", resourceName),
		zap.Bool("locked", locked))
	return locked, nil
}

func UnlockResource(ctx context.Context, resourceName string) error {
	key := fmt.Sprintf("lock:%s", resourceName)
	err := RedisClient.Del(ctx, key).Err()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	logger.Debug("Lock released", zap.String("resource", resourceName))
	return nil
}
