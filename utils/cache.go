// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"time"

	"consultbook/config"

	"github.com/go-redis/redis/v8"
)

// TaskQueueClient talks to the Redis database that backs the reminder task queue.
var TaskQueueClient *redis.Client

// InitTaskQueueRedis initializes the Redis client for the task queue database.
func InitTaskQueueRedis() {
	TaskQueueClient = redis.NewClient(TaskQueueRedisOptions())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := TaskQueueClient.Ping(ctx).Result(); err != nil {
		// Reminders are best-effort; the API keeps serving without them.
		log.Printf("WARNING: failed to connect to Redis (task queue): %v", err)
	}
}

// GetTaskQueueClient returns the task queue Redis client.
func GetTaskQueueClient() *redis.Client {
	if TaskQueueClient == nil {
		InitTaskQueueRedis()
	}
	return TaskQueueClient
}

// TaskQueueRedisOptions are shared by the go-redis client and the asynq connection.
func TaskQueueRedisOptions() *redis.Options {
	return &redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTaskQueueDB,
	}
}
