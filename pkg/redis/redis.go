package redis

import (
	"context"
	"errors"
	"fmt"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"os"
	"strconv"
	"time"
)

var ErrNotFound = errors.New("key not found")

type IRedis interface {
	SetLiveStatus(ctx context.Context, examID string, payload []byte, expiration time.Duration) error
	GetLiveStatus(ctx context.Context, examID string) ([]byte, error)
	Close() error
}

type redisClient struct {
	client *redis.Client
	prefix string
}

func New() IRedis {
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	redisAddr := os.Getenv("REDIS_ADDRESS")
	redisPassword := os.Getenv("REDIS_PASSWORD")

	logrus.Info(fmt.Sprintf("Connecting to Redis at %s...", redisAddr))

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		logrus.Error(fmt.Sprintf("Failed to connect to Redis: %v", err))
	} else {
		logrus.Info("Successfully connected to Redis")
	}

	return NewWithClient(client)
}

func NewWithClient(client *redis.Client) IRedis {
	return &redisClient{client: client, prefix: "proctor:live:"}
}

func (r *redisClient) key(examID string) string {
	return r.prefix + examID
}

func (r *redisClient) SetLiveStatus(ctx context.Context, examID string, payload []byte, expiration time.Duration) error {
	logrus.Debug(fmt.Sprintf("Setting live status for exam %s with expiration %v", examID, expiration))
	if err := r.client.Set(ctx, r.key(examID), payload, expiration).Err(); err != nil {
		logrus.Error(fmt.Sprintf("Error setting live status for exam %s: %v", examID, err))
		return err
	}
	return nil
}

func (r *redisClient) GetLiveStatus(ctx context.Context, examID string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.key(examID)).Bytes()
	if errors.Is(err, redis.Nil) {
		logrus.Debug(fmt.Sprintf("Live status not found for exam %s", examID))
		return nil, ErrNotFound
	} else if err != nil {
		logrus.Error(fmt.Sprintf("Error getting live status for exam %s: %v", examID, err))
		return nil, err
	}
	return val, nil
}

func (r *redisClient) Close() error {
	return r.client.Close()
}
