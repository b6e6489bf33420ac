package container

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/xform-media/xform/cmd/proxy/service"
	"github.com/xform-media/xform/common/bootstrap"
	"github.com/xform-media/xform/common/ratelimit"
	"github.com/xform-media/xform/common/storage"
)

// Container holds all initialized services (singleton pattern)
type Container struct {
	// Components
	Components *bootstrap.Components

	// Capabilities
	Store storage.ObjectStore

	// Services
	FetchService *service.FetchService
	Pipeline     *service.Pipeline

	// RateLimiter is nil when rate limiting is disabled
	RateLimiter *ratelimit.RateLimiter
}

// NewContainer initializes all services once
func NewContainer(components *bootstrap.Components) (*Container, error) {
	store := storage.NewS3Store(components.Logger)

	fetchService := service.NewFetchService(store, components.Logger)
	pipeline := service.NewPipeline(components.Config.Proxy.OptimizeSVG, components.Logger)

	c := &Container{
		Components:   components,
		Store:        store,
		FetchService: fetchService,
		Pipeline:     pipeline,
	}

	if components.Config.RateLimit.Enabled {
		redisClient, err := createRedisClient(components)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis client: %w", err)
		}
		c.RateLimiter = ratelimit.NewRateLimiter(redisClient, components.Logger)
	}

	return c, nil
}

// createRedisClient creates a Redis client from the rate limit config
func createRedisClient(components *bootstrap.Components) (*redis.Client, error) {
	cfg := components.Config.RateLimit

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       0,
	})

	return client, nil
}
