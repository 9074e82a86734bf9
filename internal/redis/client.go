package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

// DeviceEventChannel is the pub/sub channel carrying device lifecycle events
// for a tenant's back office.
func DeviceEventChannel(tenantID string) string {
	return fmt.Sprintf("device-events:%s", tenantID)
}

// DeviceStatusKey holds the most recent heartbeat for a device; its TTL is
// the configured online window, so key presence means "online".
func DeviceStatusKey(deviceCode string) string {
	return fmt.Sprintf("device-status:%s", deviceCode)
}
