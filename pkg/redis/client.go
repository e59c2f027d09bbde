// Package redis provides the connection bootstrap for the go-redis client
// backing the "ros2"-kind pub/sub transport adapter
// (pkg/transport/pubsubredis). It keeps the teacher's connect-then-ping
// constructor shape; the vehicle-state read/write helpers that shape
// carried in the teacher repo have no place in this system and are not
// reproduced here (see DESIGN.md).
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connect dials addr and verifies connectivity with a bounded-timeout
// PING, mirroring the teacher's New(addr, password, db) constructor.
func Connect(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis: connect to %s: %w", addr, err)
	}
	return client, nil
}
