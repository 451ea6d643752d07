package config

// Redis backs the auth rate limiter and the inventory response cache.
// Both degrade to pass-through when the client is nil, so a Redis
// outage at startup is not fatal.

import (
	"context"
	"crypto/tls"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisDisabled is returned when REDIS_ENABLED turns Redis off.
var ErrRedisDisabled = errors.New("redis disabled")

// NewRedisClient instantiates a Redis client using environment variables:
//
//	REDIS_ENABLED – "false" skips Redis entirely
//	REDIS_HOST and REDIS_PORT – hostname and port of the Redis server
//	REDIS_ADDR – host:port shorthand (host/port win when both are set)
//	REDIS_PASSWORD – optional password
//	REDIS_DB – database number (default 0)
//	REDIS_TLS – enable TLS when "true" or "1"
//
// The client is pinged with a short timeout; on failure it is closed
// and the error returned.
func NewRedisClient(ctx context.Context) (*redis.Client, error) {
	if !envBool("REDIS_ENABLED", true) {
		return nil, ErrRedisDisabled
	}
	addr := envStr("REDIS_ADDR", "localhost:6379")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	var tlsConf *tls.Config
	if v := os.Getenv("REDIS_TLS"); strings.EqualFold(v, "true") || v == "1" {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      addr,
		Password:  os.Getenv("REDIS_PASSWORD"),
		DB:        envInt("REDIS_DB", 0),
		TLSConfig: tlsConf,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
