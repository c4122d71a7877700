package config

// This file defines the Redis client constructor.  Redis backs two ambient
// concerns of the allocation API: the token-bucket rate limiter on the /v1
// group and the response cache on the counts endpoints.  Connection
// parameters come from environment variables.  If the server cannot be
// reached during startup the constructor returns nil and both middlewares
// degrade to pass-through, so the booking path keeps working without Redis.

import (
	"context"
	"crypto/tls"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient instantiates a Redis client using environment variables:
//
//	REDIS_HOST / REDIS_PORT  – hostname and port of the Redis server
//	REDIS_ADDR               – host:port shorthand (host/port win when both are set)
//	REDIS_PASSWORD           – optional password
//	REDIS_DB                 – database number (default 0)
//	REDIS_TLS                – enable TLS when "true" or "1"
//	REDIS_TLS_SKIP_VERIFY    – skip certificate verification; dev only
//
// The returned client is nil when no connection can be established.
func NewRedisClient() *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	if addr == "" {
		addr = "localhost:6379"
	}

	dbNum := 0
	if s := os.Getenv("REDIS_DB"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			dbNum = n
		}
	}

	var tlsConf *tls.Config
	if on := os.Getenv("REDIS_TLS"); strings.EqualFold(on, "true") || on == "1" {
		tlsConf = &tls.Config{}
		if skip := os.Getenv("REDIS_TLS_SKIP_VERIFY"); strings.EqualFold(skip, "true") || skip == "1" {
			tlsConf.InsecureSkipVerify = true
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:      addr,
		Password:  os.Getenv("REDIS_PASSWORD"),
		DB:        dbNum,
		TLSConfig: tlsConf,
	})

	// Ping with a short timeout; nil signals the caller to run without Redis.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return client
}
