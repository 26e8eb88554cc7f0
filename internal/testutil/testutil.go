//go:build integration

// Package testutil provides helpers for tests that need a live Redis.
package testutil

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisAddr returns the address of the test Redis (IP:port). It checks
// ROGUE_DHCP_TEST_REDIS_ADDR first, then looks for the docker container.
func RedisAddr() string {
	if addr := os.Getenv("ROGUE_DHCP_TEST_REDIS_ADDR"); addr != "" {
		return addr
	}
	ip := redisContainerIP()
	if ip == "" {
		return ""
	}
	return ip + ":6379"
}

func redisContainerIP() string {
	out, err := exec.Command("docker", "inspect",
		"--format", "{{range .NetworkSettings.Networks}}{{.IPAddress}}{{end}}",
		"rogue-dhcp-test-redis").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// SkipIfNoRedis skips the test unless the test Redis answers PING, and
// returns its address.
func SkipIfNoRedis(t *testing.T) string {
	t.Helper()

	addr := RedisAddr()
	if addr == "" {
		t.Skip("test Redis not available: set ROGUE_DHCP_TEST_REDIS_ADDR or start rogue-dhcp-test-redis")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("test Redis not reachable at %s: %v", addr, err)
	}
	return addr
}

// Client returns a client on db 0 that is closed when the test ends.
func Client(t *testing.T, addr string) *redis.Client {
	t.Helper()
	c := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { c.Close() })
	return c
}

// TempKey returns a key unique to the test, deleted before and after it.
func TempKey(t *testing.T, c *redis.Client) string {
	t.Helper()
	key := "rogue-dhcp:test:" + t.Name()
	c.Del(context.Background(), key)
	t.Cleanup(func() { c.Del(context.Background(), key) })
	return key
}
