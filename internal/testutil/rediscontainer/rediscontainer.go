package rediscontainer

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/adeilh/spacedash/internal/testutil/dockerutil"
)

const (
	image         = "redis:7-alpine"
	containerName = "spacedash-cache-redis-test"
	hostPort      = "6390"
)

var (
	mu       sync.Mutex
	started  bool
	setupErr error
)

// Addr exposes the Redis host:port combination used by integration tests.
func Addr() string { return "127.0.0.1:" + hostPort }

// Setup runs the Redis container and waits until it answers RESP PING/PONG exchanges.
func Setup() error {
	mu.Lock()
	defer mu.Unlock()
	if started || setupErr != nil {
		return setupErr
	}
	if err := dockerutil.Ensure(); err != nil {
		setupErr = err
		return err
	}
	_ = dockerutil.Stop(containerName)
	if err := dockerutil.Run("run", "-d", "--rm", "--name", containerName, "-p", fmt.Sprintf("%s:6379", hostPort), image); err != nil {
		setupErr = err
		return err
	}
	if err := waitForRedis(Addr(), 10*time.Second); err != nil {
		setupErr = err
		return err
	}
	started = true
	return nil
}

// Teardown stops the Redis container if it is running.
func Teardown() error {
	mu.Lock()
	defer mu.Unlock()
	if !started {
		return setupErr
	}
	started = false
	return dockerutil.Stop(containerName)
}

func waitForRedis(addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	payload := []byte("*1\r\n$4\r\nPING\r\n")
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
		if err == nil {
			if _, err := conn.Write(payload); err == nil {
				_ = conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
				line, err := bufio.NewReader(conn).ReadString('\n')
				if err == nil && strings.Contains(line, "PONG") {
					_ = conn.Close()
					return nil
				}
			}
			_ = conn.Close()
		}
		time.Sleep(100 * time.Millisecond)
	}
	return errors.New("redis container did not respond to ping")
}
