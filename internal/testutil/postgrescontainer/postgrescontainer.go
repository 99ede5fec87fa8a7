package postgrescontainer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"github.com/adeilh/spacedash/internal/testutil/dockerutil"
)

const (
	image         = "postgres:16-alpine"
	containerName = "spacedash-postgres-test"
	hostPort      = "55432"
	user          = "spacedash"
	password      = "secret"
	dbName        = "spacedash_test"
)

var (
	mu       sync.Mutex
	started  bool
	setupErr error
)

// Addr returns host:port for connecting to the test Postgres instance.
func Addr() string { return "127.0.0.1:" + hostPort }

// DSN returns a lib/pq formatted connection string.
func DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", user, password, Addr(), dbName)
}

// Setup launches the Postgres container if it isn't already running.
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
	err := dockerutil.Run(
		"run", "-d", "--rm",
		"--name", containerName,
		"-p", fmt.Sprintf("%s:5432", hostPort),
		"-e", "POSTGRES_USER="+user,
		"-e", "POSTGRES_PASSWORD="+password,
		"-e", "POSTGRES_DB="+dbName,
		image,
	)
	if err != nil {
		setupErr = err
		return err
	}
	if err := waitForPostgres(DSN(), 20*time.Second); err != nil {
		setupErr = err
		return err
	}
	started = true
	return nil
}

// Teardown stops the container launched by Setup.
func Teardown() error {
	mu.Lock()
	defer mu.Unlock()
	if !started {
		return setupErr
	}
	started = false
	return dockerutil.Stop(containerName)
}

func waitForPostgres(dsn string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		err := func() error {
			db, err := sql.Open("postgres", dsn)
			if err != nil {
				return err
			}
			defer db.Close()
			return db.PingContext(ctx)
		}()
		cancel()
		if err == nil {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return errors.New("postgres container did not become ready in time")
}
