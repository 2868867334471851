package postgres

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Togather-Foundation/eventdesk/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// testDatabase is one postgres container shared by every test in the package.
type testDatabase struct {
	once sync.Once
	err  error
	pool *pgxpool.Pool
	url  string
}

var testDB testDatabase

func TestMain(m *testing.M) {
	code := m.Run()
	if testDB.pool != nil {
		testDB.pool.Close()
	}
	os.Exit(code)
}

// setupPostgres returns a migrated database with every table emptied.
func setupPostgres(t *testing.T) (*pgxpool.Pool, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	testDB.once.Do(func() { testDB.err = testDB.start() })
	require.NoError(t, testDB.err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_, err := testDB.pool.Exec(ctx, `TRUNCATE admin_verification_requests, tickets, events, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return testDB.pool, testDB.url
}

func (db *testDatabase) start() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("eventdesk"),
		postgres.WithUsername("eventdesk"),
		postgres.WithPassword("eventdesk_dev"),
		postgres.BasicWaitStrategies(),
		testcontainers.WithReuseByName("eventdesk-storage-db"),
	)
	if err != nil {
		return err
	}

	db.url, err = container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return err
	}

	// The wait strategy can report ready a moment before migrations connect.
	deadline := time.Now().Add(10 * time.Second)
	for {
		err = MigrateUp(db.url, "")
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		return err
	}

	db.pool, err = NewPool(ctx, config.DatabaseConfig{URL: db.url, MaxConnections: 5})
	return err
}

func insertTicket(t *testing.T, ctx context.Context, pool *pgxpool.Pool, eventID, status string) {
	t.Helper()
	_, err := pool.Exec(ctx, `INSERT INTO tickets (event_id, ticket_status) VALUES ($1, $2)`, eventID, status)
	require.NoError(t, err)
}
