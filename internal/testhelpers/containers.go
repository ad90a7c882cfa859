//go:build integration

// Package testhelpers starts throwaway database containers for integration
// tests. Each helper seeds test_table(id, name) and returns a pool config
// pointing at the container.
package testhelpers

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/go-sql-driver/mysql" // database/sql driver for seeding
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/koustreak/multidatasource/internal/database"
)

const (
	postgresImage = "postgres:16-alpine"
	mysqlImage    = "mysql:8.4"

	user     = "reader"
	password = "test_password"

	postgresPort nat.Port = "5432/tcp"
	mysqlPort    nat.Port = "3306/tcp"
)

// Row is one seeded test_table row.
type Row struct {
	ID   int
	Name string
}

// SeedRows returns n rows named row-1 … row-n.
func SeedRows(n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{ID: i + 1, Name: fmt.Sprintf("row-%d", i+1)}
	}
	return rows
}

// Postgres starts a PostgreSQL container holding rows and returns its config.
func Postgres(t *testing.T, dbName string, rows []Row) *database.Config {
	t.Helper()
	skipShort(t)
	ctx := context.Background()

	container := start(t, testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{string(postgresPort)},
		Env: map[string]string{
			"POSTGRES_DB":       dbName,
			"POSTGRES_USER":     user,
			"POSTGRES_PASSWORD": password,
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	})

	host, port := endpoint(t, container, postgresPort)
	cfg := &database.Config{
		Driver:   database.DriverPostgres,
		DSN:      fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, dbName),
		MaxConns: 4,
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		t.Fatalf("connect to postgres container: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, `CREATE TABLE test_table (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`); err != nil {
		t.Fatalf("create test_table: %v", err)
	}
	for _, r := range rows {
		if _, err := pool.Exec(ctx, `INSERT INTO test_table (id, name) VALUES ($1, $2)`, r.ID, r.Name); err != nil {
			t.Fatalf("seed test_table: %v", err)
		}
	}

	return cfg
}

// MySQL starts a MySQL container holding rows and returns its config.
func MySQL(t *testing.T, dbName string, rows []Row) *database.Config {
	t.Helper()
	skipShort(t)
	ctx := context.Background()

	container := start(t, testcontainers.ContainerRequest{
		Image:        mysqlImage,
		ExposedPorts: []string{string(mysqlPort)},
		Env: map[string]string{
			"MYSQL_DATABASE":      dbName,
			"MYSQL_USER":          user,
			"MYSQL_PASSWORD":      password,
			"MYSQL_ROOT_PASSWORD": password,
		},
		WaitingFor: wait.ForLog("ready for connections").
			WithOccurrence(2).
			WithStartupTimeout(120 * time.Second),
	})

	host, port := endpoint(t, container, mysqlPort)
	cfg := &database.Config{
		Driver:   database.DriverMySQL,
		DSN:      fmt.Sprintf("%s:%s@tcp(%s:%s)/%s", user, password, host, port, dbName),
		MaxConns: 4,
	}

	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		t.Fatalf("connect to mysql container: %v", err)
	}
	defer db.Close()

	// The server may still be finishing its restart after the second log line.
	var pingErr error
	for i := 0; i < 20; i++ {
		if pingErr = db.PingContext(ctx); pingErr == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if pingErr != nil {
		t.Fatalf("mysql container not reachable: %v", pingErr)
	}

	if _, err := db.ExecContext(ctx, "CREATE TABLE test_table (id INT PRIMARY KEY, name VARCHAR(64) NOT NULL)"); err != nil {
		t.Fatalf("create test_table: %v", err)
	}
	for _, r := range rows {
		if _, err := db.ExecContext(ctx, "INSERT INTO test_table (id, name) VALUES (?, ?)", r.ID, r.Name); err != nil {
			t.Fatalf("seed test_table: %v", err)
		}
	}

	return cfg
}

func skipShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}
}

func start(t *testing.T, req testcontainers.ContainerRequest) testcontainers.Container {
	t.Helper()

	container, err := testcontainers.GenericContainer(context.Background(), testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start %s container: %v", req.Image, err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate %s container: %v", req.Image, err)
		}
	})
	return container
}

func endpoint(t *testing.T, c testcontainers.Container, port nat.Port) (string, string) {
	t.Helper()
	ctx := context.Background()

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, port)
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	return host, mapped.Port()
}
