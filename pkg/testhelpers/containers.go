// Package testhelpers provides utilities for testing aihub components.
package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/ekaya-inc/aihub/pkg/database"
)

// PostgresImage is the PostgreSQL image used for integration tests.
const PostgresImage = "postgres:16-alpine"

// TestDB holds a shared test database container with migrations applied.
type TestDB struct {
	Container testcontainers.Container
	DB        *database.DB
	ConnStr   string
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error
)

// GetTestDB returns a shared PostgreSQL container for integration tests.
// The container is created once, migrated, and reused across all tests in the run.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = setupTestDB()
	})

	if sharedTestDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedTestDBErr)
	}

	return sharedTestDB
}

func setupTestDB() (*TestDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        PostgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "aihub_test",
			"POSTGRES_USER":     "aihub",
			"POSTGRES_PASSWORD": "test_password",
		},
		// The server logs readiness twice: once for the init run, once for the real start.
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	connStr := fmt.Sprintf("postgres://aihub:test_password@%s:%s/aihub_test?sslmode=disable",
		host, port.Port())

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            connStr,
		MaxConnections: 10,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}

	sqlDB, err := database.OpenSQL(connStr)
	if err != nil {
		return nil, err
	}
	defer sqlDB.Close()

	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &TestDB{
		Container: container,
		DB:        db,
		ConnStr:   connStr,
	}, nil
}

// CreateUser inserts a user with a unique email and returns its id.
func (tdb *TestDB) CreateUser(t *testing.T, role string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := tdb.DB.Exec(context.Background(),
		`INSERT INTO users (id, email, name, role) VALUES ($1, $2, $3, $4)`,
		id, id.String()+"@example.com", "Test User", role)
	if err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return id
}

// CreateLocation inserts a location with a unique name and returns its id.
func (tdb *TestDB) CreateLocation(t *testing.T, totalPeople int) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := tdb.DB.QueryRow(context.Background(),
		`INSERT INTO locations (name, total_people) VALUES ($1, $2) RETURNING id`,
		"Hub "+uuid.NewString(), totalPeople).Scan(&id)
	if err != nil {
		t.Fatalf("failed to create test location: %v", err)
	}
	return id
}

// CreateChallenge inserts an active challenge with the given window and returns its id.
func (tdb *TestDB) CreateChallenge(t *testing.T, createdBy uuid.UUID, start, end string) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := tdb.DB.QueryRow(context.Background(), `
		INSERT INTO challenges (title, description, start_date, end_date, status, created_by)
		VALUES ('Test challenge', 'A challenge for tests', $1::date, $2::date, 'active', $3)
		RETURNING id`,
		start, end, createdBy).Scan(&id)
	if err != nil {
		t.Fatalf("failed to create test challenge: %v", err)
	}
	return id
}
