package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) *Repository {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	testcontainers.CleanupContainer(t, pgContainer)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	creds := &Credentials{
		Host:              host,
		Port:              port.Int(),
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "./migrations",
	}

	repo, err := NewRepository(creds)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	require.NoError(t, repo.RunMigrations(creds))
	return repo
}

func testOrder() *Order {
	return &Order{
		ID:            uuid.NewString(),
		UserID:        "user-123",
		CartSnapshot:  []byte(`{"items":[],"total_amount":305000,"currency":"XAF"}`),
		Amount:        305000,
		Fee:           50,
		Total:         305050,
		Method:        "orange_money",
		TransactionID: "OM_1700000000000",
		Status:        OrderStatusCompleted,
	}
}

func TestCreateOrder_WritesOrderAndOutboxRow(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	order := testOrder()
	require.NoError(t, repo.CreateOrder(ctx, order, []byte(`{"order_id":"x"}`)))

	got, err := repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.UserID, got.UserID)
	assert.Equal(t, order.Total, got.Total)
	assert.Equal(t, order.TransactionID, got.TransactionID)
	assert.Equal(t, OrderStatusCompleted, got.Status)
	assert.JSONEq(t, string(order.CartSnapshot), string(got.CartSnapshot))
	assert.False(t, got.CreatedAt.IsZero())

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, order.ID, events[0].AggregateId)
	assert.Equal(t, EventOrderCompleted, events[0].EventType)
	assert.JSONEq(t, `{"order_id":"x"}`, string(events[0].Payload))
}

func TestCreateOrder_DuplicateIDRollsBackOutbox(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	order := testOrder()
	require.NoError(t, repo.CreateOrder(ctx, order, []byte(`{}`)))

	// Same primary key again: the whole transaction must fail, leaving a
	// single outbox row
	err := repo.CreateOrder(ctx, order, []byte(`{}`))
	require.Error(t, err)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestGetOrder_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.GetOrder(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestMarkEventAsProcessed(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateOrder(ctx, testOrder(), []byte(`{}`)))
	require.NoError(t, repo.CreateOrder(ctx, testOrder(), []byte(`{}`)))

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)

	require.NoError(t, repo.MarkEventAsProcessed(ctx, events[0].ID))

	remaining, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, events[1].ID, remaining[0].ID)
}

func TestGetUnprocessedEvents_RespectsLimit(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.CreateOrder(ctx, testOrder(), []byte(`{}`)))
	}

	events, err := repo.GetUnprocessedEvents(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestRepository_ContextCancellation(t *testing.T) {
	repo := setupTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(10 * time.Millisecond)

	_, err := repo.GetOrder(ctx, uuid.NewString())
	assert.Error(t, err)
}
