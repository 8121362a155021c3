package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/persistence"
	"github.com/weftwork/weft/pkg/persistence/postgresql"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	// Drop tables in reverse dependency order (children first, parents last)
	for _, table := range []string{"execution_logs", "executions", "credentials", "workflows", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("weft_test"),
			postgres.WithUsername("weft"),
			postgres.WithPassword("weft"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx, databaseURL
}

func createTestWorkflow(ownerID string) *models.Workflow {
	now := time.Now().UTC()

	return &models.Workflow{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Name:        "Order notifications",
		Description: "Email on new orders",
		Nodes: []*models.Node{
			{ID: "trigger-1", Name: "Start", Type: models.NodeTypeTrigger, Kind: models.KindWebhook},
			{
				ID:         "email-1",
				Name:       "Send email",
				Type:       models.NodeTypeAction,
				Kind:       models.KindEmail,
				Parameters: map[string]any{"to": "ops@example.com", "subject": "{{Start.body.orderId}}"},
			},
		},
		Connections: []*models.Connection{
			{ID: "c1", Source: "trigger-1", Target: "email-1"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func createTestExecution(t *testing.T, ctx context.Context, p *postgresql.Persistence, workflow *models.Workflow) *models.Execution {
	t.Helper()

	execution := &models.Execution{
		ID:          uuid.New().String(),
		WorkflowID:  workflow.ID,
		OwnerID:     workflow.OwnerID,
		Status:      models.ExecutionStatusPending,
		Trigger:     models.TriggerTypeWebhook,
		Nodes:       workflow.Nodes,
		Connections: workflow.Connections,
		TriggerData: map[string]any{"body": map[string]any{"orderId": "A-17"}},
		StartedAt:   time.Now().UTC(),
	}

	require.NoError(t, p.CreateExecution(ctx, execution))

	return execution
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		err := db.Close()
		require.NoError(t, err)
	}()

	var exists bool

	for _, table := range []string{"workflows", "executions", "execution_logs", "credentials", "schema_migrations"} {
		err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = $1)`, table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "%s table should exist", table)
	}

	var version int

	err = db.QueryRowContext(ctx, "SELECT version FROM schema_migrations WHERE version = 1").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestPersistence_SaveAndRetrieveWorkflow(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	workflow := createTestWorkflow("owner-1")
	require.NoError(t, p.SaveWorkflow(ctx, workflow))

	loaded, err := p.WorkflowByID(ctx, workflow.ID, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.Name, loaded.Name)
	require.Len(t, loaded.Nodes, 2)
	assert.Equal(t, models.KindEmail, loaded.Nodes[1].Kind)
	assert.Equal(t, "{{Start.body.orderId}}", loaded.Nodes[1].Parameters["subject"])
	require.Len(t, loaded.Connections, 1)

	// Other owners never see it.
	_, err = p.WorkflowByID(ctx, workflow.ID, "owner-2")
	require.ErrorIs(t, err, persistence.ErrWorkflowNotFound)

	// Upsert updates in place.
	workflow.Name = "Renamed"
	require.NoError(t, p.SaveWorkflow(ctx, workflow))

	loaded, err = p.WorkflowByID(ctx, workflow.ID, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", loaded.Name)
}

func TestPersistence_DeleteWorkflowIsSoft(t *testing.T) {
	p, ctx, databaseURL := setupTestDB(t)

	workflow := createTestWorkflow("owner-1")
	require.NoError(t, p.SaveWorkflow(ctx, workflow))

	require.NoError(t, p.DeleteWorkflow(ctx, workflow.ID, "owner-1"))

	_, err := p.WorkflowByID(ctx, workflow.ID, "owner-1")
	require.ErrorIs(t, err, persistence.ErrWorkflowNotFound)

	err = p.DeleteWorkflow(ctx, workflow.ID, "owner-1")
	require.ErrorIs(t, err, persistence.ErrWorkflowNotFound)

	// The row survives with deleted_at set.
	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		err := db.Close()
		require.NoError(t, err)
	}()

	var deletedAt sql.NullTime

	err = db.QueryRowContext(ctx, "SELECT deleted_at FROM workflows WHERE id = $1", workflow.ID).Scan(&deletedAt)
	require.NoError(t, err)
	assert.True(t, deletedAt.Valid)
}

func TestPersistence_ClaimIsAtomic(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	workflow := createTestWorkflow("owner-1")
	require.NoError(t, p.SaveWorkflow(ctx, workflow))

	execution := createTestExecution(t, ctx, p, workflow)

	leaseUntil := time.Now().UTC().Add(5 * time.Minute)

	const workers = 8

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)

	for i := range workers {
		wg.Add(1)

		go func(worker int) {
			defer wg.Done()

			claimed, err := p.Claim(ctx, execution.ID, uuid.New().String(), leaseUntil)
			assert.NoError(t, err)

			if claimed {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}

	wg.Wait()

	assert.Equal(t, 1, wins, "exactly one worker should win the claim")

	claimable, err := p.ListClaimable(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, claimable)
}

func TestPersistence_ExpiredLeaseIsReclaimable(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	workflow := createTestWorkflow("owner-1")
	require.NoError(t, p.SaveWorkflow(ctx, workflow))

	execution := createTestExecution(t, ctx, p, workflow)

	claimed, err := p.Claim(ctx, execution.ID, "worker-a", time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)
	require.True(t, claimed)

	claimable, err := p.ListClaimable(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimable, 1)
	assert.Equal(t, execution.ID, claimable[0].ID)

	claimed, err = p.Claim(ctx, execution.ID, "worker-b", time.Now().UTC().Add(5*time.Minute))
	require.NoError(t, err)
	assert.True(t, claimed)

	loaded, err := p.ExecutionByID(ctx, execution.ID, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "worker-b", loaded.WorkerID)
	assert.Equal(t, models.ExecutionStatusRunning, loaded.Status)
}

func TestPersistence_FinishExecution(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	workflow := createTestWorkflow("owner-1")
	require.NoError(t, p.SaveWorkflow(ctx, workflow))

	execution := createTestExecution(t, ctx, p, workflow)

	claimed, err := p.Claim(ctx, execution.ID, "worker-a", time.Now().UTC().Add(5*time.Minute))
	require.NoError(t, err)
	require.True(t, claimed)

	now := time.Now().UTC()
	execution.Status = models.ExecutionStatusFailed
	execution.Error = "bot token is required"
	execution.CompletedAt = &now

	require.NoError(t, p.FinishExecution(ctx, execution))

	loaded, err := p.ExecutionByID(ctx, execution.ID, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, loaded.Status)
	assert.Equal(t, "bot token is required", loaded.Error)
	assert.Nil(t, loaded.LeaseExpiresAt)
	require.NotNil(t, loaded.CompletedAt)

	// The snapshot survives the roundtrip.
	require.Len(t, loaded.Nodes, 2)
	assert.Equal(t, "A-17", loaded.TriggerData["body"].(map[string]any)["orderId"])

	claimable, err := p.ListClaimable(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, claimable)
}

func TestPersistence_ExecutionLogs(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	workflow := createTestWorkflow("owner-1")
	require.NoError(t, p.SaveWorkflow(ctx, workflow))

	execution := createTestExecution(t, ctx, p, workflow)

	base := time.Now().UTC()

	first := &models.ExecutionLog{
		ID:          uuid.New().String(),
		ExecutionID: execution.ID,
		NodeID:      "email-1",
		NodeName:    "Send email",
		Status:      models.LogStatusCompleted,
		InputData:   []any{map[string]any{"message": "webhook received"}},
		OutputData:  map[string]any{"success": true, "messageId": "re_123"},
		Timestamp:   base,
	}
	second := &models.ExecutionLog{
		ID:          uuid.New().String(),
		ExecutionID: execution.ID,
		NodeID:      "telegram-1",
		NodeName:    "Notify",
		Status:      models.LogStatusFailed,
		Error:       "chat id is invalid",
		Timestamp:   base.Add(time.Second),
	}

	require.NoError(t, p.AppendLog(ctx, first))
	require.NoError(t, p.AppendLog(ctx, second))

	entries, err := p.LogsByExecution(ctx, execution.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "email-1", entries[0].NodeID)
	assert.Equal(t, models.LogStatusCompleted, entries[0].Status)
	assert.Equal(t, map[string]any{"success": true, "messageId": "re_123"}, entries[0].OutputData)
	require.Len(t, entries[0].InputData, 1)

	assert.Equal(t, models.LogStatusFailed, entries[1].Status)
	assert.Equal(t, "chat id is invalid", entries[1].Error)
	assert.Nil(t, entries[1].OutputData)
}

func TestPersistence_Credentials(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	credential := &models.Credential{
		ID:        uuid.New().String(),
		OwnerID:   "owner-1",
		Name:      "Telegram bot",
		Type:      models.CredentialTypeTelegram,
		Data:      "deadbeefcafe",
		CreatedAt: time.Now().UTC(),
	}

	require.NoError(t, p.SaveCredential(ctx, credential))

	loaded, err := p.CredentialByID(ctx, credential.ID, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "deadbeefcafe", loaded.Data)
	assert.Equal(t, models.CredentialTypeTelegram, loaded.Type)

	_, err = p.CredentialByID(ctx, credential.ID, "owner-2")
	require.ErrorIs(t, err, persistence.ErrCredentialNotFound)

	owned, err := p.CredentialsByOwner(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, owned, 1)
}
