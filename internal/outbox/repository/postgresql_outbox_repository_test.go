package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/food-ordering-saga/internal/outbox/domain"
	"github.com/allisson/food-ordering-saga/internal/saga"
	"github.com/allisson/food-ordering-saga/internal/testutil"
)

func TestNewPostgreSQLOutboxMessageRepository(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewPostgreSQLOutboxMessageRepository(db)
	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

func TestPostgreSQLOutboxMessageRepository_CreateAndClaim(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLOutboxMessageRepository(db)
	ctx := context.Background()

	sagaID := uuid.Must(uuid.NewV7())
	message := domain.New(sagaID, saga.MessageTypePaymentRequest, `{"price":"200.00"}`)

	err := repo.Create(ctx, message)
	require.NoError(t, err)

	claimed, err := repo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, message.ID, claimed[0].ID)
	assert.Equal(t, sagaID, claimed[0].SagaID)
	assert.Equal(t, saga.MessageTypePaymentRequest, claimed[0].Type)
	assert.JSONEq(t, message.Payload, claimed[0].Payload)
	assert.Equal(t, domain.OutboxMessageStatusStarted, claimed[0].Status)
	assert.Equal(t, 0, claimed[0].Retries)
	assert.Nil(t, claimed[0].LastError)
	assert.Nil(t, claimed[0].ProcessedAt)
}

func TestPostgreSQLOutboxMessageRepository_ClaimPending_SkipsFinished(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLOutboxMessageRepository(db)
	ctx := context.Background()

	pending := domain.New(uuid.Must(uuid.NewV7()), saga.MessageTypePaymentRequest, `{}`)
	require.NoError(t, repo.Create(ctx, pending))

	completed := domain.New(uuid.Must(uuid.NewV7()), saga.MessageTypePaymentResponse, `{}`)
	now := time.Now()
	completed.Status = domain.OutboxMessageStatusCompleted
	completed.ProcessedAt = &now
	require.NoError(t, repo.Create(ctx, completed))

	claimed, err := repo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, pending.ID, claimed[0].ID)
}

func TestPostgreSQLOutboxMessageRepository_Update(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLOutboxMessageRepository(db)
	ctx := context.Background()

	sagaID := uuid.Must(uuid.NewV7())
	message := domain.New(sagaID, saga.MessageTypeApprovalRequest, `{}`)
	require.NoError(t, repo.Create(ctx, message))

	now := time.Now()
	lastError := "broker unavailable"
	message.Status = domain.OutboxMessageStatusFailed
	message.Retries = 5
	message.LastError = &lastError
	message.ProcessedAt = &now

	err := repo.Update(ctx, message)
	require.NoError(t, err)

	var (
		status      string
		retries     int
		gotError    sql.NullString
		processedAt sql.NullTime
	)
	err = db.QueryRow(`SELECT status, retries, last_error, processed_at FROM outbox_messages WHERE id = $1`,
		message.ID).Scan(&status, &retries, &gotError, &processedAt)
	require.NoError(t, err)
	assert.Equal(t, string(domain.OutboxMessageStatusFailed), status)
	assert.Equal(t, 5, retries)
	require.True(t, gotError.Valid)
	assert.Equal(t, lastError, gotError.String)
	assert.True(t, processedAt.Valid)

	// A failed row is terminal and never claimed again.
	claimed, err := repo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestPostgreSQLOutboxMessageRepository_DeleteFinishedBefore(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLOutboxMessageRepository(db)
	ctx := context.Background()

	finished := domain.New(uuid.Must(uuid.NewV7()), saga.MessageTypePaymentResponse, `{}`)
	finished.Status = domain.OutboxMessageStatusCompleted
	require.NoError(t, repo.Create(ctx, finished))

	pending := domain.New(uuid.Must(uuid.NewV7()), saga.MessageTypePaymentRequest, `{}`)
	require.NoError(t, repo.Create(ctx, pending))

	// Cutoff in the future: the finished row is older, the started row stays
	deleted, err := repo.DeleteFinishedBefore(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	claimed, err := repo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, pending.ID, claimed[0].ID)
}
