package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/doorstep-banking/internal/domain/agent"
	"github.com/doorstep-banking/internal/domain/shared"
)

const agentsNS = "doorstep.agents"

func sampleAgent(t *testing.T) *agent.Agent {
	t.Helper()
	a, err := agent.NewAgent("user-ravi", "Ravi", "90000 00001", time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return a
}

func TestAgentRepository_Create(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("Success", func(mt *mtest.T) {
		repo := NewAgentRepository(testLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		assert.NoError(mt, repo.Create(context.Background(), sampleAgent(mt.T)))
	})

	mt.Run("DuplicateUser", func(mt *mtest.T) {
		repo := NewAgentRepository(testLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error index: userId_1",
		}))

		err := repo.Create(context.Background(), sampleAgent(mt.T))
		assert.ErrorAs(mt, err, &agent.ErrDuplicateUserID{})
	})
}

func TestAgentRepository_GetByID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("Found", func(mt *mtest.T) {
		repo := NewAgentRepository(testLogger(), mt.DB)
		want := sampleAgent(mt.T)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, agentsNS, mtest.FirstBatch, toDoc(mt.T, want)))

		got, err := repo.GetByID(context.Background(), want.ID)
		require.NoError(mt, err)
		assert.Equal(mt, "9000000001", got.Phone)
		assert.Equal(mt, int64(1), got.Version)
		assert.True(mt, got.IsActive)
	})

	mt.Run("NotFound", func(mt *mtest.T) {
		repo := NewAgentRepository(testLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, agentsNS, mtest.FirstBatch))

		_, err := repo.GetByID(context.Background(), "missing")
		assert.ErrorIs(mt, err, shared.NotFoundError{Resource: "Agent"})
	})
}

func TestAgentRepository_Update(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("AdvancesVersion", func(mt *mtest.T) {
		repo := NewAgentRepository(testLogger(), mt.DB)
		a := sampleAgent(mt.T)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		require.NoError(mt, repo.Update(context.Background(), a))
		assert.Equal(mt, int64(2), a.Version)
	})

	mt.Run("StaleVersion", func(mt *mtest.T) {
		repo := NewAgentRepository(testLogger(), mt.DB)
		a := sampleAgent(mt.T)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, agentsNS, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(1)}}),
		)

		err := repo.Update(context.Background(), a)
		assert.ErrorIs(mt, err, agent.ErrConcurrentModification{AgentID: a.ID})
		assert.Equal(mt, int64(1), a.Version, "version untouched on conflict")
	})

	mt.Run("Missing", func(mt *mtest.T) {
		repo := NewAgentRepository(testLogger(), mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, agentsNS, mtest.FirstBatch),
		)

		err := repo.Update(context.Background(), sampleAgent(mt.T))
		assert.ErrorIs(mt, err, shared.NotFoundError{Resource: "Agent"})
	})
}

func TestAgentRepository_SetActive(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("ReturnsUpdated", func(mt *mtest.T) {
		repo := NewAgentRepository(testLogger(), mt.DB)
		a := sampleAgent(mt.T)
		a.IsActive = false
		a.Version = 2
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "value", Value: toDoc(mt.T, a)},
		})

		got, err := repo.SetActive(context.Background(), a.ID, false)
		require.NoError(mt, err)
		assert.False(mt, got.IsActive)
		assert.Equal(mt, int64(2), got.Version)
	})

	mt.Run("NotFound", func(mt *mtest.T) {
		repo := NewAgentRepository(testLogger(), mt.DB)
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "value", Value: nil},
		})

		_, err := repo.SetActive(context.Background(), "missing", true)
		assert.ErrorIs(mt, err, shared.NotFoundError{Resource: "Agent"})
	})
}

func TestTransactor_DisabledRunsDirectly(t *testing.T) {
	tx := NewTransactor(testLogger(), nil, false)

	called := false
	err := tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.False(t, tx.Atomic())
}
