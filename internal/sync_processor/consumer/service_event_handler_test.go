package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/doorstep-banking/internal/domain/event"
	"github.com/doorstep-banking/internal/domain/servicerequest"
	"github.com/doorstep-banking/internal/domain/shared"
	"github.com/doorstep-banking/internal/platform/messaging/producers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) ResyncRequest(ctx context.Context, serviceID string) (bool, error) {
	args := m.Called(ctx, serviceID)
	return args.Bool(0), args.Error(1)
}

type MockDLQProducer struct {
	mock.Mock
}

func (m *MockDLQProducer) PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error {
	args := m.Called(ctx, key, originalMessageValue, reason)
	return args.Error(0)
}

func (m *MockDLQProducer) Close() error {
	return m.Called().Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func encodeEvent(t *testing.T, evt *event.ServiceEvent) []byte {
	t.Helper()
	b, err := json.Marshal(evt)
	require.NoError(t, err)
	return b
}

func completedEvent() *event.ServiceEvent {
	return event.New(event.TypeStatusChanged, &servicerequest.ServiceRequest{
		ID:            "svc-1",
		Status:        servicerequest.StatusCompleted,
		AssignedAgent: "agent-1",
	}, servicerequest.StatusInProgress, "user-agent-1")
}

func TestServiceEventHandler_HandleMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("ReconcilesBoundAgent", func(t *testing.T) {
		reconciler := new(MockReconciler)
		handler := NewServiceEventHandler(testLogger(), reconciler, nil)
		reconciler.On("ResyncRequest", mock.Anything, "svc-1").Return(true, nil).Once()

		err := handler.HandleMessage(ctx, []byte("svc-1"), encodeEvent(t, completedEvent()))
		require.NoError(t, err)
		reconciler.AssertExpectations(t)
	})

	t.Run("CarriesEventCorrelationID", func(t *testing.T) {
		reconciler := new(MockReconciler)
		handler := NewServiceEventHandler(testLogger(), reconciler, nil)
		evt := completedEvent()
		evt.CorrelationID = "corr-evt"
		reconciler.On("ResyncRequest", mock.MatchedBy(func(c context.Context) bool {
			return shared.CorrelationID(c) == "corr-evt"
		}), "svc-1").Return(false, nil).Once()

		require.NoError(t, handler.HandleMessage(ctx, []byte("svc-1"), encodeEvent(t, evt)))
		reconciler.AssertExpectations(t)
	})

	t.Run("SkipsEventsWithoutAgent", func(t *testing.T) {
		reconciler := new(MockReconciler)
		handler := NewServiceEventHandler(testLogger(), reconciler, nil)
		created := event.New(event.TypeCreated, &servicerequest.ServiceRequest{
			ID:     "svc-2",
			Status: servicerequest.StatusApprovalPending,
		}, "", "")

		require.NoError(t, handler.HandleMessage(ctx, []byte("svc-2"), encodeEvent(t, created)))
		reconciler.AssertNotCalled(t, "ResyncRequest", mock.Anything, mock.Anything)
	})

	t.Run("DeletedServiceIsSkipped", func(t *testing.T) {
		reconciler := new(MockReconciler)
		handler := NewServiceEventHandler(testLogger(), reconciler, nil)
		reconciler.On("ResyncRequest", mock.Anything, "svc-1").
			Return(false, shared.NotFoundError{Resource: "Service", ID: "svc-1"}).Once()

		assert.NoError(t, handler.HandleMessage(ctx, []byte("svc-1"), encodeEvent(t, completedEvent())))
	})

	t.Run("ReconcileFailureIsRetried", func(t *testing.T) {
		reconciler := new(MockReconciler)
		handler := NewServiceEventHandler(testLogger(), reconciler, nil)
		storeErr := shared.DependencyError{Op: "update agent", Err: errors.New("timeout")}
		reconciler.On("ResyncRequest", mock.Anything, "svc-1").Return(false, storeErr).Once()

		err := handler.HandleMessage(ctx, []byte("svc-1"), encodeEvent(t, completedEvent()))
		assert.ErrorIs(t, err, shared.DependencyError{})
	})
}

func TestServiceEventHandler_Undecodable(t *testing.T) {
	ctx := context.Background()
	garbage := []byte(`{"type":`)

	t.Run("ParkedInDLQ", func(t *testing.T) {
		reconciler := new(MockReconciler)
		dlq := new(MockDLQProducer)
		handler := NewServiceEventHandler(testLogger(), reconciler, dlq)
		dlq.On("PublishToDLQ", ctx, "svc-9", garbage, mock.MatchedBy(func(reason string) bool {
			return strings.HasPrefix(reason, "decode_failed: ")
		})).Return(nil).Once()

		assert.NoError(t, handler.HandleMessage(ctx, []byte("svc-9"), garbage))
		dlq.AssertExpectations(t)
		reconciler.AssertNotCalled(t, "ResyncRequest", mock.Anything, mock.Anything)
	})

	t.Run("MissingServiceID", func(t *testing.T) {
		dlq := new(MockDLQProducer)
		handler := NewServiceEventHandler(testLogger(), new(MockReconciler), dlq)
		value := []byte(`{"type":"service.status_changed","agent_id":"agent-1"}`)
		dlq.On("PublishToDLQ", ctx, "k", value, mock.Anything).Return(nil).Once()

		assert.NoError(t, handler.HandleMessage(ctx, []byte("k"), value))
		dlq.AssertExpectations(t)
	})

	t.Run("DLQFailureKeepsOffset", func(t *testing.T) {
		dlq := new(MockDLQProducer)
		handler := NewServiceEventHandler(testLogger(), new(MockReconciler), dlq)
		dlq.On("PublishToDLQ", ctx, "svc-9", garbage, mock.Anything).Return(errors.New("broker down")).Once()

		assert.Error(t, handler.HandleMessage(ctx, []byte("svc-9"), garbage))
	})

	t.Run("DisabledDLQDrops", func(t *testing.T) {
		var disabled *producers.DLQProducer
		handler := NewServiceEventHandler(testLogger(), new(MockReconciler), disabled)

		assert.NoError(t, handler.HandleMessage(ctx, []byte("svc-9"), garbage))
	})
}
