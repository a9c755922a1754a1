package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/doorstep-banking/internal/domain/event"
	"github.com/doorstep-banking/internal/domain/shared"
	"github.com/doorstep-banking/internal/platform/messaging/producers"
	"github.com/doorstep-banking/internal/sync_processor/service"
)

const reasonDecodeFailed = "decode_failed"

// ServiceEventHandler reconciles the bound agent for every lifecycle event that can affect it
type ServiceEventHandler struct {
	reconciler service.Reconciler
	producer   producers.DeadLetterPublisher
	logger     *slog.Logger
}

// NewServiceEventHandler creates a new handler. producer may be nil when no DLQ is configured.
func NewServiceEventHandler(
	logger *slog.Logger,
	reconciler service.Reconciler,
	producer producers.DeadLetterPublisher,
) *ServiceEventHandler {
	return &ServiceEventHandler{
		reconciler: reconciler,
		producer:   producer,
		logger:     logger,
	}
}

// HandleMessage processes one Kafka message. A nil return commits the offset.
func (h *ServiceEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var evt event.ServiceEvent
	if err := json.Unmarshal(value, &evt); err != nil || evt.ServiceID == "" {
		if err == nil {
			err = errors.New("event has no service_id")
		}
		return h.parkUndecodable(ctx, key, value, err)
	}

	logger := h.logger.With("service_id", evt.ServiceID, "event_type", string(evt.Type))
	if id := shared.CorrelationID(ctx); id != "" {
		logger = logger.With("correlation_id", id)
	} else if evt.CorrelationID != "" {
		ctx = shared.WithCorrelationID(ctx, evt.CorrelationID)
		logger = logger.With("correlation_id", evt.CorrelationID)
	}

	if !evt.AffectsAgent() {
		logger.Debug("Event does not touch an agent, skipping")
		return nil
	}

	changed, err := h.reconciler.ResyncRequest(ctx, evt.ServiceID)
	if err != nil {
		if errors.Is(err, shared.NotFoundError{}) {
			// deleted after the event was published
			logger.Info("Service or agent no longer exists, skipping", "error", err)
			return nil
		}
		logger.Error("Failed to reconcile agent", "agent_id", evt.AgentID, "error", err)
		return fmt.Errorf("reconciling service %s failed: %w", evt.ServiceID, err)
	}

	if changed {
		logger.Info("Agent repaired from service event", "agent_id", evt.AgentID, "status", string(evt.Status))
	} else {
		logger.Debug("Agent already in sync", "agent_id", evt.AgentID)
	}
	return nil
}

// parkUndecodable sends the raw message to the DLQ. The offset is only
// committed when the DLQ accepted it.
func (h *ServiceEventHandler) parkUndecodable(ctx context.Context, key, value []byte, cause error) error {
	h.logger.Error("Failed to decode service event from Kafka message",
		"error", cause,
		"message_key", string(key),
	)

	if h.producer != nil {
		reason := fmt.Sprintf("%s: %s", reasonDecodeFailed, cause.Error())
		if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, reason); dlqErr != nil {
			if !errors.Is(dlqErr, producers.ErrDLQDisabled) {
				h.logger.Error("Failed to publish message to DLQ after decode error",
					"dlq_error", dlqErr,
					"message_key", string(key),
				)
				return fmt.Errorf("failed to decode message value: %w", cause)
			}
		} else {
			return nil
		}
	}

	// no DLQ: retrying a malformed message can never succeed
	h.logger.Warn("Dropping undecodable service event", "message_key", string(key))
	return nil
}
