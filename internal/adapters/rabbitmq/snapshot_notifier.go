package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"oikotie-parser-service/internal/contextkeys"
	"oikotie-parser-service/internal/core/domain"
	"oikotie-parser-service/internal/core/port"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// SnapshotSavedDTO - тело сообщения о сохраненном снимке
type SnapshotSavedDTO struct {
	RunID          uuid.UUID `json:"run_id"`
	Parser         string    `json:"parser"`
	FilePath       string    `json:"file_path"`
	RequestedCount int       `json:"requested_count"`
	CollectedCount int       `json:"collected_count"`
	Batches        int       `json:"batches"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

func toSnapshotSavedDTO(run domain.RunRecord) SnapshotSavedDTO {
	return SnapshotSavedDTO{
		RunID:          run.RunID,
		Parser:         run.ParserName,
		FilePath:       run.FilePath,
		RequestedCount: run.RequestedCount,
		CollectedCount: run.CollectedCount,
		Batches:        run.Batches,
		StartedAt:      run.StartedAt.UTC(),
		FinishedAt:     run.FinishedAt.UTC(),
	}
}

// publisher - то, что нужно адаптеру от rabbitmq_producer.Publisher
type publisher interface {
	Publish(ctx context.Context, routingKey string, msg amqp.Publishing) error
}

type SnapshotNotifierAdapter struct {
	producer   publisher
	routingKey string
}

func NewSnapshotNotifierAdapter(producer publisher, routingKey string) (*SnapshotNotifierAdapter, error) {
	if producer == nil {
		return nil, fmt.Errorf("rabbitmq adapter: producer cannot be nil")
	}
	if routingKey == "" {
		return nil, fmt.Errorf("rabbitmq adapter: routingKey cannot be empty")
	}
	return &SnapshotNotifierAdapter{
		producer:   producer,
		routingKey: routingKey,
	}, nil
}

func (a *SnapshotNotifierAdapter) NotifySnapshotSaved(ctx context.Context, run domain.RunRecord) error {
	logger := contextkeys.LoggerFromContext(ctx)
	adapterLogger := logger.WithFields(port.Fields{
		"component":   "SnapshotNotifierAdapter",
		"routing_key": a.routingKey,
	})

	body, err := json.Marshal(toSnapshotSavedDTO(run))
	if err != nil {
		return fmt.Errorf("rabbitmq adapter: failed to marshal snapshot event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		MessageId:    run.RunID.String(),
	}

	// Таймаут на публикацию, если контекст его не задает
	publishCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	adapterLogger.Debug("Publishing snapshot saved event", port.Fields{"file_path": run.FilePath})
	if err := a.producer.Publish(publishCtx, a.routingKey, msg); err != nil {
		adapterLogger.Error("Failed to publish snapshot saved event", err, nil)
		return fmt.Errorf("rabbitmq adapter: failed to publish snapshot event for run %s: %w", run.RunID, err)
	}

	adapterLogger.Info("Snapshot saved event published", nil)
	return nil
}
