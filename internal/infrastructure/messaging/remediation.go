package messaging

import (
	"context"

	"go.uber.org/zap"

	"github.com/propbazaar/payments-service/internal/domain/model"
	"github.com/propbazaar/payments-service/pkg/messaging"
)

// RemediationPublisher pushes activation failures onto a Redis channel so the
// admin console can surface them without polling the failures table.
type RemediationPublisher struct {
	client  messaging.RedisClient
	channel string
	logger  *zap.Logger
}

// NewRemediationPublisher creates a new RemediationPublisher.
func NewRemediationPublisher(client messaging.RedisClient, channel string, logger *zap.Logger) *RemediationPublisher {
	return &RemediationPublisher{
		client:  client,
		channel: channel,
		logger:  logger,
	}
}

// PublishActivationFailure publishes the failure record. A publish error is
// returned but the caller treats the database row as the source of truth.
func (p *RemediationPublisher) PublishActivationFailure(ctx context.Context, failure *model.ActivationFailure) error {
	if err := p.client.Publish(ctx, p.channel, failure); err != nil {
		p.logger.Warn("Failed to publish activation failure",
			zap.String("transaction_id", failure.TransactionID.String()),
			zap.Error(err))
		return err
	}
	return nil
}
