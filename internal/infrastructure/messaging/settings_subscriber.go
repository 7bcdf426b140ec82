package messaging

import (
	"context"

	"go.uber.org/zap"

	"github.com/propbazaar/payments-service/internal/config"
	"github.com/propbazaar/payments-service/pkg/messaging"
)

// SettingsSubscriber listens for the admin "settings changed" signal and
// invalidates the cached gateway settings so rotated credentials take effect
// before the TTL expires.
type SettingsSubscriber struct {
	client  messaging.RedisClient
	channel string
	loader  *config.GatewaySettingsLoader
	logger  *zap.Logger
}

// NewSettingsSubscriber creates a new SettingsSubscriber.
func NewSettingsSubscriber(client messaging.RedisClient, channel string, loader *config.GatewaySettingsLoader, logger *zap.Logger) *SettingsSubscriber {
	return &SettingsSubscriber{
		client:  client,
		channel: channel,
		loader:  loader,
		logger:  logger,
	}
}

// Run consumes the channel until ctx is cancelled.
func (s *SettingsSubscriber) Run(ctx context.Context) error {
	messages, err := s.client.Subscribe(ctx, s.channel)
	if err != nil {
		return err
	}

	s.logger.Info("Listening for gateway settings changes",
		zap.String("channel", s.channel))

	for range messages {
		s.loader.Invalidate()
		s.logger.Info("Gateway settings cache invalidated")
	}
	return nil
}
