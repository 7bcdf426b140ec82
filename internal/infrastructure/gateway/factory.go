// Package gatewayfactory wires one adapter per payment channel, mirroring the
// provider factory pattern: construction takes the settings loader so no
// adapter holds stale credentials.
package gatewayfactory

import (
	"go.uber.org/zap"

	"github.com/propbazaar/payments-service/internal/config"
	"github.com/propbazaar/payments-service/internal/domain/entity"
	domainErrors "github.com/propbazaar/payments-service/internal/domain/errors"
	"github.com/propbazaar/payments-service/internal/domain/gateway"
	"github.com/propbazaar/payments-service/internal/infrastructure/gateway/manual"
	"github.com/propbazaar/payments-service/internal/infrastructure/gateway/online"
	"github.com/propbazaar/payments-service/internal/infrastructure/gateway/phonepe"
)

// Registry resolves payment methods to their gateway adapters.
type Registry struct {
	gateways map[entity.PaymentMethod]gateway.Gateway
}

// NewRegistry constructs all channel adapters around one settings loader.
func NewRegistry(settings *config.GatewaySettingsLoader, logger *zap.Logger) *Registry {
	adapters := []gateway.Gateway{
		manual.NewUPIGateway(settings, logger),
		manual.NewBankTransferGateway(settings, logger),
		online.NewGateway(settings, logger),
		phonepe.NewClient(settings, logger),
	}

	gateways := make(map[entity.PaymentMethod]gateway.Gateway, len(adapters))
	for _, adapter := range adapters {
		gateways[adapter.Method()] = adapter
	}

	return &Registry{gateways: gateways}
}

// Get returns the adapter for a method.
func (r *Registry) Get(method entity.PaymentMethod) (gateway.Gateway, error) {
	adapter, ok := r.gateways[method]
	if !ok {
		return nil, domainErrors.ErrGatewayDisabled
	}
	return adapter, nil
}
