// Package online is the redirect stub for the generic hosted checkout
// channel. The external integration behind the redirect is a collaborator;
// only the hand-off URL is produced here.
package online

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/propbazaar/payments-service/internal/config"
	"github.com/propbazaar/payments-service/internal/domain/entity"
	domainErrors "github.com/propbazaar/payments-service/internal/domain/errors"
	"github.com/propbazaar/payments-service/internal/domain/gateway"
)

// Gateway builds redirect URLs for the generic online channel.
type Gateway struct {
	settings *config.GatewaySettingsLoader
	logger   *zap.Logger
}

// NewGateway creates the online redirect adapter.
func NewGateway(settings *config.GatewaySettingsLoader, logger *zap.Logger) *Gateway {
	return &Gateway{settings: settings, logger: logger}
}

// Method implements gateway.Gateway.
func (g *Gateway) Method() entity.PaymentMethod {
	return entity.PaymentMethodOnline
}

// Initiate implements gateway.Gateway.
func (g *Gateway) Initiate(_ context.Context, req *gateway.InitiateRequest) (*gateway.InitiationResult, error) {
	settings, err := g.settings.Get()
	if err != nil {
		return nil, err
	}
	if !settings.Online.Enabled {
		return nil, domainErrors.ErrGatewayDisabled
	}

	return &gateway.InitiationResult{
		GatewayReference: req.GatewayReference,
		RedirectURL: fmt.Sprintf("%s?ref=%s&amount=%d",
			settings.Online.RedirectBaseURL, req.GatewayReference, req.AmountRupees),
	}, nil
}

// Status implements gateway.Gateway. The generic channel has no status API;
// confirmation arrives through admin review.
func (g *Gateway) Status(_ context.Context, _ string) (*gateway.GatewayStatus, error) {
	return &gateway.GatewayStatus{State: gateway.StatePending}, nil
}
