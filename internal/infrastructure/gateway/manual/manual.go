// Package manual implements the self-service payment channels (UPI and bank
// transfer). Initiation only hands back static collection details; the
// transaction is confirmed later by an admin decision, never by polling.
package manual

import (
	"context"

	"go.uber.org/zap"

	"github.com/propbazaar/payments-service/internal/config"
	"github.com/propbazaar/payments-service/internal/domain/entity"
	domainErrors "github.com/propbazaar/payments-service/internal/domain/errors"
	"github.com/propbazaar/payments-service/internal/domain/gateway"
)

// UPIGateway returns the configured UPI collection details.
type UPIGateway struct {
	settings *config.GatewaySettingsLoader
	logger   *zap.Logger
}

// NewUPIGateway creates the UPI adapter.
func NewUPIGateway(settings *config.GatewaySettingsLoader, logger *zap.Logger) *UPIGateway {
	return &UPIGateway{settings: settings, logger: logger}
}

// Method implements gateway.Gateway.
func (g *UPIGateway) Method() entity.PaymentMethod {
	return entity.PaymentMethodUPI
}

// Initiate implements gateway.Gateway. No external call is made.
func (g *UPIGateway) Initiate(_ context.Context, req *gateway.InitiateRequest) (*gateway.InitiationResult, error) {
	settings, err := g.settings.Get()
	if err != nil {
		return nil, err
	}
	if !settings.UPI.Enabled {
		return nil, domainErrors.ErrGatewayDisabled
	}

	return &gateway.InitiationResult{
		GatewayReference: req.GatewayReference,
		Instructions: map[string]string{
			"vpa":        settings.UPI.VPA,
			"payee_name": settings.UPI.PayeeName,
		},
	}, nil
}

// Status implements gateway.Gateway. Manual channels have no external status
// source; status only changes via admin decision.
func (g *UPIGateway) Status(_ context.Context, _ string) (*gateway.GatewayStatus, error) {
	return &gateway.GatewayStatus{State: gateway.StatePending}, nil
}

// BankTransferGateway returns the configured bank account details.
type BankTransferGateway struct {
	settings *config.GatewaySettingsLoader
	logger   *zap.Logger
}

// NewBankTransferGateway creates the bank transfer adapter.
func NewBankTransferGateway(settings *config.GatewaySettingsLoader, logger *zap.Logger) *BankTransferGateway {
	return &BankTransferGateway{settings: settings, logger: logger}
}

// Method implements gateway.Gateway.
func (g *BankTransferGateway) Method() entity.PaymentMethod {
	return entity.PaymentMethodBankTransfer
}

// Initiate implements gateway.Gateway. No external call is made.
func (g *BankTransferGateway) Initiate(_ context.Context, req *gateway.InitiateRequest) (*gateway.InitiationResult, error) {
	settings, err := g.settings.Get()
	if err != nil {
		return nil, err
	}
	if !settings.BankTransfer.Enabled {
		return nil, domainErrors.ErrGatewayDisabled
	}

	return &gateway.InitiationResult{
		GatewayReference: req.GatewayReference,
		Instructions: map[string]string{
			"account_name":   settings.BankTransfer.AccountName,
			"account_number": settings.BankTransfer.AccountNumber,
			"ifsc":           settings.BankTransfer.IFSC,
			"bank_name":      settings.BankTransfer.BankName,
		},
	}, nil
}

// Status implements gateway.Gateway.
func (g *BankTransferGateway) Status(_ context.Context, _ string) (*gateway.GatewayStatus, error) {
	return &gateway.GatewayStatus{State: gateway.StatePending}, nil
}
