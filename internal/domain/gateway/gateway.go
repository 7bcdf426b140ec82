package gateway

import (
	"context"

	"github.com/propbazaar/payments-service/internal/domain/entity"
)

// Gateway states reported by Status and callbacks.
const (
	StateCompleted = "COMPLETED"
	StateFailed    = "FAILED"
	StatePending   = "PENDING"
)

// InitiateRequest is the channel-agnostic payment initiation input.
type InitiateRequest struct {
	GatewayReference string
	AmountRupees     int64
	Currency         string
	UserID           string
	PackageID        int64
	PropertyID       *string
	UserPhone        string
}

// InitiationResult is what the caller needs to continue the payment:
// static instructions for manual channels, a redirect for hosted ones.
type InitiationResult struct {
	GatewayReference string                 `json:"gateway_reference"`
	Instructions     map[string]string      `json:"instructions,omitempty"`
	RedirectURL      string                 `json:"redirect_url,omitempty"`
	ProviderData     map[string]interface{} `json:"provider_data,omitempty"`
}

// GatewayStatus is a point-in-time answer from the gateway's status API.
type GatewayStatus struct {
	State        string `json:"state"`
	AmountPaise  int64  `json:"amount_paise"`
	GatewayTxnID string `json:"gateway_txn_id,omitempty"`
}

// Gateway is the uniform per-channel adapter contract. Manual channels never
// leave the process; only the PhonePe adapter talks to a remote service.
type Gateway interface {
	Method() entity.PaymentMethod
	Initiate(ctx context.Context, req *InitiateRequest) (*InitiationResult, error)
	Status(ctx context.Context, gatewayReference string) (*GatewayStatus, error)
}
