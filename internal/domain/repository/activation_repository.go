package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/propbazaar/payments-service/internal/domain/model"
)

// ActivationRepository stores derived package activations, one per paid
// transaction.
type ActivationRepository interface {
	GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*model.PackageActivation, error)

	// Create inserts the activation. When a concurrent reconciliation
	// already inserted one for the same transaction, the existing row is
	// returned instead of an error.
	Create(ctx context.Context, activation *model.PackageActivation) (*model.PackageActivation, error)
}

// ActivationFailureRepository is the admin remediation queue for confirmed
// payments whose activation failed.
type ActivationFailureRepository interface {
	Record(ctx context.Context, failure *model.ActivationFailure) error
	ResolveByTransactionID(ctx context.Context, transactionID uuid.UUID) error
	ListUnresolved(ctx context.Context, limit int) ([]*model.ActivationFailure, error)
}
