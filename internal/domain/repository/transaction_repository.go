package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/propbazaar/payments-service/internal/domain/entity"
	"github.com/propbazaar/payments-service/internal/domain/model"
)

// TransactionFilter narrows admin transaction listings.
type TransactionFilter struct {
	Status        entity.TransactionStatus
	PaymentMethod entity.PaymentMethod
	UserID        string
}

// StatusTransition describes a conditional status update. The update is
// applied only while the transaction is still in one of FromStatuses; zero
// rows affected means another reconciliation already moved it.
type StatusTransition struct {
	To           entity.TransactionStatus
	FromStatuses []entity.TransactionStatus
	GatewayTxnID *string
	AdminNotes   *string
	ProcessedBy  *string
	PaidAt       *time.Time
	RejectedAt   *time.Time
}

// TransactionRepository is the durable store of payment attempts.
type TransactionRepository interface {
	Create(ctx context.Context, txn *model.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	GetByReference(ctx context.Context, method entity.PaymentMethod, reference string) (*model.Transaction, error)

	// TransitionStatus applies a compare-and-swap status update and reports
	// whether this call performed the transition.
	TransitionStatus(ctx context.Context, id uuid.UUID, transition StatusTransition) (bool, error)

	// SetPaymentDetails records channel-specific details (e.g. a
	// self-reported UPI reference) without touching status.
	SetPaymentDetails(ctx context.Context, id uuid.UUID, details datatypes.JSON) error

	List(ctx context.Context, filter TransactionFilter, params entity.PaginationParams) ([]*model.Transaction, int64, error)
}
