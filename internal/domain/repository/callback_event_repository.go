package repository

import (
	"context"

	"github.com/propbazaar/payments-service/internal/domain/model"
)

// CallbackEventRepository is the audit log of gateway callback deliveries.
type CallbackEventRepository interface {
	Record(ctx context.Context, event *model.PhonePeCallbackEvent) error
	ListByReference(ctx context.Context, merchantTransactionID string) ([]*model.PhonePeCallbackEvent, error)
}
