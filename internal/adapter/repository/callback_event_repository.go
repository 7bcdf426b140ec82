package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/propbazaar/payments-service/internal/domain/model"
	"github.com/propbazaar/payments-service/internal/domain/repository"
)

type callbackEventRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewCallbackEventRepository creates a new callback event repository
func NewCallbackEventRepository(db *gorm.DB, logger *zap.Logger) repository.CallbackEventRepository {
	return &callbackEventRepository{
		db:     db,
		logger: logger,
	}
}

// Record appends a callback delivery to the audit log. At-least-once
// delivery means duplicates are expected; every delivery gets a row.
func (r *callbackEventRepository) Record(ctx context.Context, event *model.PhonePeCallbackEvent) error {
	err := r.db.WithContext(ctx).Create(event).Error
	if err != nil {
		r.logger.Error("Failed to record callback event",
			zap.String("merchant_transaction_id", event.MerchantTransactionID),
			zap.Error(err))
		return fmt.Errorf("failed to record callback event: %w", err)
	}
	return nil
}

// ListByReference returns all recorded deliveries for a reference.
func (r *callbackEventRepository) ListByReference(ctx context.Context, merchantTransactionID string) ([]*model.PhonePeCallbackEvent, error) {
	var events []*model.PhonePeCallbackEvent
	err := r.db.WithContext(ctx).
		Where("merchant_transaction_id = ?", merchantTransactionID).
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list callback events: %w", err)
	}
	return events, nil
}
