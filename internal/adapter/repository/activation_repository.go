package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/propbazaar/payments-service/internal/domain/model"
	"github.com/propbazaar/payments-service/internal/domain/repository"
)

type activationRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewActivationRepository creates a new activation repository
func NewActivationRepository(db *gorm.DB, logger *zap.Logger) repository.ActivationRepository {
	return &activationRepository{
		db:     db,
		logger: logger,
	}
}

// GetByTransactionID retrieves the activation for a transaction, if any.
func (r *activationRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*model.PackageActivation, error) {
	var activation model.PackageActivation
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		First(&activation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get activation",
			zap.String("transaction_id", transactionID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get activation: %w", err)
	}
	return &activation, nil
}

// Create inserts the activation. ON CONFLICT DO NOTHING on the unique
// transaction_id index absorbs the race where two reconciliations activate
// at once; the row that won is fetched and returned.
func (r *activationRepository) Create(ctx context.Context, activation *model.PackageActivation) (*model.PackageActivation, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "transaction_id"}},
			DoNothing: true,
		}).
		Create(activation)
	if result.Error != nil {
		r.logger.Error("Failed to create activation",
			zap.String("transaction_id", activation.TransactionID.String()),
			zap.Error(result.Error))
		return nil, fmt.Errorf("failed to create activation: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		existing, err := r.GetByTransactionID(ctx, activation.TransactionID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	return activation, nil
}

type activationFailureRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewActivationFailureRepository creates the remediation queue repository
func NewActivationFailureRepository(db *gorm.DB, logger *zap.Logger) repository.ActivationFailureRepository {
	return &activationFailureRepository{
		db:     db,
		logger: logger,
	}
}

// Record stores an activation failure for admin remediation.
func (r *activationFailureRepository) Record(ctx context.Context, failure *model.ActivationFailure) error {
	err := r.db.WithContext(ctx).Create(failure).Error
	if err != nil {
		r.logger.Error("Failed to record activation failure",
			zap.String("transaction_id", failure.TransactionID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to record activation failure: %w", err)
	}
	return nil
}

// ResolveByTransactionID marks all failures for a transaction resolved.
func (r *activationFailureRepository) ResolveByTransactionID(ctx context.Context, transactionID uuid.UUID) error {
	now := time.Now()
	err := r.db.WithContext(ctx).
		Model(&model.ActivationFailure{}).
		Where("transaction_id = ? AND resolved = false", transactionID).
		Updates(map[string]interface{}{
			"resolved":    true,
			"resolved_at": now,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to resolve activation failures: %w", err)
	}
	return nil
}

// ListUnresolved returns the oldest unresolved failures.
func (r *activationFailureRepository) ListUnresolved(ctx context.Context, limit int) ([]*model.ActivationFailure, error) {
	var failures []*model.ActivationFailure
	err := r.db.WithContext(ctx).
		Where("resolved = false").
		Order("created_at ASC").
		Limit(limit).
		Find(&failures).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list activation failures: %w", err)
	}
	return failures, nil
}
