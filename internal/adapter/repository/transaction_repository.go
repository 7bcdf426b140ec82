package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/propbazaar/payments-service/internal/domain/entity"
	domainErrors "github.com/propbazaar/payments-service/internal/domain/errors"
	"github.com/propbazaar/payments-service/internal/domain/model"
	"github.com/propbazaar/payments-service/internal/domain/repository"
)

type transactionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *gorm.DB, logger *zap.Logger) repository.TransactionRepository {
	return &transactionRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new payment attempt. The composite unique index on
// (payment_method, gateway_reference) rejects reference collisions here.
func (r *transactionRepository) Create(ctx context.Context, txn *model.Transaction) error {
	err := r.db.WithContext(ctx).Create(txn).Error
	if err != nil {
		if isUniqueViolation(err) {
			return domainErrors.ErrDuplicateReference
		}
		r.logger.Error("Failed to create transaction",
			zap.String("gateway_reference", txn.GatewayReference),
			zap.Error(err))
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a transaction by its store-assigned id.
func (r *transactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	var txn model.Transaction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.ErrTransactionNotFound
		}
		r.logger.Error("Failed to get transaction by id",
			zap.String("transaction_id", id.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &txn, nil
}

// GetByReference retrieves a transaction by its per-channel gateway reference.
func (r *transactionRepository) GetByReference(ctx context.Context, method entity.PaymentMethod, reference string) (*model.Transaction, error) {
	var txn model.Transaction
	err := r.db.WithContext(ctx).
		Where("payment_method = ? AND gateway_reference = ?", method, reference).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.ErrTransactionNotFound
		}
		r.logger.Error("Failed to get transaction by reference",
			zap.String("payment_method", string(method)),
			zap.String("gateway_reference", reference),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &txn, nil
}

// TransitionStatus applies the conditional status update. The WHERE guard on
// the prior status is the single compare-and-swap every transition goes
// through; zero rows affected means another reconciliation won the race and
// is reported as applied=false, never as an error.
func (r *transactionRepository) TransitionStatus(ctx context.Context, id uuid.UUID, transition repository.StatusTransition) (bool, error) {
	updates := map[string]interface{}{
		"status":     string(transition.To),
		"updated_at": time.Now(),
	}
	if transition.GatewayTxnID != nil {
		updates["gateway_txn_id"] = *transition.GatewayTxnID
	}
	if transition.AdminNotes != nil {
		updates["admin_notes"] = *transition.AdminNotes
	}
	if transition.ProcessedBy != nil {
		updates["processed_by"] = *transition.ProcessedBy
	}
	if transition.PaidAt != nil {
		updates["paid_at"] = *transition.PaidAt
	}
	if transition.RejectedAt != nil {
		updates["rejected_at"] = *transition.RejectedAt
	}

	fromStatuses := make([]string, 0, len(transition.FromStatuses))
	for _, s := range transition.FromStatuses {
		fromStatuses = append(fromStatuses, string(s))
	}

	result := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("id = ? AND status IN ?", id, fromStatuses).
		Updates(updates)

	if result.Error != nil {
		r.logger.Error("Failed to transition transaction status",
			zap.String("transaction_id", id.String()),
			zap.String("to_status", string(transition.To)),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to transition status: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

// SetPaymentDetails stores channel-specific details without touching status.
func (r *transactionRepository) SetPaymentDetails(ctx context.Context, id uuid.UUID, details datatypes.JSON) error {
	err := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"payment_details": details,
			"updated_at":      time.Now(),
		}).Error
	if err != nil {
		r.logger.Error("Failed to set payment details",
			zap.String("transaction_id", id.String()),
			zap.Error(err))
		return fmt.Errorf("failed to set payment details: %w", err)
	}
	return nil
}

// List returns transactions matching the filter, newest first.
func (r *transactionRepository) List(ctx context.Context, filter repository.TransactionFilter, params entity.PaginationParams) ([]*model.Transaction, int64, error) {
	params.Validate()

	query := r.db.WithContext(ctx).Model(&model.Transaction{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PaymentMethod != "" {
		query = query.Where("payment_method = ?", filter.PaymentMethod)
	}
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	var txns []*model.Transaction
	err := query.
		Order("created_at DESC").
		Limit(params.Limit).
		Offset(params.CalculateOffset()).
		Find(&txns).Error
	if err != nil {
		r.logger.Error("Failed to list transactions", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}

	return txns, total, nil
}

// isUniqueViolation reports whether err is a unique-constraint violation.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// pgx surfaces SQLSTATE 23505 for unique violations
	return strings.Contains(err.Error(), "23505") ||
		strings.Contains(err.Error(), "duplicate key")
}
