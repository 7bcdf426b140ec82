package usecase_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/propbazaar/payments-service/internal/config"
	"github.com/propbazaar/payments-service/internal/domain/entity"
	domainErrors "github.com/propbazaar/payments-service/internal/domain/errors"
	"github.com/propbazaar/payments-service/internal/domain/model"
	"github.com/propbazaar/payments-service/internal/domain/repository"
	"github.com/propbazaar/payments-service/internal/infrastructure/gateway/phonepe"
	"github.com/propbazaar/payments-service/internal/usecase"
)

const testSaltKey = "test-salt-key"

func reconcileFixtures(t *testing.T) (*MockTransactionRepository, *MockActivationRepository, *MockPackageRepository, *usecase.ReconcileService) {
	t.Helper()
	logger := zap.NewNop()

	txnRepo := new(MockTransactionRepository)
	activationRepo := new(MockActivationRepository)
	failureRepo := new(MockActivationFailureRepository)
	packageRepo := new(MockPackageRepository)
	listingRepo := new(MockListingRepository)

	activation := usecase.NewActivationService(activationRepo, failureRepo, packageRepo, listingRepo, nil, logger)
	settings := staticSettings(&config.GatewaysConfig{
		PhonePe: config.PhonePeConfig{
			Enabled:   true,
			SaltKey:   testSaltKey,
			SaltIndex: "1",
		},
	})

	service := usecase.NewReconcileService(txnRepo, activation, settings, logger)
	return txnRepo, activationRepo, packageRepo, service
}

func pendingTransaction() *model.Transaction {
	return &model.Transaction{
		ID:               uuid.New(),
		UserID:           "user-1",
		PackageID:        7,
		AmountRupees:     499,
		Currency:         "INR",
		PaymentMethod:    entity.PaymentMethodPhonePe,
		GatewayReference: "PBZ100",
		Status:           model.TransactionStatusColumn(entity.TransactionStatusPending),
	}
}

func withStatus(txn *model.Transaction, status entity.TransactionStatus) *model.Transaction {
	copied := *txn
	copied.Status = model.TransactionStatusColumn(status)
	return &copied
}

func withMethod(txn *model.Transaction, method entity.PaymentMethod) *model.Transaction {
	copied := *txn
	copied.PaymentMethod = method
	return &copied
}

func TestReconcileService_GatewayCallback(t *testing.T) {
	ctx := context.Background()
	rawBody := "eyJzdWNjZXNzIjp0cnVlfQ=="
	signature := phonepe.Sign(rawBody, "", testSaltKey, "1")

	t.Run("verified COMPLETED callback marks paid and activates", func(t *testing.T) {
		txnRepo, activationRepo, packageRepo, service := reconcileFixtures(t)
		txn := pendingTransaction()
		paid := withStatus(txn, entity.TransactionStatusPaid)

		txnRepo.On("GetByReference", ctx, entity.PaymentMethodPhonePe, "PBZ100").Return(txn, nil)
		txnRepo.On("TransitionStatus", ctx, txn.ID, mock.MatchedBy(func(tr repository.StatusTransition) bool {
			return tr.To == entity.TransactionStatusPaid && tr.PaidAt != nil
		})).Return(true, nil)
		txnRepo.On("GetByID", ctx, txn.ID).Return(paid, nil)

		activationRepo.On("GetByTransactionID", ctx, txn.ID).Return(nil, nil)
		packageRepo.On("GetByID", ctx, int64(7)).Return(&model.ListingPackage{
			ID:           7,
			Type:         model.PackageTypeFeatured,
			PriceRupees:  decimal.NewFromInt(499),
			DurationDays: 30,
			IsActive:     true,
		}, nil)
		activationRepo.On("Create", ctx, mock.AnythingOfType("*model.PackageActivation")).Return(nil, nil)

		result, err := service.Reconcile(ctx, entity.PaymentMethodPhonePe, "PBZ100", entity.Evidence{
			Kind:         entity.EvidenceGatewayCallback,
			RawBody:      rawBody,
			Signature:    signature,
			GatewayState: "COMPLETED",
			GatewayTxnID: "T123",
		})

		assert.NoError(t, err)
		assert.Equal(t, entity.TransactionStatusPaid, result.CurrentStatus())
		txnRepo.AssertExpectations(t)
		activationRepo.AssertExpectations(t)
	})

	t.Run("forged signature leaves transaction untouched", func(t *testing.T) {
		txnRepo, _, _, service := reconcileFixtures(t)

		result, err := service.Reconcile(ctx, entity.PaymentMethodPhonePe, "PBZ100", entity.Evidence{
			Kind:         entity.EvidenceGatewayCallback,
			RawBody:      rawBody,
			Signature:    phonepe.Sign(rawBody, "", "attacker-key", "1"),
			GatewayState: "COMPLETED",
		})

		assert.ErrorIs(t, err, domainErrors.ErrInvalidSignature)
		assert.Nil(t, result)
		// Forged callbacks are rejected before any lookup, so they cannot
		// be used to probe which references exist.
		txnRepo.AssertNotCalled(t, "GetByReference")
		txnRepo.AssertNotCalled(t, "TransitionStatus")
	})

	t.Run("signed callback for unknown reference reports not found", func(t *testing.T) {
		txnRepo, _, _, service := reconcileFixtures(t)

		txnRepo.On("GetByReference", ctx, entity.PaymentMethodPhonePe, "NOPE").
			Return(nil, domainErrors.ErrTransactionNotFound)

		_, err := service.Reconcile(ctx, entity.PaymentMethodPhonePe, "NOPE", entity.Evidence{
			Kind:         entity.EvidenceGatewayCallback,
			RawBody:      rawBody,
			Signature:    signature,
			GatewayState: "COMPLETED",
		})

		assert.ErrorIs(t, err, domainErrors.ErrTransactionNotFound)
	})

	t.Run("duplicate callback on settled transaction is a no-op", func(t *testing.T) {
		txnRepo, _, _, service := reconcileFixtures(t)
		settled := withStatus(pendingTransaction(), entity.TransactionStatusPaid)

		txnRepo.On("GetByReference", ctx, entity.PaymentMethodPhonePe, "PBZ100").Return(settled, nil)

		result, err := service.Reconcile(ctx, entity.PaymentMethodPhonePe, "PBZ100", entity.Evidence{
			Kind:         entity.EvidenceGatewayCallback,
			RawBody:      rawBody,
			Signature:    signature,
			GatewayState: "COMPLETED",
		})

		assert.NoError(t, err)
		assert.Equal(t, entity.TransactionStatusPaid, result.CurrentStatus())
		txnRepo.AssertNotCalled(t, "TransitionStatus")
	})

	t.Run("FAILED state transitions to failed without activation", func(t *testing.T) {
		txnRepo, activationRepo, _, service := reconcileFixtures(t)
		txn := pendingTransaction()
		failed := withStatus(txn, entity.TransactionStatusFailed)

		txnRepo.On("GetByReference", ctx, entity.PaymentMethodPhonePe, "PBZ100").Return(txn, nil)
		txnRepo.On("TransitionStatus", ctx, txn.ID, mock.MatchedBy(func(tr repository.StatusTransition) bool {
			return tr.To == entity.TransactionStatusFailed
		})).Return(true, nil)
		txnRepo.On("GetByID", ctx, txn.ID).Return(failed, nil)

		result, err := service.Reconcile(ctx, entity.PaymentMethodPhonePe, "PBZ100", entity.Evidence{
			Kind:         entity.EvidenceGatewayCallback,
			RawBody:      rawBody,
			Signature:    signature,
			GatewayState: "FAILED",
		})

		assert.NoError(t, err)
		assert.Equal(t, entity.TransactionStatusFailed, result.CurrentStatus())
		activationRepo.AssertNotCalled(t, "GetByTransactionID")
	})

	t.Run("losing the transition race skips activation", func(t *testing.T) {
		txnRepo, activationRepo, _, service := reconcileFixtures(t)
		txn := pendingTransaction()
		paid := withStatus(txn, entity.TransactionStatusPaid)

		txnRepo.On("GetByReference", ctx, entity.PaymentMethodPhonePe, "PBZ100").Return(txn, nil)
		txnRepo.On("TransitionStatus", ctx, txn.ID, mock.Anything).Return(false, nil)
		txnRepo.On("GetByID", ctx, txn.ID).Return(paid, nil)

		result, err := service.Reconcile(ctx, entity.PaymentMethodPhonePe, "PBZ100", entity.Evidence{
			Kind:         entity.EvidenceGatewayCallback,
			RawBody:      rawBody,
			Signature:    signature,
			GatewayState: "COMPLETED",
		})

		assert.NoError(t, err)
		assert.Equal(t, entity.TransactionStatusPaid, result.CurrentStatus())
		// The winner owns the activation.
		activationRepo.AssertNotCalled(t, "GetByTransactionID")
	})
}

func TestReconcileService_AdminDecision(t *testing.T) {
	ctx := context.Background()

	t.Run("approval stamps paid_at and processed_by", func(t *testing.T) {
		txnRepo, activationRepo, packageRepo, service := reconcileFixtures(t)
		txn := withMethod(withStatus(pendingTransaction(), entity.TransactionStatusProcessing), entity.PaymentMethodUPI)
		approved := withStatus(txn, entity.TransactionStatusApproved)

		txnRepo.On("GetByReference", ctx, entity.PaymentMethodUPI, "PBZ100").Return(txn, nil)
		txnRepo.On("TransitionStatus", ctx, txn.ID, mock.MatchedBy(func(tr repository.StatusTransition) bool {
			return tr.To == entity.TransactionStatusApproved &&
				tr.PaidAt != nil &&
				tr.ProcessedBy != nil && *tr.ProcessedBy == "admin-9"
		})).Return(true, nil)
		txnRepo.On("GetByID", ctx, txn.ID).Return(approved, nil)

		activationRepo.On("GetByTransactionID", ctx, txn.ID).Return(nil, nil)
		packageRepo.On("GetByID", ctx, int64(7)).Return(&model.ListingPackage{
			ID:           7,
			Type:         model.PackageTypePremium,
			DurationDays: 30,
			IsActive:     true,
		}, nil)
		activationRepo.On("Create", ctx, mock.AnythingOfType("*model.PackageActivation")).Return(nil, nil)

		result, err := service.Reconcile(ctx, entity.PaymentMethodUPI, "PBZ100", entity.Evidence{
			Kind:           entity.EvidenceAdminDecision,
			AdminID:        "admin-9",
			DecisionStatus: entity.TransactionStatusApproved,
		})

		assert.NoError(t, err)
		assert.Equal(t, entity.TransactionStatusApproved, result.CurrentStatus())
	})

	t.Run("approval refused for gateway-backed method", func(t *testing.T) {
		txnRepo, _, _, service := reconcileFixtures(t)
		txn := pendingTransaction()

		txnRepo.On("GetByReference", ctx, entity.PaymentMethodPhonePe, "PBZ100").Return(txn, nil)

		_, err := service.Reconcile(ctx, entity.PaymentMethodPhonePe, "PBZ100", entity.Evidence{
			Kind:           entity.EvidenceAdminDecision,
			AdminID:        "admin-9",
			DecisionStatus: entity.TransactionStatusApproved,
		})

		assert.ErrorIs(t, err, domainErrors.ErrInvalidTransition)
		txnRepo.AssertNotCalled(t, "TransitionStatus")
	})

	t.Run("rejection stamps rejected_at", func(t *testing.T) {
		txnRepo, activationRepo, _, service := reconcileFixtures(t)
		txn := withStatus(pendingTransaction(), entity.TransactionStatusProcessing)
		rejected := withStatus(txn, entity.TransactionStatusRejected)

		txnRepo.On("GetByReference", ctx, entity.PaymentMethodPhonePe, "PBZ100").Return(txn, nil)
		txnRepo.On("TransitionStatus", ctx, txn.ID, mock.MatchedBy(func(tr repository.StatusTransition) bool {
			return tr.To == entity.TransactionStatusRejected && tr.RejectedAt != nil
		})).Return(true, nil)
		txnRepo.On("GetByID", ctx, txn.ID).Return(rejected, nil)

		result, err := service.Reconcile(ctx, entity.PaymentMethodPhonePe, "PBZ100", entity.Evidence{
			Kind:           entity.EvidenceAdminDecision,
			AdminID:        "admin-9",
			AdminNotes:     "no matching bank credit",
			DecisionStatus: entity.TransactionStatusRejected,
		})

		assert.NoError(t, err)
		assert.Equal(t, entity.TransactionStatusRejected, result.CurrentStatus())
		activationRepo.AssertNotCalled(t, "GetByTransactionID")
	})

	t.Run("decision outside approved/rejected is invalid", func(t *testing.T) {
		txnRepo, _, _, service := reconcileFixtures(t)
		txn := pendingTransaction()

		txnRepo.On("GetByReference", ctx, entity.PaymentMethodPhonePe, "PBZ100").Return(txn, nil)

		_, err := service.Reconcile(ctx, entity.PaymentMethodPhonePe, "PBZ100", entity.Evidence{
			Kind:           entity.EvidenceAdminDecision,
			AdminID:        "admin-9",
			DecisionStatus: entity.TransactionStatusPaid,
		})

		assert.ErrorIs(t, err, domainErrors.ErrInvalidTransition)
		txnRepo.AssertNotCalled(t, "TransitionStatus")
	})
}

func TestReconcileService_UserClaim(t *testing.T) {
	ctx := context.Background()

	t.Run("claim moves pending into processing and stores details", func(t *testing.T) {
		txnRepo, _, _, service := reconcileFixtures(t)
		txn := pendingTransaction()
		processing := withStatus(txn, entity.TransactionStatusProcessing)

		txnRepo.On("GetByReference", ctx, entity.PaymentMethodPhonePe, "PBZ100").Return(txn, nil)
		txnRepo.On("SetPaymentDetails", ctx, txn.ID, mock.Anything).Return(nil)
		txnRepo.On("TransitionStatus", ctx, txn.ID, mock.MatchedBy(func(tr repository.StatusTransition) bool {
			return tr.To == entity.TransactionStatusProcessing &&
				len(tr.FromStatuses) == 1 &&
				tr.FromStatuses[0] == entity.TransactionStatusPending
		})).Return(true, nil)
		txnRepo.On("GetByID", ctx, txn.ID).Return(processing, nil)

		result, err := service.Reconcile(ctx, entity.PaymentMethodPhonePe, "PBZ100", entity.Evidence{
			Kind:         entity.EvidenceUserClaim,
			ClaimDetails: map[string]interface{}{"utr": "UTR0012345"},
		})

		assert.NoError(t, err)
		assert.Equal(t, entity.TransactionStatusProcessing, result.CurrentStatus())
		txnRepo.AssertExpectations(t)
	})

	t.Run("unknown reference returns not found", func(t *testing.T) {
		txnRepo, _, _, service := reconcileFixtures(t)

		txnRepo.On("GetByReference", ctx, entity.PaymentMethodPhonePe, "NOPE").
			Return(nil, domainErrors.ErrTransactionNotFound)

		_, err := service.Reconcile(ctx, entity.PaymentMethodPhonePe, "NOPE", entity.Evidence{
			Kind: entity.EvidenceUserClaim,
		})

		assert.ErrorIs(t, err, domainErrors.ErrTransactionNotFound)
	})
}
