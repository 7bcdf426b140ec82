package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	domainErrors "github.com/propbazaar/payments-service/internal/domain/errors"
	"github.com/propbazaar/payments-service/internal/domain/model"
	"github.com/propbazaar/payments-service/internal/domain/repository"
)

// Failure codes recorded on the remediation queue.
const (
	FailureCodePackageGone   = "package_gone"
	FailureCodeListingUpdate = "listing_update_failed"
	FailureCodeStoreError    = "store_error"
)

// RemediationPublisher notifies admins of activation failures.
type RemediationPublisher interface {
	PublishActivationFailure(ctx context.Context, failure *model.ActivationFailure) error
}

// ActivationService grants the purchased package to a listing once a
// transaction is confirmed paid. Activate is idempotent: calling it again
// for the same transaction returns the existing activation and re-applies
// the listing promotion rather than extending anything.
type ActivationService struct {
	activationRepo repository.ActivationRepository
	failureRepo    repository.ActivationFailureRepository
	packageRepo    repository.PackageRepository
	listingRepo    repository.ListingRepository
	remediation    RemediationPublisher
	logger         *zap.Logger
	now            func() time.Time
}

// NewActivationService creates a new ActivationService. remediation may be
// nil when no queue is configured.
func NewActivationService(
	activationRepo repository.ActivationRepository,
	failureRepo repository.ActivationFailureRepository,
	packageRepo repository.PackageRepository,
	listingRepo repository.ListingRepository,
	remediation RemediationPublisher,
	logger *zap.Logger,
) *ActivationService {
	return &ActivationService{
		activationRepo: activationRepo,
		failureRepo:    failureRepo,
		packageRepo:    packageRepo,
		listingRepo:    listingRepo,
		remediation:    remediation,
		logger:         logger,
		now:            time.Now,
	}
}

// Activate creates the package activation for a paid transaction and applies
// the granted features to the listing. Safe to call more than once.
func (s *ActivationService) Activate(ctx context.Context, txn *model.Transaction) (*model.PackageActivation, error) {
	existing, err := s.activationRepo.GetByTransactionID(ctx, txn.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		// Already activated; converge the listing state and resolve any
		// queued failures, but never create a second activation.
		s.applyToListing(ctx, txn, existing)
		return existing, nil
	}

	pkg, err := s.packageRepo.GetByID(ctx, txn.PackageID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrPackageNotFound) {
			s.recordFailure(ctx, txn, FailureCodePackageGone, "package deleted after purchase")
			return nil, domainErrors.ErrPackageGone
		}
		return nil, err
	}

	activatedAt := s.now()
	activation := &model.PackageActivation{
		TransactionID:   txn.ID,
		PropertyID:      txn.PropertyID,
		PackageID:       pkg.ID,
		ActivatedAt:     activatedAt,
		ExpiresAt:       activatedAt.AddDate(0, 0, pkg.DurationDays),
		FeaturesGranted: pkg.FeatureFlags(),
	}

	created, err := s.activationRepo.Create(ctx, activation)
	if err != nil {
		s.recordFailure(ctx, txn, FailureCodeStoreError, err.Error())
		return nil, err
	}

	s.logger.Info("Package activated",
		zap.String("transaction_id", txn.ID.String()),
		zap.Int64("package_id", pkg.ID),
		zap.Time("expires_at", created.ExpiresAt))

	s.applyToListing(ctx, txn, created)
	return created, nil
}

// applyToListing pushes the granted promotion onto the listing record. The
// activation row is the source of truth; a listing write failure is queued
// for remediation, never propagated as an activation failure.
func (s *ActivationService) applyToListing(ctx context.Context, txn *model.Transaction, activation *model.PackageActivation) {
	if activation.PropertyID == nil {
		return
	}

	err := s.listingRepo.ApplyPromotion(ctx, *activation.PropertyID, activation.PackageID, activation.ExpiresAt, activation.FeaturesGranted)
	if err != nil {
		s.logger.Error("Failed to apply promotion to listing",
			zap.String("transaction_id", txn.ID.String()),
			zap.String("property_id", *activation.PropertyID),
			zap.Error(err))
		s.recordFailure(ctx, txn, FailureCodeListingUpdate, err.Error())
		return
	}

	if err := s.failureRepo.ResolveByTransactionID(ctx, txn.ID); err != nil {
		s.logger.Warn("Failed to resolve activation failures",
			zap.String("transaction_id", txn.ID.String()),
			zap.Error(err))
	}
}

func (s *ActivationService) recordFailure(ctx context.Context, txn *model.Transaction, code, reason string) {
	failure := &model.ActivationFailure{
		TransactionID: txn.ID,
		Code:          code,
		Reason:        reason,
	}

	if err := s.failureRepo.Record(ctx, failure); err != nil {
		s.logger.Error("Failed to queue activation failure",
			zap.String("transaction_id", txn.ID.String()),
			zap.String("code", code),
			zap.Error(err))
	}

	if s.remediation != nil {
		if err := s.remediation.PublishActivationFailure(ctx, failure); err != nil {
			s.logger.Warn("Failed to publish activation failure",
				zap.String("transaction_id", txn.ID.String()),
				zap.Error(err))
		}
	}
}
