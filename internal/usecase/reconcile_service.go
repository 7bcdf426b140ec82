package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/propbazaar/payments-service/internal/config"
	"github.com/propbazaar/payments-service/internal/domain/entity"
	domainErrors "github.com/propbazaar/payments-service/internal/domain/errors"
	"github.com/propbazaar/payments-service/internal/domain/gateway"
	"github.com/propbazaar/payments-service/internal/domain/model"
	"github.com/propbazaar/payments-service/internal/domain/repository"
	"github.com/propbazaar/payments-service/internal/infrastructure/gateway/phonepe"
)

// ReconcileService is the single entry point for every state-changing event
// on a transaction: gateway callbacks, status polls, admin decisions and
// user self-reports. All transitions funnel through the store's conditional
// update, so overlapping events settle on exactly one winner.
type ReconcileService struct {
	txnRepo    repository.TransactionRepository
	activation *ActivationService
	settings   *config.GatewaySettingsLoader
	logger     *zap.Logger
	now        func() time.Time
}

// NewReconcileService creates a new ReconcileService.
func NewReconcileService(
	txnRepo repository.TransactionRepository,
	activation *ActivationService,
	settings *config.GatewaySettingsLoader,
	logger *zap.Logger,
) *ReconcileService {
	return &ReconcileService{
		txnRepo:    txnRepo,
		activation: activation,
		settings:   settings,
		logger:     logger,
		now:        time.Now,
	}
}

// Reconcile validates the evidence and applies the resulting transition.
// A transaction already in a terminal state is returned unchanged; duplicate
// webhook deliveries and admin/poll races are no-ops, never errors.
func (s *ReconcileService) Reconcile(ctx context.Context, method entity.PaymentMethod, reference string, ev entity.Evidence) (*model.Transaction, error) {
	// Callback authenticity is checked before the lookup so an unsigned
	// caller cannot probe which references exist.
	if ev.Kind == entity.EvidenceGatewayCallback {
		if err := s.VerifyCallback(ev.RawBody, ev.Signature); err != nil {
			if errors.Is(err, domainErrors.ErrInvalidSignature) {
				s.logger.Warn("Callback signature verification failed",
					zap.String("gateway_reference", reference))
			}
			return nil, err
		}
	}

	txn, err := s.txnRepo.GetByReference(ctx, method, reference)
	if err != nil {
		return nil, err
	}

	if txn.CurrentStatus().IsTerminal() {
		s.logger.Info("Reconcile on terminal transaction, ignoring",
			zap.String("gateway_reference", reference),
			zap.String("status", string(txn.CurrentStatus())),
			zap.String("evidence_kind", string(ev.Kind)))
		return txn, nil
	}

	transition, err := s.buildTransition(txn, ev)
	if err != nil {
		return nil, err
	}

	if ev.Kind == entity.EvidenceUserClaim && len(ev.ClaimDetails) > 0 {
		if err := s.setClaimDetails(ctx, txn, ev.ClaimDetails); err != nil {
			return nil, err
		}
	}

	applied, err := s.txnRepo.TransitionStatus(ctx, txn.ID, *transition)
	if err != nil {
		return nil, err
	}

	updated, err := s.txnRepo.GetByID(ctx, txn.ID)
	if err != nil {
		return nil, err
	}

	if !applied {
		// A concurrent reconciliation got there first; whoever applied the
		// transition owns the activation.
		s.logger.Info("Transition already applied by concurrent reconcile",
			zap.String("gateway_reference", reference),
			zap.String("status", string(updated.CurrentStatus())))
		return updated, nil
	}

	s.logger.Info("Transaction status transitioned",
		zap.String("gateway_reference", reference),
		zap.String("from", string(txn.CurrentStatus())),
		zap.String("to", string(updated.CurrentStatus())),
		zap.String("evidence_kind", string(ev.Kind)))

	if updated.CurrentStatus().IsSuccess() {
		// A confirmed payment is never rolled back for an activation
		// failure; the failure is queued and the status change stands.
		if _, err := s.activation.Activate(ctx, updated); err != nil {
			s.logger.Error("Activation failed for confirmed payment",
				zap.String("transaction_id", updated.ID.String()),
				zap.Error(err))
		}
	}

	return updated, nil
}

// VerifyCallback checks a callback checksum against the configured salt key.
// Failures never touch the transaction.
func (s *ReconcileService) VerifyCallback(rawBody, signature string) error {
	settings, err := s.settings.Get()
	if err != nil {
		return err
	}
	if !phonepe.Verify(rawBody, signature, settings.PhonePe.SaltKey) {
		return domainErrors.ErrInvalidSignature
	}
	return nil
}

// buildTransition maps evidence onto the state machine.
func (s *ReconcileService) buildTransition(txn *model.Transaction, ev entity.Evidence) (*repository.StatusTransition, error) {
	fromStatuses := []entity.TransactionStatus{
		entity.TransactionStatusPending,
		entity.TransactionStatusProcessing,
	}

	switch ev.Kind {
	case entity.EvidenceGatewayCallback:
		// Authenticity was already established before the lookup.
		return s.gatewayTransition(ev, fromStatuses), nil

	case entity.EvidenceStatusPoll:
		// The poll response came over a request we signed ourselves.
		return s.gatewayTransition(ev, fromStatuses), nil

	case entity.EvidenceAdminDecision:
		return s.adminTransition(txn, ev, fromStatuses)

	case entity.EvidenceUserClaim:
		// An unverified self-report moves the attempt into processing; it
		// still needs an admin decision to become success.
		return &repository.StatusTransition{
			To:           entity.TransactionStatusProcessing,
			FromStatuses: []entity.TransactionStatus{entity.TransactionStatusPending},
		}, nil

	default:
		return nil, domainErrors.ErrInvalidTransition
	}
}

func (s *ReconcileService) gatewayTransition(ev entity.Evidence, from []entity.TransactionStatus) *repository.StatusTransition {
	transition := &repository.StatusTransition{FromStatuses: from}
	if ev.GatewayTxnID != "" {
		transition.GatewayTxnID = &ev.GatewayTxnID
	}

	switch ev.GatewayState {
	case gateway.StateCompleted:
		now := s.now()
		transition.To = entity.TransactionStatusPaid
		transition.PaidAt = &now
	case gateway.StateFailed:
		transition.To = entity.TransactionStatusFailed
	default:
		transition.To = entity.TransactionStatusProcessing
	}
	return transition
}

func (s *ReconcileService) adminTransition(txn *model.Transaction, ev entity.Evidence, from []entity.TransactionStatus) (*repository.StatusTransition, error) {
	transition := &repository.StatusTransition{FromStatuses: from}
	if ev.AdminID != "" {
		transition.ProcessedBy = &ev.AdminID
	}
	if ev.AdminNotes != "" {
		transition.AdminNotes = &ev.AdminNotes
	}

	switch ev.DecisionStatus {
	case entity.TransactionStatusApproved:
		// Confirmation for gateway-backed channels comes from the gateway
		// itself; an admin can only approve manual collections. Rejection
		// stays open to any channel.
		if !txn.PaymentMethod.IsManual() {
			s.logger.Warn("Admin approval refused for gateway-backed method",
				zap.String("transaction_id", txn.ID.String()),
				zap.String("payment_method", string(txn.PaymentMethod)))
			return nil, domainErrors.ErrInvalidTransition
		}
		now := s.now()
		transition.To = entity.TransactionStatusApproved
		transition.PaidAt = &now
	case entity.TransactionStatusRejected:
		now := s.now()
		transition.To = entity.TransactionStatusRejected
		transition.RejectedAt = &now
	default:
		return nil, domainErrors.ErrInvalidTransition
	}
	return transition, nil
}

func (s *ReconcileService) setClaimDetails(ctx context.Context, txn *model.Transaction, details map[string]interface{}) error {
	raw, err := json.Marshal(details)
	if err != nil {
		return err
	}
	return s.txnRepo.SetPaymentDetails(ctx, txn.ID, datatypes.JSON(raw))
}
