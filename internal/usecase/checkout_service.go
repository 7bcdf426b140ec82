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
	gatewayfactory "github.com/propbazaar/payments-service/internal/infrastructure/gateway"
	"github.com/propbazaar/payments-service/internal/infrastructure/gateway/phonepe"
)

// referenceCreateAttempts bounds retries on a gateway reference collision.
const referenceCreateAttempts = 3

// CheckoutRequest is the validated input for creating a payment attempt.
type CheckoutRequest struct {
	UserID         string
	PackageID      int64
	PropertyID     *string
	Method         entity.PaymentMethod
	UserPhone      string
	PaymentDetails map[string]interface{}
}

// CheckoutResult carries the created transaction and, when the channel
// produced one, the initiation payload the client continues with.
type CheckoutResult struct {
	Transaction *model.Transaction
	Initiation  *gateway.InitiationResult
	Activation  *model.PackageActivation
}

// CheckoutService creates payment attempts. Amounts are frozen from the
// package price at creation time and the transaction row is inserted before
// any outbound gateway call, so a gateway failure never orphans a payment.
type CheckoutService struct {
	txnRepo     repository.TransactionRepository
	packageRepo repository.PackageRepository
	registry    *gatewayfactory.Registry
	activation  *ActivationService
	settings    *config.GatewaySettingsLoader
	logger      *zap.Logger
	now         func() time.Time
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(
	txnRepo repository.TransactionRepository,
	packageRepo repository.PackageRepository,
	registry *gatewayfactory.Registry,
	activation *ActivationService,
	settings *config.GatewaySettingsLoader,
	logger *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		txnRepo:     txnRepo,
		packageRepo: packageRepo,
		registry:    registry,
		activation:  activation,
		settings:    settings,
		logger:      logger,
		now:         time.Now,
	}
}

// Initiate creates a transaction for the selected package and channel. Free
// packages are confirmed and activated synchronously with no gateway
// round-trip. For paid packages the pending row persists even when the
// outbound call fails; the returned ErrGatewayUnavailable tells the caller
// to poll later rather than retry creation.
func (s *CheckoutService) Initiate(ctx context.Context, req *CheckoutRequest) (*CheckoutResult, error) {
	pkg, err := s.packageRepo.GetByID(ctx, req.PackageID)
	if err != nil {
		return nil, err
	}
	if !pkg.IsActive {
		return nil, domainErrors.ErrPackageNotFound
	}

	// Configuration problems fail fast, before any row exists.
	if err := s.checkMethodEnabled(req.Method); err != nil {
		return nil, err
	}

	adapter, err := s.registry.Get(req.Method)
	if err != nil {
		return nil, err
	}

	// The package price at this moment is the transaction amount, forever.
	// A paise-priced package is a catalogue error; refusing it beats
	// silently charging less than the listed price.
	if !pkg.PriceRupees.IsInteger() {
		s.logger.Error("Package priced with a fractional rupee amount",
			zap.Int64("package_id", pkg.ID),
			zap.String("price", pkg.PriceRupees.String()))
		return nil, domainErrors.ErrNonIntegralPrice
	}
	amount := pkg.PriceRupees.IntPart()

	if pkg.PriceRupees.IsZero() {
		return s.createFree(ctx, req, pkg)
	}

	txn, err := s.createPending(ctx, req, pkg, amount)
	if err != nil {
		return nil, err
	}

	initReq := &gateway.InitiateRequest{
		GatewayReference: txn.GatewayReference,
		AmountRupees:     amount,
		Currency:         txn.Currency,
		UserID:           req.UserID,
		PackageID:        pkg.ID,
		PropertyID:       req.PropertyID,
		UserPhone:        req.UserPhone,
	}

	initiation, err := adapter.Initiate(ctx, initReq)
	if err != nil {
		if errors.Is(err, domainErrors.ErrGatewayUnavailable) {
			// The pending row stays; a later status poll or callback
			// reconciles it. Never delete it here.
			s.logger.Warn("Gateway initiation failed, transaction left pending",
				zap.String("transaction_id", txn.ID.String()),
				zap.String("gateway_reference", txn.GatewayReference),
				zap.Error(err))
			return &CheckoutResult{Transaction: txn}, err
		}
		return nil, err
	}

	return &CheckoutResult{Transaction: txn, Initiation: initiation}, nil
}

// createFree confirms a zero-price transaction immediately.
func (s *CheckoutService) createFree(ctx context.Context, req *CheckoutRequest, pkg *model.ListingPackage) (*CheckoutResult, error) {
	now := s.now()
	txn := &model.Transaction{
		UserID:           req.UserID,
		PackageID:        pkg.ID,
		PropertyID:       req.PropertyID,
		AmountRupees:     0,
		Currency:         pkg.Currency,
		PaymentMethod:    req.Method,
		GatewayReference: gateway.NewReference(referencePrefix(req.Method)),
		Status:           model.TransactionStatusColumn(entity.TransactionStatusPaid),
		PaidAt:           &now,
	}
	if err := s.txnRepo.Create(ctx, txn); err != nil {
		return nil, err
	}

	activation, err := s.activation.Activate(ctx, txn)
	if err != nil {
		s.logger.Error("Activation failed for free package",
			zap.String("transaction_id", txn.ID.String()),
			zap.Error(err))
		return &CheckoutResult{Transaction: txn}, nil
	}

	return &CheckoutResult{Transaction: txn, Activation: activation}, nil
}

// createPending inserts the pending row, regenerating the reference on the
// unlikely collision.
func (s *CheckoutService) createPending(ctx context.Context, req *CheckoutRequest, pkg *model.ListingPackage, amount int64) (*model.Transaction, error) {
	var details datatypes.JSON
	if len(req.PaymentDetails) > 0 {
		raw, err := json.Marshal(req.PaymentDetails)
		if err != nil {
			return nil, err
		}
		details = datatypes.JSON(raw)
	}

	var lastErr error
	for attempt := 0; attempt < referenceCreateAttempts; attempt++ {
		txn := &model.Transaction{
			UserID:           req.UserID,
			PackageID:        req.PackageID,
			PropertyID:       req.PropertyID,
			AmountRupees:     amount,
			Currency:         pkg.Currency,
			PaymentMethod:    req.Method,
			GatewayReference: gateway.NewReference(referencePrefix(req.Method)),
			PaymentDetails:   details,
			Status:           model.TransactionStatusColumn(entity.TransactionStatusPending),
		}

		err := s.txnRepo.Create(ctx, txn)
		if err == nil {
			return txn, nil
		}
		if !errors.Is(err, domainErrors.ErrDuplicateReference) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

func (s *CheckoutService) checkMethodEnabled(method entity.PaymentMethod) error {
	settings, err := s.settings.Get()
	if err != nil {
		return err
	}

	enabled := false
	switch method {
	case entity.PaymentMethodUPI:
		enabled = settings.UPI.Enabled
	case entity.PaymentMethodBankTransfer:
		enabled = settings.BankTransfer.Enabled
	case entity.PaymentMethodOnline:
		enabled = settings.Online.Enabled
	case entity.PaymentMethodPhonePe:
		enabled = settings.PhonePe.Enabled
	}

	if !enabled {
		return domainErrors.ErrGatewayDisabled
	}
	return nil
}

func referencePrefix(method entity.PaymentMethod) string {
	switch method {
	case entity.PaymentMethodPhonePe:
		return phonepe.ReferencePrefix
	case entity.PaymentMethodUPI:
		return "UPI"
	case entity.PaymentMethodBankTransfer:
		return "BNK"
	default:
		return "ONL"
	}
}
