package http_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	handlers "github.com/propbazaar/payments-service/internal/adapter/handler/http"
	"github.com/propbazaar/payments-service/internal/config"
	"github.com/propbazaar/payments-service/internal/domain/entity"
	domainErrors "github.com/propbazaar/payments-service/internal/domain/errors"
	"github.com/propbazaar/payments-service/internal/domain/model"
	"github.com/propbazaar/payments-service/internal/domain/repository"
	gatewayfactory "github.com/propbazaar/payments-service/internal/infrastructure/gateway"
	"github.com/propbazaar/payments-service/internal/infrastructure/gateway/phonepe"
	"github.com/propbazaar/payments-service/internal/usecase"
)

const testSaltKey = "webhook-salt"

type mockTxnRepo struct{ mock.Mock }

func (m *mockTxnRepo) Create(ctx context.Context, txn *model.Transaction) error {
	return m.Called(ctx, txn).Error(0)
}

func (m *mockTxnRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *mockTxnRepo) GetByReference(ctx context.Context, method entity.PaymentMethod, reference string) (*model.Transaction, error) {
	args := m.Called(ctx, method, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *mockTxnRepo) TransitionStatus(ctx context.Context, id uuid.UUID, transition repository.StatusTransition) (bool, error) {
	args := m.Called(ctx, id, transition)
	return args.Bool(0), args.Error(1)
}

func (m *mockTxnRepo) SetPaymentDetails(ctx context.Context, id uuid.UUID, details datatypes.JSON) error {
	return m.Called(ctx, id, details).Error(0)
}

func (m *mockTxnRepo) List(ctx context.Context, filter repository.TransactionFilter, params entity.PaginationParams) ([]*model.Transaction, int64, error) {
	args := m.Called(ctx, filter, params)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Transaction), args.Get(1).(int64), args.Error(2)
}

type mockEventRepo struct{ mock.Mock }

func (m *mockEventRepo) Record(ctx context.Context, event *model.PhonePeCallbackEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockEventRepo) ListByReference(ctx context.Context, merchantTransactionID string) ([]*model.PhonePeCallbackEvent, error) {
	args := m.Called(ctx, merchantTransactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PhonePeCallbackEvent), args.Error(1)
}

type mockActivationRepo struct{ mock.Mock }

func (m *mockActivationRepo) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*model.PackageActivation, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PackageActivation), args.Error(1)
}

func (m *mockActivationRepo) Create(ctx context.Context, activation *model.PackageActivation) (*model.PackageActivation, error) {
	args := m.Called(ctx, activation)
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}
	if args.Get(0) == nil {
		return activation, nil
	}
	return args.Get(0).(*model.PackageActivation), nil
}

type mockFailureRepo struct{ mock.Mock }

func (m *mockFailureRepo) Record(ctx context.Context, failure *model.ActivationFailure) error {
	return m.Called(ctx, failure).Error(0)
}

func (m *mockFailureRepo) ResolveByTransactionID(ctx context.Context, transactionID uuid.UUID) error {
	return m.Called(ctx, transactionID).Error(0)
}

func (m *mockFailureRepo) ListUnresolved(ctx context.Context, limit int) ([]*model.ActivationFailure, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ActivationFailure), args.Error(1)
}

type mockPackageRepo struct{ mock.Mock }

func (m *mockPackageRepo) GetByID(ctx context.Context, id int64) (*model.ListingPackage, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ListingPackage), args.Error(1)
}

func (m *mockPackageRepo) ListActive(ctx context.Context) ([]*model.ListingPackage, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ListingPackage), args.Error(1)
}

type mockListingRepo struct{ mock.Mock }

func (m *mockListingRepo) ApplyPromotion(ctx context.Context, propertyID string, packageID int64, expiresAt time.Time, features model.Features) error {
	return m.Called(ctx, propertyID, packageID, expiresAt, features).Error(0)
}

type webhookFixture struct {
	txnRepo   *mockTxnRepo
	eventRepo *mockEventRepo
	handler   *handlers.PhonePeWebhookHandler
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	logger := zap.NewNop()

	txnRepo := new(mockTxnRepo)
	eventRepo := new(mockEventRepo)
	settings := config.NewGatewaySettingsLoader(func() (*config.GatewaysConfig, error) {
		return &config.GatewaysConfig{
			PhonePe: config.PhonePeConfig{
				Enabled:   true,
				SaltKey:   testSaltKey,
				SaltIndex: "1",
			},
		}, nil
	}, 0)

	// The activation path is covered by its own tests; here it just needs
	// to complete, so an existing activation short-circuits it.
	activationRepo := new(mockActivationRepo)
	activationRepo.On("GetByTransactionID", mock.Anything, mock.Anything).
		Return(&model.PackageActivation{ID: 1}, nil).Maybe()

	activation := usecase.NewActivationService(
		activationRepo, new(mockFailureRepo), new(mockPackageRepo), new(mockListingRepo), nil, logger)
	reconcile := usecase.NewReconcileService(txnRepo, activation, settings, logger)
	registry := gatewayfactory.NewRegistry(settings, logger)

	handler := handlers.NewPhonePeWebhookHandler(reconcile, registry, txnRepo, eventRepo, logger)
	return &webhookFixture{txnRepo: txnRepo, eventRepo: eventRepo, handler: handler}
}

func callbackBody(t *testing.T, reference, state string) (string, string) {
	t.Helper()
	inner, err := json.Marshal(map[string]interface{}{
		"success": state == "COMPLETED",
		"code":    "PAYMENT_" + state,
		"data": map[string]interface{}{
			"merchantTransactionId": reference,
			"transactionId":         "T" + reference,
			"state":                 state,
			"amount":                49900,
		},
	})
	require.NoError(t, err)

	encoded := base64.StdEncoding.EncodeToString(inner)
	body := fmt.Sprintf(`{"response":%q}`, encoded)
	return body, encoded
}

func postCallback(fix *webhookFixture, body, signature string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/phonepe/callback", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if signature != "" {
		req.Header.Set("X-VERIFY", signature)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	_ = fix.handler.Callback(c)
	return rec
}

func TestPhonePeWebhookHandler_Callback(t *testing.T) {
	reference := "PBZ555"

	pendingTxn := func() *model.Transaction {
		return &model.Transaction{
			ID:               uuid.New(),
			UserID:           "user-1",
			PackageID:        7,
			AmountRupees:     499,
			PaymentMethod:    entity.PaymentMethodPhonePe,
			GatewayReference: reference,
			Status:           model.TransactionStatusColumn(entity.TransactionStatusPending),
		}
	}

	t.Run("signed COMPLETED callback settles the transaction", func(t *testing.T) {
		fix := newWebhookFixture(t)
		txn := pendingTxn()
		paid := *txn
		paid.Status = model.TransactionStatusColumn(entity.TransactionStatusPaid)

		body, encoded := callbackBody(t, reference, "COMPLETED")
		signature := phonepe.Sign(encoded, "", testSaltKey, "1")

		fix.txnRepo.On("GetByReference", mock.Anything, entity.PaymentMethodPhonePe, reference).Return(txn, nil)
		fix.txnRepo.On("TransitionStatus", mock.Anything, txn.ID, mock.Anything).Return(true, nil)
		fix.txnRepo.On("GetByID", mock.Anything, txn.ID).Return(&paid, nil)
		fix.eventRepo.On("Record", mock.Anything, mock.MatchedBy(func(ev *model.PhonePeCallbackEvent) bool {
			return ev.MerchantTransactionID == reference &&
				ev.SignatureValid &&
				ev.Status == model.CallbackEventAccepted
		})).Return(nil)

		rec := postCallback(fix, body, signature)

		assert.Equal(t, http.StatusOK, rec.Code)
		fix.eventRepo.AssertExpectations(t)
	})

	t.Run("forged signature is rejected and audited", func(t *testing.T) {
		fix := newWebhookFixture(t)
		txn := pendingTxn()

		body, encoded := callbackBody(t, reference, "COMPLETED")
		signature := phonepe.Sign(encoded, "", "attacker-salt", "1")

		fix.txnRepo.On("GetByReference", mock.Anything, entity.PaymentMethodPhonePe, reference).Return(txn, nil)
		fix.eventRepo.On("Record", mock.Anything, mock.MatchedBy(func(ev *model.PhonePeCallbackEvent) bool {
			return !ev.SignatureValid && ev.Status == model.CallbackEventRejected
		})).Return(nil)

		rec := postCallback(fix, body, signature)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		fix.txnRepo.AssertNotCalled(t, "TransitionStatus")
		fix.eventRepo.AssertExpectations(t)
	})

	t.Run("duplicate delivery on settled transaction is acked and ignored", func(t *testing.T) {
		fix := newWebhookFixture(t)
		settled := pendingTxn()
		settled.Status = model.TransactionStatusColumn(entity.TransactionStatusPaid)

		body, encoded := callbackBody(t, reference, "COMPLETED")
		signature := phonepe.Sign(encoded, "", testSaltKey, "1")

		fix.txnRepo.On("GetByReference", mock.Anything, entity.PaymentMethodPhonePe, reference).Return(settled, nil)
		fix.eventRepo.On("Record", mock.Anything, mock.MatchedBy(func(ev *model.PhonePeCallbackEvent) bool {
			return ev.Status == model.CallbackEventIgnored
		})).Return(nil)

		rec := postCallback(fix, body, signature)

		assert.Equal(t, http.StatusOK, rec.Code)
		fix.txnRepo.AssertNotCalled(t, "TransitionStatus")
		fix.eventRepo.AssertExpectations(t)
	})

	t.Run("unsigned duplicate is acked but audited as unverified", func(t *testing.T) {
		fix := newWebhookFixture(t)
		settled := pendingTxn()
		settled.Status = model.TransactionStatusColumn(entity.TransactionStatusPaid)

		body, encoded := callbackBody(t, reference, "COMPLETED")
		signature := phonepe.Sign(encoded, "", "attacker-salt", "1")

		fix.txnRepo.On("GetByReference", mock.Anything, entity.PaymentMethodPhonePe, reference).Return(settled, nil)
		fix.eventRepo.On("Record", mock.Anything, mock.MatchedBy(func(ev *model.PhonePeCallbackEvent) bool {
			return !ev.SignatureValid && ev.Status == model.CallbackEventIgnored
		})).Return(nil)

		rec := postCallback(fix, body, signature)

		assert.Equal(t, http.StatusOK, rec.Code)
		fix.eventRepo.AssertExpectations(t)
	})

	t.Run("signed callback for unknown reference is audited as verified", func(t *testing.T) {
		fix := newWebhookFixture(t)

		body, encoded := callbackBody(t, reference, "COMPLETED")
		signature := phonepe.Sign(encoded, "", testSaltKey, "1")

		fix.txnRepo.On("GetByReference", mock.Anything, entity.PaymentMethodPhonePe, reference).
			Return(nil, domainErrors.ErrTransactionNotFound)
		fix.eventRepo.On("Record", mock.Anything, mock.MatchedBy(func(ev *model.PhonePeCallbackEvent) bool {
			return ev.SignatureValid && ev.Status == model.CallbackEventRejected
		})).Return(nil)

		rec := postCallback(fix, body, signature)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		fix.eventRepo.AssertExpectations(t)
	})

	t.Run("malformed body is a 400", func(t *testing.T) {
		fix := newWebhookFixture(t)

		rec := postCallback(fix, `{"response":""}`, "whatever")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		fix.eventRepo.AssertNotCalled(t, "Record")
	})

	t.Run("payload that is not base64 is a 400", func(t *testing.T) {
		fix := newWebhookFixture(t)

		rec := postCallback(fix, `{"response":"!!not-base64!!"}`, "whatever")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
