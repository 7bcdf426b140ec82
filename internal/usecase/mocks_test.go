package usecase_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"gorm.io/datatypes"

	"github.com/propbazaar/payments-service/internal/config"
	"github.com/propbazaar/payments-service/internal/domain/entity"
	"github.com/propbazaar/payments-service/internal/domain/model"
	"github.com/propbazaar/payments-service/internal/domain/repository"
)

// MockTransactionRepository is a mock implementation of TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, txn *model.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByReference(ctx context.Context, method entity.PaymentMethod, reference string) (*model.Transaction, error) {
	args := m.Called(ctx, method, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) TransitionStatus(ctx context.Context, id uuid.UUID, transition repository.StatusTransition) (bool, error) {
	args := m.Called(ctx, id, transition)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) SetPaymentDetails(ctx context.Context, id uuid.UUID, details datatypes.JSON) error {
	args := m.Called(ctx, id, details)
	return args.Error(0)
}

func (m *MockTransactionRepository) List(ctx context.Context, filter repository.TransactionFilter, params entity.PaginationParams) ([]*model.Transaction, int64, error) {
	args := m.Called(ctx, filter, params)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Transaction), args.Get(1).(int64), args.Error(2)
}

// MockActivationRepository is a mock implementation of ActivationRepository
type MockActivationRepository struct {
	mock.Mock
}

func (m *MockActivationRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*model.PackageActivation, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PackageActivation), args.Error(1)
}

func (m *MockActivationRepository) Create(ctx context.Context, activation *model.PackageActivation) (*model.PackageActivation, error) {
	args := m.Called(ctx, activation)
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}
	// nil return stands for insert-and-echo, like the real repository.
	if args.Get(0) == nil {
		return activation, nil
	}
	return args.Get(0).(*model.PackageActivation), nil
}

// MockActivationFailureRepository is a mock implementation of ActivationFailureRepository
type MockActivationFailureRepository struct {
	mock.Mock
}

func (m *MockActivationFailureRepository) Record(ctx context.Context, failure *model.ActivationFailure) error {
	args := m.Called(ctx, failure)
	return args.Error(0)
}

func (m *MockActivationFailureRepository) ResolveByTransactionID(ctx context.Context, transactionID uuid.UUID) error {
	args := m.Called(ctx, transactionID)
	return args.Error(0)
}

func (m *MockActivationFailureRepository) ListUnresolved(ctx context.Context, limit int) ([]*model.ActivationFailure, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ActivationFailure), args.Error(1)
}

// MockPackageRepository is a mock implementation of PackageRepository
type MockPackageRepository struct {
	mock.Mock
}

func (m *MockPackageRepository) GetByID(ctx context.Context, id int64) (*model.ListingPackage, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ListingPackage), args.Error(1)
}

func (m *MockPackageRepository) ListActive(ctx context.Context) ([]*model.ListingPackage, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ListingPackage), args.Error(1)
}

// MockListingRepository is a mock implementation of ListingRepository
type MockListingRepository struct {
	mock.Mock
}

func (m *MockListingRepository) ApplyPromotion(ctx context.Context, propertyID string, packageID int64, expiresAt time.Time, features model.Features) error {
	args := m.Called(ctx, propertyID, packageID, expiresAt, features)
	return args.Error(0)
}

// MockRemediationPublisher is a mock implementation of RemediationPublisher
type MockRemediationPublisher struct {
	mock.Mock
}

func (m *MockRemediationPublisher) PublishActivationFailure(ctx context.Context, failure *model.ActivationFailure) error {
	args := m.Called(ctx, failure)
	return args.Error(0)
}

// staticSettings builds a loader that always serves the given config.
func staticSettings(cfg *config.GatewaysConfig) *config.GatewaySettingsLoader {
	return config.NewGatewaySettingsLoader(func() (*config.GatewaysConfig, error) {
		return cfg, nil
	}, 0)
}
