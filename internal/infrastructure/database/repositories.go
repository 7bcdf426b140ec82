package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/propbazaar/payments-service/internal/adapter/repository"
	domainRepo "github.com/propbazaar/payments-service/internal/domain/repository"
)

// Repositories holds all repository instances
type Repositories struct {
	Transaction       domainRepo.TransactionRepository
	Activation        domainRepo.ActivationRepository
	ActivationFailure domainRepo.ActivationFailureRepository
	Package           domainRepo.PackageRepository
	Listing           domainRepo.ListingRepository
	CallbackEvent     domainRepo.CallbackEventRepository
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Transaction:       repository.NewTransactionRepository(db, logger),
		Activation:        repository.NewActivationRepository(db, logger),
		ActivationFailure: repository.NewActivationFailureRepository(db, logger),
		Package:           repository.NewPackageRepository(db, logger),
		Listing:           repository.NewListingRepository(db, logger),
		CallbackEvent:     repository.NewCallbackEventRepository(db, logger),
	}
}
