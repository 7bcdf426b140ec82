package repository

import (
	"context"
	"time"

	"github.com/propbazaar/payments-service/internal/domain/model"
)

// PackageRepository reads listing-promotion packages.
type PackageRepository interface {
	GetByID(ctx context.Context, id int64) (*model.ListingPackage, error)
	ListActive(ctx context.Context) ([]*model.ListingPackage, error)
}

// ListingRepository is the boundary to the listings collaborator. Only the
// promotion fields are touched here; listing CRUD lives elsewhere.
type ListingRepository interface {
	ApplyPromotion(ctx context.Context, propertyID string, packageID int64, expiresAt time.Time, features model.Features) error
}
