package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	domainErrors "github.com/propbazaar/payments-service/internal/domain/errors"
	"github.com/propbazaar/payments-service/internal/domain/model"
	"github.com/propbazaar/payments-service/internal/domain/repository"
)

type packageRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPackageRepository creates a new package repository
func NewPackageRepository(db *gorm.DB, logger *zap.Logger) repository.PackageRepository {
	return &packageRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a package by id.
func (r *packageRepository) GetByID(ctx context.Context, id int64) (*model.ListingPackage, error) {
	var pkg model.ListingPackage
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&pkg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.ErrPackageNotFound
		}
		r.logger.Error("Failed to get package",
			zap.Int64("package_id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get package: %w", err)
	}
	return &pkg, nil
}

// ListActive returns active packages in display order.
func (r *packageRepository) ListActive(ctx context.Context) ([]*model.ListingPackage, error) {
	var packages []*model.ListingPackage
	err := r.db.WithContext(ctx).
		Where("is_active = true").
		Order("sort_order ASC, id ASC").
		Find(&packages).Error
	if err != nil {
		r.logger.Error("Failed to list packages", zap.Error(err))
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}
	return packages, nil
}

type listingRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewListingRepository creates the listings collaborator boundary
func NewListingRepository(db *gorm.DB, logger *zap.Logger) repository.ListingRepository {
	return &listingRepository{
		db:     db,
		logger: logger,
	}
}

// ApplyPromotion writes the promotion fields onto the listing row. Listing
// CRUD is owned elsewhere; only these columns are touched.
func (r *listingRepository) ApplyPromotion(ctx context.Context, propertyID string, packageID int64, expiresAt time.Time, features model.Features) error {
	updates := map[string]interface{}{
		"package_id":     packageID,
		"package_expiry": expiresAt,
		"updated_at":     time.Now(),
	}
	if featured, ok := features["featured"].(bool); ok {
		updates["featured"] = featured
	}
	if premium, ok := features["premium"].(bool); ok {
		updates["premium"] = premium
	}

	err := r.db.WithContext(ctx).
		Table("listings").
		Where("id = ?", propertyID).
		Updates(updates).Error
	if err != nil {
		r.logger.Error("Failed to apply promotion to listing",
			zap.String("property_id", propertyID),
			zap.Int64("package_id", packageID),
			zap.Error(err))
		return fmt.Errorf("failed to apply promotion: %w", err)
	}
	return nil
}
