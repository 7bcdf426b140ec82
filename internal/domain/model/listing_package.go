package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Package type constants
const (
	PackageTypeFeatured = "featured"
	PackageTypePremium  = "premium"
	PackageTypeBasic    = "basic"
)

// ListingPackage represents a purchasable listing-promotion package.
// PriceRupees is exact decimal; transactions freeze it to a whole-rupee
// integer at creation time.
type ListingPackage struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Code         string          `gorm:"unique;not null;size:100" json:"code"`
	DisplayName  string          `gorm:"not null;size:200" json:"display_name"`
	Description  string          `json:"description"`
	Type         string          `gorm:"not null;size:20;default:'basic'" json:"type"`
	PriceRupees  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price_rupees"`
	Currency     string          `gorm:"size:3;not null;default:'INR'" json:"currency"`
	DurationDays int             `gorm:"not null" json:"duration_days"`
	SortOrder    int             `gorm:"default:0" json:"sort_order"`
	IsActive     bool            `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time       `gorm:"default:now()" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"default:now()" json:"updated_at"`
}

// FeatureFlags derives the visibility flags granted by this package type.
func (p *ListingPackage) FeatureFlags() Features {
	switch p.Type {
	case PackageTypeFeatured:
		return Features{"featured": true}
	case PackageTypePremium:
		return Features{"featured": true, "premium": true}
	default:
		return Features{}
	}
}

// TableName specifies the table name for GORM
func (ListingPackage) TableName() string {
	return "listing_packages"
}
