package model

import (
	"time"

	"github.com/google/uuid"
)

// PackageActivation is the derived record of a successfully paid
// transaction. Exactly one exists per transaction; the unique index on
// TransactionID is what makes activation idempotent under races.
type PackageActivation struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"transaction_id"`
	PropertyID      *string   `gorm:"size:64;index" json:"property_id,omitempty"`
	PackageID       int64     `gorm:"not null;index" json:"package_id"`
	ActivatedAt     time.Time `gorm:"not null" json:"activated_at"`
	ExpiresAt       time.Time `gorm:"not null" json:"expires_at"`
	FeaturesGranted Features  `gorm:"type:jsonb;default:'{}'" json:"features_granted"`
	CreatedAt       time.Time `gorm:"default:now()" json:"created_at"`
}

// TableName specifies the table name for GORM
func (PackageActivation) TableName() string {
	return "package_activations"
}
