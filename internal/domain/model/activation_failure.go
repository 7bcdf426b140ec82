package model

import (
	"time"

	"github.com/google/uuid"
)

// ActivationFailure records a confirmed payment whose package activation
// failed. A confirmed payment is never rolled back for a downstream
// activation bug; these rows are the admin remediation queue that makes the
// two truths converge.
type ActivationFailure struct {
	ID            int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionID uuid.UUID  `gorm:"type:uuid;not null;index" json:"transaction_id"`
	Code          string     `gorm:"size:50;not null" json:"code"`
	Reason        string     `gorm:"not null" json:"reason"`
	Resolved      bool       `gorm:"default:false;index" json:"resolved"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
	CreatedAt     time.Time  `gorm:"default:now()" json:"created_at"`
}

// TableName specifies the table name for GORM
func (ActivationFailure) TableName() string {
	return "activation_failures"
}
