package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/propbazaar/payments-service/internal/domain/entity"
)

// TransactionStatusColumn wraps entity.TransactionStatus for database storage.
type TransactionStatusColumn entity.TransactionStatus

// Scan implements sql.Scanner interface
func (s *TransactionStatusColumn) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = TransactionStatusColumn(v)
	case []byte:
		*s = TransactionStatusColumn(v)
	default:
		*s = TransactionStatusColumn(entity.TransactionStatusPending)
	}
	return nil
}

// Value implements driver.Valuer interface
func (s TransactionStatusColumn) Value() (driver.Value, error) {
	return string(s), nil
}

// Transaction represents a single payment attempt.
//
// AmountRupees is frozen at creation from the package price and never
// recomputed; it is a whole-rupee integer, never a float. GatewayReference
// is the sole idempotency key for reconciling repeated gateway events and
// is unique per payment method.
type Transaction struct {
	ID               uuid.UUID                `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           string                   `gorm:"size:64;not null;index" json:"user_id"`
	PackageID        int64                    `gorm:"not null;index" json:"package_id"`
	PropertyID       *string                  `gorm:"size:64;index" json:"property_id,omitempty"`
	AmountRupees     int64                    `gorm:"not null" json:"amount_rupees"`
	Currency         string                   `gorm:"size:3;not null;default:'INR'" json:"currency"`
	PaymentMethod    entity.PaymentMethod     `gorm:"size:20;not null;uniqueIndex:idx_method_reference" json:"payment_method"`
	GatewayReference string                   `gorm:"size:100;not null;uniqueIndex:idx_method_reference" json:"gateway_reference"`
	PaymentDetails   datatypes.JSON           `gorm:"type:jsonb" json:"payment_details,omitempty"`
	Status           TransactionStatusColumn  `gorm:"size:20;not null;default:'pending';index" json:"status"`
	GatewayTxnID     *string                  `gorm:"size:100" json:"gateway_txn_id,omitempty"`
	AdminNotes       *string                  `json:"admin_notes,omitempty"`
	ProcessedBy      *string                  `gorm:"size:64" json:"processed_by,omitempty"`
	PaidAt           *time.Time               `json:"paid_at,omitempty"`
	RejectedAt       *time.Time               `json:"rejected_at,omitempty"`
	CreatedAt        time.Time                `gorm:"default:now()" json:"created_at"`
	UpdatedAt        time.Time                `gorm:"default:now()" json:"updated_at"`
}

// BeforeCreate assigns a store-generated id.
func (t *Transaction) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// CurrentStatus returns the status as a domain value.
func (t *Transaction) CurrentStatus() entity.TransactionStatus {
	return entity.TransactionStatus(t.Status)
}

// TableName specifies the table name for GORM
func (Transaction) TableName() string {
	return "payment_transactions"
}
