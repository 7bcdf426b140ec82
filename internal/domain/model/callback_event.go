package model

import (
	"database/sql/driver"
	"time"
)

// CallbackEventStatus represents the processing outcome of a callback delivery
type CallbackEventStatus string

const (
	CallbackEventAccepted CallbackEventStatus = "accepted"
	CallbackEventIgnored  CallbackEventStatus = "ignored"
	CallbackEventRejected CallbackEventStatus = "rejected"
)

// Scan implements sql.Scanner interface
func (s *CallbackEventStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = CallbackEventStatus(v)
	case []byte:
		*s = CallbackEventStatus(v)
	default:
		*s = CallbackEventRejected
	}
	return nil
}

// Value implements driver.Valuer interface
func (s CallbackEventStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// PhonePeCallbackEvent is the audit log of every callback delivery received
// from the gateway, including duplicates and rejected forgeries. Idempotency
// lives in the transaction store, not here; at-least-once delivery means
// duplicate rows are expected and informative.
type PhonePeCallbackEvent struct {
	ID                    int64               `gorm:"primaryKey;autoIncrement" json:"id"`
	MerchantTransactionID string              `gorm:"size:100;index" json:"merchant_transaction_id"`
	State                 string              `gorm:"size:50" json:"state"`
	SignatureValid        bool                `gorm:"not null" json:"signature_valid"`
	Status                CallbackEventStatus `gorm:"size:20;not null" json:"status"`
	Payload               JSONB               `gorm:"type:jsonb" json:"payload,omitempty"`
	CreatedAt             time.Time           `gorm:"default:now()" json:"created_at"`
}

// TableName specifies the table name for GORM
func (PhonePeCallbackEvent) TableName() string {
	return "phonepe_callback_events"
}
