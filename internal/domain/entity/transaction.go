package entity

// TransactionStatus represents the lifecycle state of a payment attempt.
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusPaid       TransactionStatus = "paid"
	TransactionStatusApproved   TransactionStatus = "approved"
	TransactionStatusRejected   TransactionStatus = "rejected"
	TransactionStatusFailed     TransactionStatus = "failed"
	TransactionStatusCancelled  TransactionStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are allowed from s.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TransactionStatusPaid, TransactionStatusApproved,
		TransactionStatusRejected, TransactionStatusFailed,
		TransactionStatusCancelled:
		return true
	}
	return false
}

// IsSuccess reports whether s represents a confirmed payment.
func (s TransactionStatus) IsSuccess() bool {
	return s == TransactionStatusPaid || s == TransactionStatusApproved
}

// PaymentMethod identifies the channel a payment attempt goes through.
type PaymentMethod string

const (
	PaymentMethodUPI          PaymentMethod = "upi"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodOnline       PaymentMethod = "online"
	PaymentMethodPhonePe      PaymentMethod = "phonepe"
)

// ParsePaymentMethod validates a raw method string.
func ParsePaymentMethod(raw string) (PaymentMethod, bool) {
	switch PaymentMethod(raw) {
	case PaymentMethodUPI, PaymentMethodBankTransfer,
		PaymentMethodOnline, PaymentMethodPhonePe:
		return PaymentMethod(raw), true
	}
	return "", false
}

// IsManual reports whether confirmation for this channel comes from an
// admin decision rather than the gateway.
func (m PaymentMethod) IsManual() bool {
	return m == PaymentMethodUPI || m == PaymentMethodBankTransfer
}
