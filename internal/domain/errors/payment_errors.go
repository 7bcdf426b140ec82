package errors

import "github.com/propbazaar/payments-service/pkg/errors"

var (
	// ErrTransactionNotFound indicates no transaction matches the given reference or id
	ErrTransactionNotFound = errors.NewAppError(errors.ErrNotFound, "transaction not found", nil)

	// ErrPackageNotFound indicates the requested package does not exist or is inactive
	ErrPackageNotFound = errors.NewAppError(errors.ErrNotFound, "package not found", nil)

	// ErrPackageGone indicates the package was deleted after purchase; the
	// activation is queued for admin remediation rather than dropped
	ErrPackageGone = errors.NewAppError(errors.ErrConflict, "package no longer exists", nil)

	// ErrInvalidSignature indicates a callback failed checksum verification;
	// the transaction is left untouched
	ErrInvalidSignature = errors.NewAppError(errors.ErrInvalidArgument, "invalid callback signature", nil)

	// ErrGatewayDisabled indicates the payment method is not enabled in configuration
	ErrGatewayDisabled = errors.NewAppError(errors.ErrInvalidArgument, "payment gateway not enabled", nil)

	// ErrGatewayUnavailable indicates a network or timeout failure talking to
	// the remote gateway; the transaction stays pending and is recoverable
	ErrGatewayUnavailable = errors.NewAppError(errors.ErrUnavailable, "payment gateway unavailable", nil)

	// ErrDuplicateReference indicates a gateway reference collision at insert time
	ErrDuplicateReference = errors.NewAppError(errors.ErrConflict, "duplicate gateway reference", nil)

	// ErrInvalidTransition indicates an admin decision targets a status the
	// state machine does not define
	ErrInvalidTransition = errors.NewAppError(errors.ErrInvalidArgument, "invalid status transition", nil)

	// ErrNonIntegralPrice indicates a package is priced with paise; transaction
	// amounts are whole rupees and such a catalogue entry must be corrected
	ErrNonIntegralPrice = errors.NewAppError(errors.ErrInternal, "package price is not a whole rupee amount", nil)
)
