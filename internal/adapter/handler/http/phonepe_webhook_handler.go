package http

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/propbazaar/payments-service/internal/domain/entity"
	domainErrors "github.com/propbazaar/payments-service/internal/domain/errors"
	"github.com/propbazaar/payments-service/internal/domain/model"
	"github.com/propbazaar/payments-service/internal/domain/repository"
	gatewayfactory "github.com/propbazaar/payments-service/internal/infrastructure/gateway"
	"github.com/propbazaar/payments-service/internal/middleware/auth"
	"github.com/propbazaar/payments-service/internal/usecase"
)

const verifyHeader = "X-VERIFY"

// PhonePeWebhookHandler receives server-to-server callbacks from PhonePe and
// exposes the manual status poll. Every callback delivery is recorded before
// any decision is taken on it.
type PhonePeWebhookHandler struct {
	reconcile *usecase.ReconcileService
	registry  *gatewayfactory.Registry
	txnRepo   repository.TransactionRepository
	events    repository.CallbackEventRepository
	logger    *zap.Logger
}

// NewPhonePeWebhookHandler creates a new PhonePeWebhookHandler.
func NewPhonePeWebhookHandler(
	reconcile *usecase.ReconcileService,
	registry *gatewayfactory.Registry,
	txnRepo repository.TransactionRepository,
	events repository.CallbackEventRepository,
	logger *zap.Logger,
) *PhonePeWebhookHandler {
	return &PhonePeWebhookHandler{
		reconcile: reconcile,
		registry:  registry,
		txnRepo:   txnRepo,
		events:    events,
		logger:    logger,
	}
}

type callbackEnvelope struct {
	Response string `json:"response"`
}

type callbackPayload struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Data    struct {
		MerchantTransactionID string `json:"merchantTransactionId"`
		TransactionID         string `json:"transactionId"`
		State                 string `json:"state"`
		Amount                int64  `json:"amount"`
	} `json:"data"`
}

// Callback handles POST /payments/phonepe/callback. The endpoint is
// unauthenticated; trust comes from the checksum header alone.
func (h *PhonePeWebhookHandler) Callback(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Unreadable body",
			"code":  "VALIDATION_ERROR",
		})
	}

	var envelope callbackEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Response == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Malformed callback body",
			"code":  "VALIDATION_ERROR",
		})
	}

	decoded, err := base64.StdEncoding.DecodeString(envelope.Response)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Malformed callback payload",
			"code":  "VALIDATION_ERROR",
		})
	}
	var payload callbackPayload
	if err := json.Unmarshal(decoded, &payload); err != nil || payload.Data.MerchantTransactionID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Malformed callback payload",
			"code":  "VALIDATION_ERROR",
		})
	}

	reference := payload.Data.MerchantTransactionID
	signature := c.Request().Header.Get(verifyHeader)
	sigValid := h.reconcile.VerifyCallback(envelope.Response, signature) == nil

	// Duplicate deliveries of settled transactions are expected from the
	// gateway retry schedule; ack them so retries stop, and audit the
	// actual verification result.
	if existing, err := h.txnRepo.GetByReference(c.Request().Context(), entity.PaymentMethodPhonePe, reference); err == nil {
		if existing.CurrentStatus().IsTerminal() {
			h.recordEvent(c, reference, payload.Data.State, sigValid, model.CallbackEventIgnored, decoded)
			return c.JSON(http.StatusOK, echo.Map{
				"status": existing.Status,
			})
		}
	}

	txn, err := h.reconcile.Reconcile(c.Request().Context(), entity.PaymentMethodPhonePe, reference, entity.Evidence{
		Kind:         entity.EvidenceGatewayCallback,
		RawBody:      envelope.Response,
		Signature:    signature,
		GatewayState: payload.Data.State,
		GatewayTxnID: payload.Data.TransactionID,
	})
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrInvalidSignature):
			h.recordEvent(c, reference, payload.Data.State, false, model.CallbackEventRejected, decoded)
			h.logger.Warn("Rejected callback with invalid signature",
				zap.String("merchant_transaction_id", reference))
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "Invalid signature",
				"code":  "INVALID_SIGNATURE",
			})
		case errors.Is(err, domainErrors.ErrTransactionNotFound):
			// Reconcile verifies before it looks up, so a not-found
			// always carried a valid signature.
			h.recordEvent(c, reference, payload.Data.State, sigValid, model.CallbackEventRejected, decoded)
			return c.JSON(http.StatusNotFound, echo.Map{
				"error": "Unknown transaction",
				"code":  "TRANSACTION_NOT_FOUND",
			})
		}
		h.logger.Error("Callback reconciliation failed",
			zap.String("merchant_transaction_id", reference),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Reconciliation failed",
			"code":  "INTERNAL_ERROR",
		})
	}

	h.recordEvent(c, reference, payload.Data.State, true, model.CallbackEventAccepted, decoded)

	return c.JSON(http.StatusOK, echo.Map{
		"status": txn.Status,
	})
}

// PollStatus handles GET /payments/phonepe/status/:reference. The outbound
// status request is signed by us, so the answer is trusted evidence.
func (h *PhonePeWebhookHandler) PollStatus(c echo.Context) error {
	if _, err := auth.RequireAdmin(c); err != nil {
		return err
	}

	reference := c.Param("reference")
	if reference == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Missing reference",
			"code":  "VALIDATION_ERROR",
		})
	}

	gw, err := h.registry.Get(entity.PaymentMethodPhonePe)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "PhonePe is not enabled",
			"code":  "GATEWAY_DISABLED",
		})
	}

	status, err := gw.Status(c.Request().Context(), reference)
	if err != nil {
		if errors.Is(err, domainErrors.ErrGatewayUnavailable) {
			return c.JSON(http.StatusBadGateway, echo.Map{
				"error": "Gateway unavailable",
				"code":  "GATEWAY_UNAVAILABLE",
			})
		}
		h.logger.Error("Status poll failed",
			zap.String("gateway_reference", reference),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Status poll failed",
			"code":  "INTERNAL_ERROR",
		})
	}

	txn, err := h.reconcile.Reconcile(c.Request().Context(), entity.PaymentMethodPhonePe, reference, entity.Evidence{
		Kind:         entity.EvidenceStatusPoll,
		GatewayState: status.State,
		GatewayTxnID: status.GatewayTxnID,
	})
	if err != nil {
		if errors.Is(err, domainErrors.ErrTransactionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{
				"error": "Transaction not found",
				"code":  "TRANSACTION_NOT_FOUND",
			})
		}
		h.logger.Error("Poll reconciliation failed",
			zap.String("gateway_reference", reference),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Reconciliation failed",
			"code":  "INTERNAL_ERROR",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"transaction":   txn,
		"gateway_state": status.State,
	})
}

func (h *PhonePeWebhookHandler) recordEvent(c echo.Context, reference, state string, sigValid bool, status model.CallbackEventStatus, payload []byte) {
	var decoded model.JSONB
	if err := json.Unmarshal(payload, &decoded); err != nil {
		decoded = model.JSONB{}
	}
	event := &model.PhonePeCallbackEvent{
		MerchantTransactionID: reference,
		State:                 state,
		SignatureValid:        sigValid,
		Status:                status,
		Payload:               decoded,
	}
	if err := h.events.Record(c.Request().Context(), event); err != nil {
		h.logger.Error("Failed to record callback event",
			zap.String("merchant_transaction_id", reference),
			zap.Error(err))
	}
}
