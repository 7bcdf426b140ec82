package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/propbazaar/payments-service/internal/domain/entity"
	domainErrors "github.com/propbazaar/payments-service/internal/domain/errors"
	"github.com/propbazaar/payments-service/internal/domain/repository"
	"github.com/propbazaar/payments-service/internal/middleware/auth"
	"github.com/propbazaar/payments-service/internal/usecase"
)

// PaymentHandler serves transaction creation, lookup and the admin
// manual-review endpoints.
type PaymentHandler struct {
	checkout    *usecase.CheckoutService
	reconcile   *usecase.ReconcileService
	activation  *usecase.ActivationService
	txnRepo     repository.TransactionRepository
	failureRepo repository.ActivationFailureRepository
	logger      *zap.Logger
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(
	checkout *usecase.CheckoutService,
	reconcile *usecase.ReconcileService,
	activation *usecase.ActivationService,
	txnRepo repository.TransactionRepository,
	failureRepo repository.ActivationFailureRepository,
	logger *zap.Logger,
) *PaymentHandler {
	return &PaymentHandler{
		checkout:    checkout,
		reconcile:   reconcile,
		activation:  activation,
		txnRepo:     txnRepo,
		failureRepo: failureRepo,
		logger:      logger,
	}
}

// CreateTransactionRequest is the body of POST /payments/:method/transaction.
type CreateTransactionRequest struct {
	PackageID      int64                  `json:"package_id" validate:"required,gt=0"`
	PropertyID     *string                `json:"property_id,omitempty"`
	UserPhone      string                 `json:"user_phone,omitempty"`
	PaymentDetails map[string]interface{} `json:"payment_details,omitempty"`
}

// CreateTransaction creates a payment attempt on the selected channel.
func (h *PaymentHandler) CreateTransaction(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	method, ok := entity.ParsePaymentMethod(c.Param("method"))
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Unknown payment method",
			"code":  "VALIDATION_ERROR",
		})
	}

	var req CreateTransactionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request body",
			"code":  "VALIDATION_ERROR",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": err.Error(),
			"code":  "VALIDATION_ERROR",
		})
	}

	result, err := h.checkout.Initiate(c.Request().Context(), &usecase.CheckoutRequest{
		UserID:         user.UserID,
		PackageID:      req.PackageID,
		PropertyID:     req.PropertyID,
		Method:         method,
		UserPhone:      req.UserPhone,
		PaymentDetails: req.PaymentDetails,
	})
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrPackageNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{
				"error": "Package not found",
				"code":  "PACKAGE_NOT_FOUND",
			})
		case errors.Is(err, domainErrors.ErrGatewayDisabled):
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "Payment method not enabled",
				"code":  "GATEWAY_DISABLED",
			})
		case errors.Is(err, domainErrors.ErrGatewayUnavailable):
			// The transaction persisted; the client polls instead of
			// re-creating it.
			return c.JSON(http.StatusBadGateway, echo.Map{
				"error":          "Payment gateway unavailable, retry status later",
				"code":           "GATEWAY_UNAVAILABLE",
				"transaction_id": result.Transaction.ID,
				"status":         result.Transaction.Status,
			})
		}
		h.logger.Error("Failed to create transaction",
			zap.String("user_id", user.UserID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to create transaction",
			"code":  "INTERNAL_ERROR",
		})
	}

	resp := echo.Map{
		"transaction_id":    result.Transaction.ID,
		"status":            result.Transaction.Status,
		"amount":            result.Transaction.AmountRupees,
		"currency":          result.Transaction.Currency,
		"gateway_reference": result.Transaction.GatewayReference,
	}
	if result.Initiation != nil {
		if len(result.Initiation.Instructions) > 0 {
			resp["instructions"] = result.Initiation.Instructions
		}
		if result.Initiation.RedirectURL != "" {
			resp["redirect_url"] = result.Initiation.RedirectURL
		}
	}
	if result.Activation != nil {
		resp["activation"] = result.Activation
	}

	return c.JSON(http.StatusCreated, resp)
}

// UpdateStatusRequest is the admin decision body.
type UpdateStatusRequest struct {
	Status     string `json:"status" validate:"required,oneof=approved rejected"`
	AdminNotes string `json:"admin_notes,omitempty"`
}

// UpdateStatus applies an admin approval or rejection to a transaction.
func (h *PaymentHandler) UpdateStatus(c echo.Context) error {
	admin, err := auth.RequireAdmin(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid transaction id",
			"code":  "VALIDATION_ERROR",
		})
	}

	var req UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request body",
			"code":  "VALIDATION_ERROR",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": err.Error(),
			"code":  "VALIDATION_ERROR",
		})
	}

	txn, err := h.txnRepo.GetByID(c.Request().Context(), id)
	if err != nil {
		return h.notFoundOrInternal(c, err)
	}

	updated, err := h.reconcile.Reconcile(c.Request().Context(), txn.PaymentMethod, txn.GatewayReference, entity.Evidence{
		Kind:           entity.EvidenceAdminDecision,
		AdminID:        admin.UserID,
		AdminNotes:     req.AdminNotes,
		DecisionStatus: entity.TransactionStatus(req.Status),
	})
	if err != nil {
		if errors.Is(err, domainErrors.ErrInvalidTransition) {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "Invalid status transition",
				"code":  "INVALID_TRANSITION",
			})
		}
		return h.notFoundOrInternal(c, err)
	}

	return c.JSON(http.StatusOK, updated)
}

// ClaimRequest carries a user's self-reported payment details.
type ClaimRequest struct {
	PaymentDetails map[string]interface{} `json:"payment_details" validate:"required"`
}

// ClaimPayment records an unverified user self-report against the caller's
// own transaction and moves it into review.
func (h *PaymentHandler) ClaimPayment(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid transaction id",
			"code":  "VALIDATION_ERROR",
		})
	}

	var req ClaimRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request body",
			"code":  "VALIDATION_ERROR",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": err.Error(),
			"code":  "VALIDATION_ERROR",
		})
	}

	txn, err := h.txnRepo.GetByID(c.Request().Context(), id)
	if err != nil {
		return h.notFoundOrInternal(c, err)
	}
	if txn.UserID != user.UserID {
		return c.JSON(http.StatusForbidden, echo.Map{
			"error": "Not your transaction",
			"code":  "FORBIDDEN",
		})
	}

	updated, err := h.reconcile.Reconcile(c.Request().Context(), txn.PaymentMethod, txn.GatewayReference, entity.Evidence{
		Kind:         entity.EvidenceUserClaim,
		ClaimDetails: req.PaymentDetails,
	})
	if err != nil {
		return h.notFoundOrInternal(c, err)
	}

	return c.JSON(http.StatusOK, updated)
}

// RetryActivation re-runs the idempotent activation for a confirmed payment
// whose activation previously failed.
func (h *PaymentHandler) RetryActivation(c echo.Context) error {
	if _, err := auth.RequireAdmin(c); err != nil {
		return err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid transaction id",
			"code":  "VALIDATION_ERROR",
		})
	}

	txn, err := h.txnRepo.GetByID(c.Request().Context(), id)
	if err != nil {
		return h.notFoundOrInternal(c, err)
	}
	if !txn.CurrentStatus().IsSuccess() {
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "Transaction is not a confirmed payment",
			"code":  "NOT_CONFIRMED",
		})
	}

	activation, err := h.activation.Activate(c.Request().Context(), txn)
	if err != nil {
		if errors.Is(err, domainErrors.ErrPackageGone) {
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "Package no longer exists",
				"code":  "PACKAGE_GONE",
			})
		}
		h.logger.Error("Activation retry failed",
			zap.String("transaction_id", id.String()),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Activation failed",
			"code":  "INTERNAL_ERROR",
		})
	}

	return c.JSON(http.StatusOK, activation)
}

// ListTransactions returns filtered transactions for the admin console.
func (h *PaymentHandler) ListTransactions(c echo.Context) error {
	if _, err := auth.RequireAdmin(c); err != nil {
		return err
	}

	var params entity.PaginationParams
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid pagination parameters",
			"code":  "VALIDATION_ERROR",
		})
	}
	params.Validate()

	filter := repository.TransactionFilter{
		Status:        entity.TransactionStatus(c.QueryParam("status")),
		PaymentMethod: entity.PaymentMethod(c.QueryParam("method")),
		UserID:        c.QueryParam("user_id"),
	}

	txns, total, err := h.txnRepo.List(c.Request().Context(), filter, params)
	if err != nil {
		h.logger.Error("Failed to list transactions", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to list transactions",
			"code":  "INTERNAL_ERROR",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data":       txns,
		"pagination": entity.NewPaginationMeta(params.Page, params.Limit, total),
	})
}

// GetTransaction returns one transaction; owners see their own, admins any.
func (h *PaymentHandler) GetTransaction(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid transaction id",
			"code":  "VALIDATION_ERROR",
		})
	}

	txn, err := h.txnRepo.GetByID(c.Request().Context(), id)
	if err != nil {
		return h.notFoundOrInternal(c, err)
	}

	if txn.UserID != user.UserID && user.Role != auth.RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{
			"error": "Not your transaction",
			"code":  "FORBIDDEN",
		})
	}

	return c.JSON(http.StatusOK, txn)
}

// ListActivationFailures returns the unresolved remediation queue.
func (h *PaymentHandler) ListActivationFailures(c echo.Context) error {
	if _, err := auth.RequireAdmin(c); err != nil {
		return err
	}

	limit := 100
	if v := c.QueryParam("limit"); v != "" {
		if n, convErr := strconv.Atoi(v); convErr == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	failures, err := h.failureRepo.ListUnresolved(c.Request().Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list activation failures", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to list activation failures",
			"code":  "INTERNAL_ERROR",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data": failures,
	})
}

func (h *PaymentHandler) notFoundOrInternal(c echo.Context, err error) error {
	if errors.Is(err, domainErrors.ErrTransactionNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Transaction not found",
			"code":  "TRANSACTION_NOT_FOUND",
		})
	}
	h.logger.Error("Transaction operation failed", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{
		"error": "Internal error",
		"code":  "INTERNAL_ERROR",
	})
}
