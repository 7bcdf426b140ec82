package phonepe

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/propbazaar/payments-service/internal/config"
	"github.com/propbazaar/payments-service/internal/domain/entity"
	domainErrors "github.com/propbazaar/payments-service/internal/domain/errors"
	"github.com/propbazaar/payments-service/internal/domain/gateway"
)

const (
	payEndpoint    = "/pg/v1/pay"
	statusEndpoint = "/pg/v1/status"

	// ReferencePrefix starts every PhonePe merchant transaction id.
	ReferencePrefix = "PBZ"

	defaultTimeout = 15 * time.Second
)

// Client talks to the PhonePe payment gateway. It is the only adapter that
// leaves the process; every request carries an X-VERIFY checksum.
type Client struct {
	settings *config.GatewaySettingsLoader
	client   *http.Client
	logger   *zap.Logger
}

// NewClient creates a PhonePe gateway client. Settings come through the
// loader on every operation so rotated credentials are picked up.
func NewClient(settings *config.GatewaySettingsLoader, logger *zap.Logger) *Client {
	return &Client{
		settings: settings,
		client:   &http.Client{},
		logger:   logger,
	}
}

// Method implements gateway.Gateway.
func (c *Client) Method() entity.PaymentMethod {
	return entity.PaymentMethodPhonePe
}

type payRequest struct {
	MerchantID            string            `json:"merchantId"`
	MerchantTransactionID string            `json:"merchantTransactionId"`
	MerchantUserID        string            `json:"merchantUserId"`
	Amount                int64             `json:"amount"`
	RedirectURL           string            `json:"redirectUrl"`
	RedirectMode          string            `json:"redirectMode"`
	CallbackURL           string            `json:"callbackUrl"`
	MobileNumber          string            `json:"mobileNumber,omitempty"`
	PaymentInstrument     paymentInstrument `json:"paymentInstrument"`
}

type paymentInstrument struct {
	Type string `json:"type"`
}

type payResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		MerchantTransactionID string `json:"merchantTransactionId"`
		InstrumentResponse    struct {
			Type         string `json:"type"`
			RedirectInfo struct {
				URL    string `json:"url"`
				Method string `json:"method"`
			} `json:"redirectInfo"`
		} `json:"instrumentResponse"`
	} `json:"data"`
}

type statusResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		MerchantTransactionID string `json:"merchantTransactionId"`
		TransactionID         string `json:"transactionId"`
		State                 string `json:"state"`
		Amount                int64  `json:"amount"`
	} `json:"data"`
}

// Initiate builds, signs and posts the payment request, returning the hosted
// checkout redirect. The transaction row must already exist before this is
// called; a network failure here leaves it pending for later reconciliation.
func (c *Client) Initiate(ctx context.Context, req *gateway.InitiateRequest) (*gateway.InitiationResult, error) {
	settings, err := c.settings.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to load gateway settings: %w", err)
	}
	cfg := settings.PhonePe
	if !cfg.Enabled {
		return nil, domainErrors.ErrGatewayDisabled
	}

	body := payRequest{
		MerchantID:            cfg.MerchantID,
		MerchantTransactionID: req.GatewayReference,
		MerchantUserID:        req.UserID,
		Amount:                req.AmountRupees * 100, // wire amount is paise
		RedirectURL:           cfg.RedirectURL,
		RedirectMode:          "REDIRECT",
		CallbackURL:           cfg.CallbackURL,
		MobileNumber:          req.UserPhone,
		PaymentInstrument:     paymentInstrument{Type: "PAY_PAGE"},
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare pay request: %w", err)
	}

	payloadBase64 := base64.StdEncoding.EncodeToString(jsonBody)
	signature := Sign(payloadBase64, payEndpoint, cfg.SaltKey, cfg.SaltIndex)

	wrapper, err := json.Marshal(map[string]string{"request": payloadBase64})
	if err != nil {
		return nil, fmt.Errorf("failed to wrap pay request: %w", err)
	}

	c.logger.Info("PhonePe: initiating payment",
		zap.String("merchant_transaction_id", req.GatewayReference),
		zap.Int64("amount_rupees", req.AmountRupees))

	respBody, status, err := c.post(ctx, cfg, cfg.BaseURL+payEndpoint, wrapper, signature)
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		c.logger.Error("PhonePe: pay request rejected",
			zap.String("merchant_transaction_id", req.GatewayReference),
			zap.Int("status_code", status))
		return nil, fmt.Errorf("%w: gateway returned HTTP %d", domainErrors.ErrGatewayUnavailable, status)
	}

	var result payResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("%w: unparseable pay response: %v", domainErrors.ErrGatewayUnavailable, err)
	}

	if !result.Success {
		c.logger.Error("PhonePe: pay request rejected",
			zap.String("merchant_transaction_id", req.GatewayReference),
			zap.String("code", result.Code))
		return nil, fmt.Errorf("%w: gateway returned %s", domainErrors.ErrGatewayUnavailable, result.Code)
	}

	return &gateway.InitiationResult{
		GatewayReference: req.GatewayReference,
		RedirectURL:      result.Data.InstrumentResponse.RedirectInfo.URL,
		ProviderData: map[string]interface{}{
			"instrument_type": result.Data.InstrumentResponse.Type,
		},
	}, nil
}

// Status polls the signed status endpoint for a reference. The status path
// itself is the signed payload; there is no request body.
func (c *Client) Status(ctx context.Context, gatewayReference string) (*gateway.GatewayStatus, error) {
	settings, err := c.settings.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to load gateway settings: %w", err)
	}
	cfg := settings.PhonePe
	if !cfg.Enabled {
		return nil, domainErrors.ErrGatewayDisabled
	}

	path := fmt.Sprintf("%s/%s/%s", statusEndpoint, cfg.MerchantID, gatewayReference)
	signature := Sign("", path, cfg.SaltKey, cfg.SaltIndex)

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout(cfg))
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodGet, cfg.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create status request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-VERIFY", signature)
	httpReq.Header.Set("X-MERCHANT-ID", cfg.MerchantID)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.logger.Error("PhonePe: status request failed",
			zap.String("merchant_transaction_id", gatewayReference),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read status response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("PhonePe: status request rejected",
			zap.String("merchant_transaction_id", gatewayReference),
			zap.Int("status_code", resp.StatusCode))
		return nil, fmt.Errorf("%w: gateway returned HTTP %d", domainErrors.ErrGatewayUnavailable, resp.StatusCode)
	}

	var result statusResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("%w: unparseable status response: %v", domainErrors.ErrGatewayUnavailable, err)
	}

	return &gateway.GatewayStatus{
		State:        result.Data.State,
		AmountPaise:  result.Data.Amount,
		GatewayTxnID: result.Data.TransactionID,
	}, nil
}

func (c *Client) post(ctx context.Context, cfg config.PhonePeConfig, url string, body []byte, signature string) ([]byte, int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout(cfg))
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-VERIFY", signature)
	httpReq.Header.Set("X-MERCHANT-ID", cfg.MerchantID)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domainErrors.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response: %w", err)
	}

	return respBody, resp.StatusCode, nil
}

func (c *Client) timeout(cfg config.PhonePeConfig) time.Duration {
	if cfg.Timeout > 0 {
		return cfg.Timeout
	}
	return defaultTimeout
}
