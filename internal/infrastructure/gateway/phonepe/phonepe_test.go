package phonepe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/propbazaar/payments-service/internal/config"
	domainErrors "github.com/propbazaar/payments-service/internal/domain/errors"
	"github.com/propbazaar/payments-service/internal/domain/gateway"
)

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	cfg := &config.GatewaysConfig{
		PhonePe: config.PhonePeConfig{
			Enabled:     true,
			MerchantID:  "M123",
			SaltKey:     "test-salt-key",
			SaltIndex:   "1",
			BaseURL:     baseURL,
			CallbackURL: "https://propbazaar.example/callback",
			RedirectURL: "https://propbazaar.example/redirect",
			Timeout:     2 * time.Second,
		},
	}
	loader := config.NewGatewaySettingsLoader(func() (*config.GatewaysConfig, error) {
		return cfg, nil
	}, time.Minute)
	return NewClient(loader, zap.NewNop())
}

func initiateRequest() *gateway.InitiateRequest {
	return &gateway.InitiateRequest{
		GatewayReference: "PBZ1700000000000ABCD1234",
		UserID:           "user-1",
		AmountRupees:     499,
	}
}

func TestInitiate_ProxyErrorIsUnavailable(t *testing.T) {
	// An intermediary 502 with an HTML body must classify as gateway
	// unavailability so the caller keeps the pending row and polls.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>502 Bad Gateway</html>"))
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL).Initiate(context.Background(), initiateRequest())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domainErrors.ErrGatewayUnavailable))
}

func TestInitiate_GarbledOKBodyIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL).Initiate(context.Background(), initiateRequest())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domainErrors.ErrGatewayUnavailable))
}

func TestInitiate_DeclineCodeIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":false,"code":"INTERNAL_SERVER_ERROR"}`))
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL).Initiate(context.Background(), initiateRequest())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domainErrors.ErrGatewayUnavailable))
	assert.Contains(t, err.Error(), "INTERNAL_SERVER_ERROR")
}

func TestStatus_ProxyErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("<html>503</html>"))
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL).Status(context.Background(), "PBZ1700000000000ABCD1234")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domainErrors.ErrGatewayUnavailable))
}
