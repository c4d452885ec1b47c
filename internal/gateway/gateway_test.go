package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"compliance-service/internal/config"
	"compliance-service/internal/payments"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// MOBILE MONEY CLIENT
// ============================================================================

func TestMobileMoneyInitiate_SendsPromptAndReadsAck(t *testing.T) {
	var received momoInitiateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/collections", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		json.NewEncoder(w).Encode(momoInitiateResponse{Success: true, Message: "prompt sent"})
	}))
	defer server.Close()

	client := NewMobileMoneyClient(config.MobileMoneyConfig{BaseURL: server.URL, APIKey: "test-key"})

	ack, err := client.Initiate(context.Background(), payments.MobileMoneyInitiation{
		TransactionID: "agent-7-1234",
		FeatureName:   "eudr_report",
		Phone:         "+256700000001",
	})

	require.NoError(t, err)
	assert.Equal(t, "prompt sent", ack)
	assert.Equal(t, "agent-7-1234", received.TransactionID)
	assert.Equal(t, "+256700000001", received.Phone)
}

func TestMobileMoneyInitiate_ProviderRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(momoInitiateResponse{Success: false, Message: "subscriber not registered"})
	}))
	defer server.Close()

	client := NewMobileMoneyClient(config.MobileMoneyConfig{BaseURL: server.URL})

	_, err := client.Initiate(context.Background(), payments.MobileMoneyInitiation{TransactionID: "t-1", Phone: "+1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "subscriber not registered")
}

func TestMobileMoneyStatus_ReturnsFreeText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/collections/t-1/status", r.URL.Path)
		json.NewEncoder(w).Encode(momoStatusResponse{TransactionID: "t-1", Status: "Rejected by user"})
	}))
	defer server.Close()

	client := NewMobileMoneyClient(config.MobileMoneyConfig{BaseURL: server.URL})

	status, err := client.Status(context.Background(), "t-1")

	require.NoError(t, err)
	assert.Equal(t, "Rejected by user", status)
}

func TestMobileMoneyStatus_HTTPErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewMobileMoneyClient(config.MobileMoneyConfig{BaseURL: server.URL})

	_, err := client.Status(context.Background(), "t-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

// ============================================================================
// DPO CLIENT
// ============================================================================

func TestDPOInitiate_ReturnsTokenAndPaymentURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/tokens", r.URL.Path)

		var req dpoCreateTokenRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "company-token", req.CompanyToken)
		assert.Equal(t, "agent-7-1234", req.CompanyRef)
		assert.Equal(t, "USD", req.Currency)

		json.NewEncoder(w).Encode(dpoCreateTokenResponse{
			Success:    true,
			TransToken: "tok-9",
			PaymentURL: "https://pay.example.com/tok-9",
		})
	}))
	defer server.Close()

	client := NewDPOClient(config.DPOConfig{BaseURL: server.URL, CompanyToken: "company-token"})

	result, err := client.Initiate(context.Background(), payments.CardInitiation{
		TransactionID: "agent-7-1234",
		FeatureName:   "eudr_report",
		Currency:      "USD",
		Email:         "a@b.com",
	})

	require.NoError(t, err)
	assert.Equal(t, "tok-9", result.TransToken)
	assert.Equal(t, "https://pay.example.com/tok-9", result.PaymentURL)
}

func TestDPOVerify_MapsExplicitStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/tokens/verify", r.URL.Path)

		var req dpoVerifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tok-9", req.TransToken)

		json.NewEncoder(w).Encode(dpoVerifyResponse{
			Success:    true,
			Status:     "verified",
			Amount:     25,
			Currency:   "USD",
			CompanyRef: "agent-7-1234",
		})
	}))
	defer server.Close()

	client := NewDPOClient(config.DPOConfig{BaseURL: server.URL, CompanyToken: "company-token"})

	verification, err := client.Verify(context.Background(), "tok-9")

	require.NoError(t, err)
	assert.Equal(t, "verified", verification.Status)
	assert.Equal(t, 25.0, verification.Amount)
	assert.Equal(t, "agent-7-1234", verification.CompanyRef)
}

func TestDPOInitiate_RejectionSurfacesMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(dpoCreateTokenResponse{Success: false, Message: "invalid company token"})
	}))
	defer server.Close()

	client := NewDPOClient(config.DPOConfig{BaseURL: server.URL, CompanyToken: "bad"})

	_, err := client.Initiate(context.Background(), payments.CardInitiation{TransactionID: "t-1", Currency: "USD"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid company token")
}
