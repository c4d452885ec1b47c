package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"compliance-service/internal/config"
	"compliance-service/internal/payments"
)

// MobileMoneyClient talks to the mobile money aggregator. Initiation is a
// fire-and-forget push to the subscriber's handset; confirmation comes from
// polling the free-text transaction status.
type MobileMoneyClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewMobileMoneyClient(cfg config.MobileMoneyConfig) *MobileMoneyClient {
	return &MobileMoneyClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type momoInitiateRequest struct {
	TransactionID string `json:"transaction_id"`
	Phone         string `json:"phone"`
	Narrative     string `json:"narrative"`
}

type momoInitiateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type momoStatusResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

// Initiate pushes a payment prompt to the subscriber's phone. The returned
// string is the provider acknowledgement message, not a final status.
func (c *MobileMoneyClient) Initiate(ctx context.Context, init payments.MobileMoneyInitiation) (string, error) {
	payload := momoInitiateRequest{
		TransactionID: init.TransactionID,
		Phone:         init.Phone,
		Narrative:     init.FeatureName,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal mobile money request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/collections", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create mobile money request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("mobile money initiation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("mobile money initiation returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp momoInitiateResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("failed to decode mobile money response: %w", err)
	}
	if !apiResp.Success {
		return "", fmt.Errorf("mobile money initiation rejected: %s", apiResp.Message)
	}

	return apiResp.Message, nil
}

// Status fetches the provider's free-text status for a transaction.
func (c *MobileMoneyClient) Status(ctx context.Context, transactionID string) (string, error) {
	url := fmt.Sprintf("%s/api/v1/collections/%s/status", c.baseURL, transactionID)
	httpReq, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create status request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("mobile money status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("mobile money status returned %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp momoStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("failed to decode status response: %w", err)
	}

	return apiResp.Status, nil
}
