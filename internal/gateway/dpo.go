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

// DPOClient talks to the DPO card/mobile gateway. Initiation creates a
// payment token and a hosted payment page; verification resolves the token to
// an explicit status.
type DPOClient struct {
	baseURL      string
	companyToken string
	redirectURL  string
	httpClient   *http.Client
}

func NewDPOClient(cfg config.DPOConfig) *DPOClient {
	return &DPOClient{
		baseURL:      cfg.BaseURL,
		companyToken: cfg.CompanyToken,
		redirectURL:  cfg.RedirectURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type dpoCreateTokenRequest struct {
	CompanyToken  string `json:"company_token"`
	CompanyRef    string `json:"company_ref"`
	ServiceName   string `json:"service_name"`
	Currency      string `json:"currency"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
	RedirectURL   string `json:"redirect_url,omitempty"`
}

type dpoCreateTokenResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	TransToken string `json:"trans_token"`
	PaymentURL string `json:"payment_url"`
}

type dpoVerifyRequest struct {
	CompanyToken string `json:"company_token"`
	TransToken   string `json:"trans_token"`
}

type dpoVerifyResponse struct {
	Success    bool    `json:"success"`
	Status     string  `json:"status"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	CompanyRef string  `json:"company_ref"`
}

// Initiate creates a transaction token and returns the hosted payment page.
func (c *DPOClient) Initiate(ctx context.Context, init payments.CardInitiation) (*payments.CardInitiationResult, error) {
	payload := dpoCreateTokenRequest{
		CompanyToken:  c.companyToken,
		CompanyRef:    init.TransactionID,
		ServiceName:   init.FeatureName,
		Currency:      init.Currency,
		CustomerPhone: init.Phone,
		CustomerEmail: init.Email,
		RedirectURL:   c.redirectURL,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal create token request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/tokens", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("card token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("card token creation returned %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp dpoCreateTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if !apiResp.Success {
		return nil, fmt.Errorf("card token creation rejected: %s", apiResp.Message)
	}

	return &payments.CardInitiationResult{
		PaymentURL: apiResp.PaymentURL,
		TransToken: apiResp.TransToken,
	}, nil
}

// Verify resolves a transaction token to its explicit provider status.
func (c *DPOClient) Verify(ctx context.Context, transToken string) (*payments.CardVerification, error) {
	payload := dpoVerifyRequest{
		CompanyToken: c.companyToken,
		TransToken:   transToken,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal verify request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/tokens/verify", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create verify request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("card verification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("card verification returned %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp dpoVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode verification response: %w", err)
	}

	return &payments.CardVerification{
		Status:     apiResp.Status,
		Amount:     apiResp.Amount,
		Currency:   apiResp.Currency,
		CompanyRef: apiResp.CompanyRef,
	}, nil
}
