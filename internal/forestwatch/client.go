package forestwatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"compliance-service/internal/compliance"
	"compliance-service/internal/config"
)

// Client fetches raw forest monitoring datasets for a polygon from the
// forest watch data API. The response is a grouped dataset map keyed by
// dataset name, passed on untouched for derivation.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(cfg config.ForestWatchConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			// Dataset queries run zonal statistics server-side and can be slow.
			Timeout: 120 * time.Second,
		},
	}
}

type rawReportRequest struct {
	Geometry geometryPayload `json:"geometry"`
}

type geometryPayload struct {
	Type        string        `json:"type"`
	Coordinates [][][]float64 `json:"coordinates"`
}

// FetchRawReport queries the datasets for the polygon's outer ring. The ring
// is closed before sending if the caller left it open.
func (c *Client) FetchRawReport(ctx context.Context, ring [][]float64) (compliance.RawReport, error) {
	if len(ring) < 3 {
		return nil, fmt.Errorf("polygon ring needs at least 3 points, got %d", len(ring))
	}

	closed := ring
	first, last := ring[0], ring[len(ring)-1]
	if len(first) >= 2 && len(last) >= 2 && (first[0] != last[0] || first[1] != last[1]) {
		closed = append(append([][]float64{}, ring...), first)
	}

	payload := rawReportRequest{
		Geometry: geometryPayload{
			Type:        "Polygon",
			Coordinates: [][][]float64{closed},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal raw report request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/analysis/datasets", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create raw report request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("raw report request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("raw report query returned %d: %s", resp.StatusCode, string(respBody))
	}

	var datasets map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&datasets); err != nil {
		return nil, fmt.Errorf("failed to decode raw report response: %w", err)
	}

	return compliance.FromAny(datasets), nil
}
