package masumi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"mipgate/src/core/job"
)

const (
	DefaultURL = "https://payment.masumi.network/api/v1"
)

// paymentResponse wraps the payment service's response envelope.
type paymentResponse struct {
	Data job.PaymentDetails `json:"data"`
}

// Client talks to the masumi payment service. It implements
// job.PaymentGateway.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a new masumi payment service client
func NewClient(baseURL, apiKey string, c *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}

	return &Client{
		httpClient: c,
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// CreatePaymentRequest registers a payment request for a job and returns the
// blockchain binding fields issued by the service.
func (c *Client) CreatePaymentRequest(ctx context.Context, payReq job.PaymentRequest) (*job.PaymentDetails, error) {
	jsonData, err := json.Marshal(payReq)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/payment/", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("token", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("payment service returned status %d: %s", resp.StatusCode, body)
	}

	var result paymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("error decoding response: %w", err)
	}

	if result.Data.BlockchainIdentifier == "" {
		return nil, fmt.Errorf("payment service response missing blockchainIdentifier")
	}

	return &result.Data, nil
}
