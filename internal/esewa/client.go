package esewa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Transaction statuses reported by the status endpoint.
const (
	StatusComplete      = "COMPLETE"
	StatusPending       = "PENDING"
	StatusFullRefund    = "FULL_REFUND"
	StatusPartialRefund = "PARTIAL_REFUND"
	StatusAmbiguous     = "AMBIGUOUS"
	StatusNotFound      = "NOT_FOUND"
	StatusCanceled      = "CANCELED"
)

// maxStatusBody bounds how much of a status response is read.
const maxStatusBody = 1 << 20

// StatusResponse is the body returned by the status endpoint.
type StatusResponse struct {
	ProductCode     string `json:"product_code"`
	TransactionUUID string `json:"transaction_uuid"`
	TotalAmount     Amount `json:"total_amount"`
	Status          string `json:"status"`
	RefID           string `json:"ref_id"`
}

// IsComplete reports whether the processor considers the payment settled.
func (r StatusResponse) IsComplete() bool {
	return r.Status == StatusComplete
}

// Client talks to the eSewa ePay v2 API for one merchant.
type Client struct {
	cfg        Config
	signer     Signer
	httpClient *http.Client
}

// NewClient creates a Client. The HTTP timeout comes from cfg.StatusTimeout.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		signer:     NewSigner(cfg.ProductCode, cfg.SecretKey),
		httpClient: &http.Client{Timeout: cfg.StatusTimeout},
	}
}

// FormURL returns the endpoint the payment form is posted to.
func (c *Client) FormURL() string {
	return c.cfg.FormEndpoint()
}

// NewPaymentRequest builds a signed payment request for this merchant.
func (c *Client) NewPaymentRequest(p PaymentParams) PaymentRequest {
	return c.signer.NewPaymentRequest(p)
}

// CheckStatus asks eSewa for the outcome of a transaction. A non-2xx reply or
// an undecodable body is an error; any decoded status, including non-complete
// ones, is returned as is.
func (c *Client) CheckStatus(ctx context.Context, totalAmount float64, transactionUUID string) (*StatusResponse, error) {
	u, err := url.Parse(c.cfg.StatusEndpoint())
	if err != nil {
		return nil, fmt.Errorf("invalid status endpoint: %w", err)
	}
	q := u.Query()
	q.Set("product_code", c.cfg.ProductCode)
	q.Set("total_amount", FormatAmount(totalAmount))
	q.Set("transaction_uuid", transactionUUID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build status request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("esewa status request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStatusBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read esewa status response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("esewa status endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var status StatusResponse
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("failed to decode esewa status response: %w", err)
	}
	return &status, nil
}

// DecodeCallback decodes and authenticates the data parameter eSewa appends
// to the success URL.
func (c *Client) DecodeCallback(data string) (*Callback, error) {
	return c.signer.DecodeCallback(data)
}
