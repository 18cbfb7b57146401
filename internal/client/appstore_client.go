package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"lifestyle-api/internal/config"
)

// StatusSandboxReceipt is returned by the production endpoint for a
// receipt issued in the sandbox environment.
const StatusSandboxReceipt = 21007

type appStoreRequest struct {
	ReceiptData            string `json:"receipt-data"`
	Password               string `json:"password,omitempty"`
	ExcludeOldTransactions bool   `json:"exclude-old-transactions"`
}

type AppStoreTransaction struct {
	ProductID             string `json:"product_id"`
	TransactionID         string `json:"transaction_id"`
	OriginalTransactionID string `json:"original_transaction_id"`
	ExpiresDateMs         string `json:"expires_date_ms"`
}

// AppStoreResponse is the subset of the verifyReceipt response we read
type AppStoreResponse struct {
	Status            int                   `json:"status"`
	Environment       string                `json:"environment"`
	LatestReceiptInfo []AppStoreTransaction `json:"latest_receipt_info"`
}

// AppStoreClient calls the legacy verifyReceipt endpoint
type AppStoreClient struct {
	httpClient      *http.Client
	productionURL   string
	sandboxURL      string
	sharedSecret    string
	sandboxFallback bool
	logger          *zap.Logger
}

// NewAppStoreClient expects cfg.SharedSecret to be already resolved
func NewAppStoreClient(cfg config.AppStoreConfig, logger *zap.Logger) *AppStoreClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AppStoreClient{
		httpClient:      &http.Client{Timeout: timeout},
		productionURL:   cfg.ProductionURL,
		sandboxURL:      cfg.SandboxURL,
		sharedSecret:    cfg.SharedSecret,
		sandboxFallback: cfg.SandboxFallback,
		logger:          logger,
	}
}

// VerifyReceipt posts the receipt to production and, when Apple reports a
// sandbox receipt, once more to the sandbox endpoint. Transport failures
// are returned as errors without retry.
func (c *AppStoreClient) VerifyReceipt(ctx context.Context, receiptData string) (*AppStoreResponse, error) {
	resp, err := c.post(ctx, c.productionURL, receiptData)
	if err != nil {
		return nil, err
	}

	if resp.Status == StatusSandboxReceipt && c.sandboxFallback && c.sandboxURL != "" {
		c.logger.Debug("Sandbox receipt sent to production, retrying against sandbox")
		return c.post(ctx, c.sandboxURL, receiptData)
	}
	return resp, nil
}

func (c *AppStoreClient) post(ctx context.Context, url, receiptData string) (*AppStoreResponse, error) {
	body, err := json.Marshal(appStoreRequest{
		ReceiptData:            receiptData,
		Password:               c.sharedSecret,
		ExcludeOldTransactions: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode verifyReceipt request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build verifyReceipt request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verifyReceipt request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil, fmt.Errorf("verifyReceipt returned HTTP %d", res.StatusCode)
	}

	var out AppStoreResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode verifyReceipt response: %w", err)
	}
	return &out, nil
}
