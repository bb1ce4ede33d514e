package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

// PaymentsClient performs the external prize transfer through the payment
// service. The ledger zeroes its own bookkeeping before calling Transfer;
// a rejection here is surfaced as TransferFailed and never retried.
type PaymentsClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewPaymentsClient() *PaymentsClient {
	baseURL := os.Getenv("PAYMENTS_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("PAYMENTS_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("LEDGER_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("LEDGER_SERVICE_TOKEN environment variable is required for payouts")
	}

	return &PaymentsClient{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Transfer sends amount (smallest unit) to recipient and returns the
// payment service's transaction reference.
func (p *PaymentsClient) Transfer(ctx context.Context, competitionID uint64, recipient string, amount uint64) (string, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"recipient": recipient,
		"amount":    amount,
		"reference": fmt.Sprintf("competition-%d-payout", competitionID),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode transfer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/api/v1/transfers", p.BaseURL), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create transfer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", p.Token)

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call payment service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("payment service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		TransactionID string `json:"transaction_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode payment service response: %w", err)
	}
	return response.TransactionID, nil
}
