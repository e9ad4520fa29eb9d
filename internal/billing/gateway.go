package billing

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Gateway talks to the payment provider's order API over basic auth.
type Gateway struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Client    *http.Client
}

func NewGateway(baseURL, keyID, keySecret string) *Gateway {
	return &Gateway{
		BaseURL: baseURL, KeyID: keyID, KeySecret: keySecret,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// CreateOrder opens a gateway order for the given amount. The receipt ties
// the order back to our user and plan.
func (g *Gateway) CreateOrder(ctx context.Context, amountCents int64, currency, receipt string) (*Order, error) {
	payload, _ := json.Marshal(map[string]any{
		"amount":   amountCents,
		"currency": currency,
		"receipt":  receipt,
	})
	req, err := http.NewRequestWithContext(ctx, "POST", g.BaseURL+"/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(g.KeyID, g.KeySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gateway order failed: http %d: %s", resp.StatusCode, truncate(raw, 200))
	}
	var out Order
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifySignature checks the HMAC-SHA256 the gateway computes over
// "<order_id>|<payment_id>" with the key secret. Constant-time compare.
func (g *Gateway) VerifySignature(orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(g.KeySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
