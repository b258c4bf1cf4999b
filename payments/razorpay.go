// Package payments wraps the Razorpay gateway and its signature schemes.
package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
)

// GatewayOrder is the slice of the gateway response checkout needs.
type GatewayOrder struct {
	ID       string
	Amount   int64
	Currency string
}

type Client struct {
	api           *razorpay.Client
	keySecret     string
	webhookSecret string
}

func NewClient(keyID, keySecret, webhookSecret string) *Client {
	return &Client{
		api:           razorpay.NewClient(keyID, keySecret),
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
	}
}

// CreateOrder creates a gateway-side order. Amount is in minor currency
// units (paise).
func (c *Client) CreateOrder(amount int64, currency, receipt string, notes map[string]interface{}) (*GatewayOrder, error) {
	data := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
		"notes":    notes,
	}

	resp, err := c.api.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay order create: %w", err)
	}

	id, _ := resp["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("razorpay order create: response missing id")
	}

	order := &GatewayOrder{ID: id, Currency: currency, Amount: amount}
	if a, ok := resp["amount"].(float64); ok {
		order.Amount = int64(a)
	}
	if cur, ok := resp["currency"].(string); ok {
		order.Currency = cur
	}
	return order, nil
}

// VerifyPaymentSignature checks the checkout callback signature, an
// HMAC-SHA256 over "orderID|paymentID" keyed with the API secret.
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	payload := orderID + "|" + paymentID
	return verifyHMAC([]byte(payload), signature, c.keySecret)
}

// VerifyWebhookSignature checks the x-razorpay-signature header, an
// HMAC-SHA256 over the raw request body keyed with the webhook secret.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	return verifyHMAC(body, signature, c.webhookSecret)
}

// WebhookSecretConfigured reports whether webhook verification is possible
// at all.
func (c *Client) WebhookSecretConfigured() bool {
	return c.webhookSecret != ""
}

func verifyHMAC(payload []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	// hmac.Equal rather than == keeps the comparison constant time.
	return hmac.Equal([]byte(expected), []byte(signature))
}
