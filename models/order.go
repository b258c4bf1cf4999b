package models

import (
	"database/sql"
	"time"
)

type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "draft"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusFailed    OrderStatus = "failed"
)

type Order struct {
	ID                int            `json:"id"`
	UserID            sql.NullInt64  `json:"user_id"`
	RazorpayOrderID   string         `json:"razorpay_order_id"`
	RazorpayPaymentID sql.NullString `json:"razorpay_payment_id"`
	OrderNumber       sql.NullInt64  `json:"order_number"`
	Amount            int64          `json:"amount"`
	BaseAmount        int64          `json:"base_amount"`
	TaxAmount         int64          `json:"tax_amount"`
	Status            OrderStatus    `json:"status"`
	CustomerEmail     string         `json:"customer_email"`
	CustomerName      sql.NullString `json:"customer_name"`
	CustomerPhone     sql.NullString `json:"customer_phone"`
	CustomerState     sql.NullString `json:"customer_state"`
	DiscountCode      sql.NullString `json:"discount_code"`
	DiscountAmount    int64          `json:"discount_amount"`
	ProductName       sql.NullString `json:"product_name"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

type CustomerInfo struct {
	Name    string `json:"name"`
	Email   string `json:"email" binding:"required,email"`
	Contact string `json:"contact"`
	State   string `json:"state"`
}

type CreateOrderRequest struct {
	Amount       int64         `json:"amount" binding:"required,gt=0"`
	ProductName  string        `json:"productName"`
	DiscountCode string        `json:"discountCode"`
	CustomerInfo *CustomerInfo `json:"customerInfo"`
}

type VerifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" binding:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	RazorpaySignature string `json:"razorpay_signature" binding:"required"`
	CustomerEmail     string `json:"customer_email"`
	CustomerName      string `json:"customer_name"`
	CustomerPhone     string `json:"customer_phone"`
	CustomerState     string `json:"customer_state"`
	Amount            int64  `json:"amount"`
}

// WebhookPayload is the subset of the Razorpay event envelope the service
// cares about.
type WebhookPayload struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Amount  int64  `json:"amount"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type EmailLogStatus string

const (
	EmailLogStatusSent   EmailLogStatus = "sent"
	EmailLogStatusFailed EmailLogStatus = "failed"
)

type EmailLog struct {
	ID             int            `json:"id"`
	OrderID        int            `json:"order_id"`
	RecipientEmail string         `json:"recipient_email"`
	CCEmails       sql.NullString `json:"cc_emails"`
	EmailType      string         `json:"email_type"`
	Subject        sql.NullString `json:"subject"`
	Status         EmailLogStatus `json:"status"`
	ErrorMessage   sql.NullString `json:"error_message"`
	SentBy         sql.NullString `json:"sent_by"`
	CreatedAt      time.Time      `json:"created_at"`
}
