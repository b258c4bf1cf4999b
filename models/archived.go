package models

import (
	"database/sql"
	"time"
)

// ArchivedOrder is a historical order imported from a Shopify CSV export.
// It is independent of the live orders table.
type ArchivedOrder struct {
	ID                int             `json:"id"`
	OrderNumber       string          `json:"order_number"`
	CustomerName      sql.NullString  `json:"customer_name"`
	CustomerEmail     sql.NullString  `json:"customer_email"`
	CustomerPhone     sql.NullString  `json:"customer_phone"`
	FinancialStatus   sql.NullString  `json:"financial_status"`
	PaidAt            sql.NullTime    `json:"paid_at"`
	FulfillmentStatus sql.NullString  `json:"fulfillment_status"`
	Subtotal          sql.NullFloat64 `json:"subtotal"`
	Shipping          sql.NullFloat64 `json:"shipping"`
	Taxes             sql.NullFloat64 `json:"taxes"`
	Total             sql.NullFloat64 `json:"total"`
	DiscountCode      sql.NullString  `json:"discount_code"`
	DiscountAmount    sql.NullFloat64 `json:"discount_amount"`
	PaymentMethod     sql.NullString  `json:"payment_method"`
	PaymentReference  sql.NullString  `json:"payment_reference"`
	BillingAddress    sql.NullString  `json:"billing_address"`
	BillingCity       sql.NullString  `json:"billing_city"`
	BillingState      sql.NullString  `json:"billing_state"`
	BillingZip        sql.NullString  `json:"billing_zip"`
	BillingCountry    sql.NullString  `json:"billing_country"`
	ShippingAddress   sql.NullString  `json:"shipping_address"`
	ShippingCity      sql.NullString  `json:"shipping_city"`
	ShippingState     sql.NullString  `json:"shipping_state"`
	ShippingZip       sql.NullString  `json:"shipping_zip"`
	ShippingCountry   sql.NullString  `json:"shipping_country"`
	ProductName       sql.NullString  `json:"product_name"`
	Quantity          sql.NullInt64   `json:"quantity"`
	CreatedAt         time.Time       `json:"created_at"`
}
