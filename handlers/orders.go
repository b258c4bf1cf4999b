package handlers

import (
	"database/sql"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront-svc/mail"
	"storefront-svc/middleware"
	"storefront-svc/models"
)

// sellerState decides the CGST/SGST vs IGST breakdown on invoices.
const sellerState = "Karnataka"

type OrderHandler struct {
	db     *sql.DB
	mailer mail.Sender
	logger *zap.Logger
}

func NewOrderHandler(db *sql.DB, mailer mail.Sender, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{db: db, mailer: mailer, logger: logger}
}

const orderColumns = `id, user_id, razorpay_order_id, razorpay_payment_id, order_number,
	amount, base_amount, tax_amount, status,
	customer_email, customer_name, customer_phone, customer_state,
	discount_code, discount_amount, product_name, created_at, updated_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (*models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.UserID, &o.RazorpayOrderID, &o.RazorpayPaymentID, &o.OrderNumber,
		&o.Amount, &o.BaseAmount, &o.TaxAmount, &o.Status,
		&o.CustomerEmail, &o.CustomerName, &o.CustomerPhone, &o.CustomerState,
		&o.DiscountCode, &o.DiscountAmount, &o.ProductName, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ListByEmail returns a customer's orders, newest first. Unknown emails get
// an empty list, not an error.
func (h *OrderHandler) ListByEmail(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Email is required"})
		return
	}

	rows, err := h.db.QueryContext(c.Request.Context(),
		"SELECT "+orderColumns+" FROM orders WHERE customer_email = $1 ORDER BY created_at DESC",
		email)
	if err != nil {
		h.logger.Error("Failed to fetch orders",
			zap.String("trace_id", middleware.GetTraceID(c.Request.Context())),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch orders"})
		return
	}
	defer rows.Close()

	orders := []*models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			h.logger.Error("Failed to scan order", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch orders"})
			return
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		h.logger.Error("Failed to read orders", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "orders": orders})
}

var invoicePageTmpl = template.Must(template.New("invoice-page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Invoice #{{.OrderNumber}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; color: #333; padding: 40px; }
.invoice-box { max-width: 800px; margin: auto; padding: 30px; border: 1px solid #eee; }
table { width: 100%; border-collapse: collapse; }
td { padding: 5px; vertical-align: top; }
tr td:nth-child(2) { text-align: right; }
tr.heading td { background: #f9f9f9; border-bottom: 1px solid #ddd; font-weight: bold; }
tr.item td { border-bottom: 1px solid #eee; }
tr.total td:nth-child(2) { border-top: 2px solid #eee; font-weight: bold; }
</style>
</head>
<body>
<div class="invoice-box">
  <table>
    <tr>
      <td><strong>{{.SellerName}}</strong><br>Bengaluru, Karnataka</td>
      <td>Invoice #: {{.OrderNumber}}<br>Date: {{.Date}}<br>Status: Paid</td>
    </tr>
    <tr>
      <td colspan="2">
        <strong>Billed To:</strong><br>
        {{.CustomerName}}<br>{{.CustomerEmail}}<br>{{.CustomerPhone}}<br>{{.CustomerState}}
      </td>
    </tr>
    <tr class="heading"><td>Item</td><td>Price</td></tr>
    <tr class="item"><td>{{.ProductName}}</td><td>₹{{printf "%.2f" .BaseAmount}}</td></tr>
    {{if .InterState}}
    <tr class="item"><td>IGST</td><td>₹{{printf "%.2f" .TaxAmount}}</td></tr>
    {{else}}
    <tr class="item"><td>CGST</td><td>₹{{printf "%.2f" .HalfTax}}</td></tr>
    <tr class="item"><td>SGST</td><td>₹{{printf "%.2f" .HalfTax}}</td></tr>
    {{end}}
    <tr class="total"><td></td><td>Total: ₹{{printf "%.2f" .Total}}</td></tr>
  </table>
  <p style="font-size: 12px; color: #777; text-align: center;">
    This is a computer-generated invoice and does not require a signature.
  </p>
</div>
</body>
</html>`))

// Invoice renders the order's tax invoice as printable HTML.
func (h *OrderHandler) Invoice(c *gin.Context) {
	orderID, err := strconv.Atoi(c.Param("orderID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid order ID"})
		return
	}

	order, err := scanOrder(h.db.QueryRowContext(c.Request.Context(),
		"SELECT "+orderColumns+" FROM orders WHERE id = $1", orderID))
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Order not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to fetch order",
			zap.String("trace_id", middleware.GetTraceID(c.Request.Context())),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to generate invoice"})
		return
	}

	taxAmount := float64(order.TaxAmount) / 100
	interState := order.CustomerState.Valid &&
		order.CustomerState.String != "" &&
		!strings.EqualFold(order.CustomerState.String, sellerState)

	data := map[string]interface{}{
		"SellerName":    "Rasoi Gadget India",
		"OrderNumber":   order.OrderNumber.Int64,
		"Date":          order.CreatedAt.Format("02/01/2006"),
		"CustomerName":  stringOr(order.CustomerName, "Customer"),
		"CustomerEmail": order.CustomerEmail,
		"CustomerPhone": stringOr(order.CustomerPhone, ""),
		"CustomerState": stringOr(order.CustomerState, ""),
		"ProductName":   stringOr(order.ProductName, "Order"),
		"BaseAmount":    float64(order.BaseAmount) / 100,
		"TaxAmount":     taxAmount,
		"HalfTax":       taxAmount / 2,
		"Total":         float64(order.Amount) / 100,
		"InterState":    interState,
	}

	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := invoicePageTmpl.Execute(c.Writer, data); err != nil {
		h.logger.Error("Failed to render invoice", zap.Int("order_id", orderID), zap.Error(err))
	}
}

// ResendEmail re-sends the invoice for a completed order, optionally with a
// CC list, and records the attempt.
func (h *OrderHandler) ResendEmail(c *gin.Context) {
	orderID, err := strconv.Atoi(c.Param("orderID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid order ID"})
		return
	}

	var req struct {
		CCEmails []string `json:"ccEmails"`
		SentBy   string   `json:"sentBy"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	if req.SentBy == "" {
		req.SentBy = "admin"
	}

	ctx := c.Request.Context()
	order, err := scanOrder(h.db.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE id = $1", orderID))
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Order not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to fetch order",
			zap.String("trace_id", middleware.GetTraceID(ctx)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to resend email"})
		return
	}
	if order.Status != models.OrderStatusCompleted {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Can only resend emails for completed orders"})
		return
	}

	subject := mail.InvoiceSubject(order.ID)
	cc := strings.Join(req.CCEmails, ",")
	if mailErr := h.mailer.SendInvoice(order, req.CCEmails); mailErr != nil {
		middleware.RecordInvoiceEmail("failed")
		_, logErr := h.db.ExecContext(ctx,
			`INSERT INTO email_logs (order_id, recipient_email, cc_emails, email_type, subject, status, error_message, sent_by)
			 VALUES ($1, $2, $3, 'invoice', $4, 'failed', $5, $6)`,
			order.ID, order.CustomerEmail, nullable(cc), subject, mailErr.Error(), req.SentBy)
		if logErr != nil {
			h.logger.Error("Failed to write email log", zap.Int("order_id", order.ID), zap.Error(logErr))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to send email"})
		return
	}

	middleware.RecordInvoiceEmail("sent")
	_, logErr := h.db.ExecContext(ctx,
		`INSERT INTO email_logs (order_id, recipient_email, cc_emails, email_type, subject, status, sent_by)
		 VALUES ($1, $2, $3, 'invoice', $4, 'sent', $5)
		 ON CONFLICT DO NOTHING`,
		order.ID, order.CustomerEmail, nullable(cc), subject, req.SentBy)
	if logErr != nil {
		h.logger.Error("Failed to write email log", zap.Int("order_id", order.ID), zap.Error(logErr))
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Email sent successfully"})
}

// EmailLogs lists the email audit trail for one order, newest first.
func (h *OrderHandler) EmailLogs(c *gin.Context) {
	orderID, err := strconv.Atoi(c.Param("orderID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid order ID"})
		return
	}

	rows, err := h.db.QueryContext(c.Request.Context(),
		`SELECT id, order_id, recipient_email, cc_emails, email_type, subject, status, error_message, sent_by, created_at
		 FROM email_logs WHERE order_id = $1 ORDER BY created_at DESC`,
		orderID)
	if err != nil {
		h.logger.Error("Failed to fetch email logs",
			zap.String("trace_id", middleware.GetTraceID(c.Request.Context())),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch email logs"})
		return
	}
	defer rows.Close()

	logs := []models.EmailLog{}
	for rows.Next() {
		var l models.EmailLog
		if err := rows.Scan(&l.ID, &l.OrderID, &l.RecipientEmail, &l.CCEmails, &l.EmailType,
			&l.Subject, &l.Status, &l.ErrorMessage, &l.SentBy, &l.CreatedAt); err != nil {
			h.logger.Error("Failed to scan email log", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch email logs"})
			return
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		h.logger.Error("Failed to read email logs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch email logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "logs": logs})
}

func stringOr(ns sql.NullString, fallback string) string {
	if ns.Valid && ns.String != "" {
		return ns.String
	}
	return fallback
}
