package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storefront-svc/config"
	"storefront-svc/mail"
	"storefront-svc/middleware"
	"storefront-svc/models"
	"storefront-svc/payments"
	"storefront-svc/pricing"
)

const (
	defaultProductName = "Satvik 3-Book Collection"

	// Order numbers for paid orders historically start above the last
	// Shopify order, unless the nextOrderNumber setting says otherwise.
	defaultOrderNumberFloor = 1112

	uniqueViolation = pq.ErrorCode("23505")
)

var errOrderNotFound = errors.New("order not found")

// Gateway is the slice of the payment provider the handler needs.
type Gateway interface {
	CreateOrder(amount int64, currency, receipt string, notes map[string]interface{}) (*payments.GatewayOrder, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	VerifyWebhookSignature(body []byte, signature string) bool
	WebhookSecretConfigured() bool
}

type PaymentHandler struct {
	db      *sql.DB
	rdb     *redis.Client
	gateway Gateway
	mailer  mail.Sender
	cfg     *config.Config
	logger  *zap.Logger
}

func NewPaymentHandler(db *sql.DB, rdb *redis.Client, gateway Gateway, mailer mail.Sender, cfg *config.Config, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		db:      db,
		rdb:     rdb,
		gateway: gateway,
		mailer:  mailer,
		cfg:     cfg,
		logger:  logger,
	}
}

// CreateOrder creates a gateway order and, when customer info is present, a
// local draft order row. The gateway order is returned even if the local
// write fails.
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	productName := req.ProductName
	if productName == "" {
		productName = defaultProductName
	}

	code := strings.ToUpper(strings.TrimSpace(req.DiscountCode))
	discountedRupees, discountRupees := pricing.ApplyDiscount(req.Amount, code)
	amountPaise := discountedRupees * 100

	gwOrder, err := h.gateway.CreateOrder(
		amountPaise,
		h.cfg.Currency,
		fmt.Sprintf("receipt_%d", time.Now().UnixMilli()),
		map[string]interface{}{"product": productName},
	)
	if err != nil {
		h.logger.Error("Failed to create gateway order",
			zap.String("trace_id", middleware.GetTraceID(c.Request.Context())),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create order"})
		return
	}

	if req.CustomerInfo != nil {
		if err := h.createDraftOrder(c.Request.Context(), gwOrder.ID, amountPaise, discountRupees*100, code, productName, req.CustomerInfo); err != nil {
			// Best-effort persistence: the gateway order already exists and
			// the webhook can still reconcile, so do not fail the request.
			h.logger.Error("Failed to create draft order",
				zap.String("trace_id", middleware.GetTraceID(c.Request.Context())),
				zap.String("razorpay_order_id", gwOrder.ID),
				zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"orderId":  gwOrder.ID,
		"amount":   gwOrder.Amount,
		"currency": gwOrder.Currency,
	})
}

func (h *PaymentHandler) createDraftOrder(ctx context.Context, gatewayOrderID string, amountPaise, discountPaise int64, discountCode, productName string, info *models.CustomerInfo) error {
	userID, err := h.upsertUser(ctx, info.Email, info.Name)
	if err != nil {
		return err
	}

	base, tax := pricing.Split(amountPaise, h.gstPercent(ctx))

	_, err = h.db.ExecContext(ctx,
		`INSERT INTO orders (user_id, razorpay_order_id, amount, base_amount, tax_amount, status,
			customer_email, customer_name, customer_phone, customer_state,
			discount_code, discount_amount, product_name)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		userID, gatewayOrderID, amountPaise, base, tax, models.OrderStatusDraft,
		info.Email, nullable(info.Name), nullable(info.Contact), nullable(info.State),
		nullable(discountCode), discountPaise, productName,
	)
	return err
}

// VerifyPayment is the client callback path: the browser posts the gateway's
// checkout response after a successful payment.
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	var req models.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	traceID := middleware.GetTraceID(c.Request.Context())
	h.logger.Info("Incoming payment verification",
		zap.String("trace_id", traceID),
		zap.String("razorpay_order_id", req.RazorpayOrderID))

	if !h.gateway.VerifyPaymentSignature(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid signature"})
		return
	}

	ctx := c.Request.Context()

	if req.CustomerEmail != "" {
		if _, err := h.upsertUser(ctx, req.CustomerEmail, req.CustomerName); err != nil {
			h.logger.Error("Failed to upsert user", zap.String("trace_id", traceID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to verify payment"})
			return
		}
	}

	order, completedNow, err := h.completeOrder(ctx, completion{
		GatewayOrderID:   req.RazorpayOrderID,
		GatewayPaymentID: req.RazorpayPaymentID,
		Amount:           req.Amount,
		CustomerEmail:    req.CustomerEmail,
		CustomerName:     req.CustomerName,
		CustomerPhone:    req.CustomerPhone,
		CustomerState:    req.CustomerState,
	})
	if err != nil {
		if errors.Is(err, errOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Order not found"})
			return
		}
		h.logger.Error("Failed to complete order", zap.String("trace_id", traceID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to verify payment"})
		return
	}

	if completedNow {
		middleware.RecordOrderCompleted("verify")
	}
	h.sendInvoiceOnce(ctx, order, "system")

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       "Payment verified successfully",
		"paymentId":     req.RazorpayPaymentID,
		"orderId":       req.RazorpayOrderID,
		"orderRecordId": order.ID,
	})
}

// Webhook is the asynchronous gateway path. It can arrive before, after, or
// instead of the client callback, and may be replayed.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid body"})
		return
	}

	traceID := middleware.GetTraceID(c.Request.Context())

	if !h.gateway.WebhookSecretConfigured() {
		h.logger.Error("Webhook secret is not configured", zap.String("trace_id", traceID))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Webhook secret not configured"})
		return
	}

	signature := c.GetHeader("x-razorpay-signature")
	if signature == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No signature"})
		return
	}
	if !h.gateway.VerifyWebhookSignature(body, signature) {
		h.logger.Error("Invalid webhook signature", zap.String("trace_id", traceID))
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid signature"})
		return
	}

	var payload models.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid payload"})
		return
	}

	h.logger.Info("Webhook event received",
		zap.String("trace_id", traceID),
		zap.String("event", payload.Event))

	if payload.Event != "payment.captured" && payload.Event != "order.paid" {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	entity := payload.Payload.Payment.Entity
	ctx := c.Request.Context()

	order, completedNow, err := h.completeOrder(ctx, completion{
		GatewayOrderID:   entity.OrderID,
		GatewayPaymentID: entity.ID,
		Amount:           entity.Amount,
	})
	if err != nil {
		if errors.Is(err, errOrderNotFound) {
			// 200 so the gateway does not retry an order we never created.
			h.logger.Error("Webhook for unknown order",
				zap.String("trace_id", traceID),
				zap.String("razorpay_order_id", entity.OrderID))
			c.JSON(http.StatusOK, gin.H{"message": "Order not found"})
			return
		}
		h.logger.Error("Failed to complete order via webhook", zap.String("trace_id", traceID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	if !completedNow {
		h.logger.Info("Order already completed, skipping",
			zap.String("trace_id", traceID),
			zap.Int("order_id", order.ID))
		c.JSON(http.StatusOK, gin.H{"message": "Order already processed"})
		return
	}

	middleware.RecordOrderCompleted("webhook")
	h.sendInvoiceOnce(ctx, order, "webhook")

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type completion struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Amount           int64 // paise; 0 means keep the draft amount
	CustomerEmail    string
	CustomerName     string
	CustomerPhone    string
	CustomerState    string
}

// completeOrder flips a draft order to completed exactly once. The order row
// is locked for the whole read-increment-write sequence so the verify and
// webhook paths serialize; the unique order_number constraint backs the
// cross-order race and triggers a bounded retry.
func (h *PaymentHandler) completeOrder(ctx context.Context, comp completion) (*models.Order, bool, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		order, completedNow, err := h.tryCompleteOrder(ctx, comp)
		if err == nil {
			return order, completedNow, nil
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			lastErr = err
			continue
		}
		return nil, false, err
	}
	return nil, false, fmt.Errorf("order number contention: %w", lastErr)
}

func (h *PaymentHandler) tryCompleteOrder(ctx context.Context, comp completion) (*models.Order, bool, error) {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	var order models.Order
	err = tx.QueryRowContext(ctx,
		`SELECT id, amount, status, order_number, customer_email, customer_name, customer_phone, customer_state, product_name
		 FROM orders WHERE razorpay_order_id = $1 FOR UPDATE`,
		comp.GatewayOrderID,
	).Scan(&order.ID, &order.Amount, &order.Status, &order.OrderNumber,
		&order.CustomerEmail, &order.CustomerName, &order.CustomerPhone, &order.CustomerState, &order.ProductName)
	if err == sql.ErrNoRows {
		return nil, false, errOrderNotFound
	}
	if err != nil {
		return nil, false, err
	}
	order.RazorpayOrderID = comp.GatewayOrderID

	if order.Status == models.OrderStatusCompleted {
		if err := tx.Commit(); err != nil {
			return nil, false, err
		}
		return &order, false, nil
	}

	amount := comp.Amount
	if amount == 0 {
		amount = order.Amount
	}
	base, tax := pricing.Split(amount, h.gstPercent(ctx))

	var startValue sql.NullString
	err = tx.QueryRowContext(ctx,
		"SELECT value FROM settings WHERE key = $1", models.SettingNextOrderNumber,
	).Scan(&startValue)
	if err != nil && err != sql.ErrNoRows {
		return nil, false, err
	}
	floor := int64(defaultOrderNumberFloor)
	if startValue.Valid {
		if v, perr := strconv.ParseInt(startValue.String, 10, 64); perr == nil {
			floor = v - 1
		}
	}

	var lastNumber int64
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(order_number), 0) FROM orders",
	).Scan(&lastNumber); err != nil {
		return nil, false, err
	}
	if floor > lastNumber {
		lastNumber = floor
	}
	nextNumber := lastNumber + 1

	_, err = tx.ExecContext(ctx,
		`UPDATE orders SET
			order_number = $1,
			razorpay_payment_id = $2,
			amount = $3,
			base_amount = $4,
			tax_amount = $5,
			status = $6,
			customer_email = COALESCE(NULLIF($7, ''), customer_email),
			customer_name = COALESCE(NULLIF($8, ''), customer_name),
			customer_phone = COALESCE(NULLIF($9, ''), customer_phone),
			customer_state = COALESCE(NULLIF($10, ''), customer_state),
			updated_at = CURRENT_TIMESTAMP
		 WHERE id = $11`,
		nextNumber, comp.GatewayPaymentID, amount, base, tax, models.OrderStatusCompleted,
		comp.CustomerEmail, comp.CustomerName, comp.CustomerPhone, comp.CustomerState,
		order.ID,
	)
	if err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, err
	}

	order.Status = models.OrderStatusCompleted
	order.OrderNumber = sql.NullInt64{Int64: nextNumber, Valid: true}
	order.RazorpayPaymentID = sql.NullString{String: comp.GatewayPaymentID, Valid: true}
	order.Amount = amount
	order.BaseAmount = base
	order.TaxAmount = tax
	if comp.CustomerEmail != "" {
		order.CustomerEmail = comp.CustomerEmail
	}
	if comp.CustomerName != "" {
		order.CustomerName = sql.NullString{String: comp.CustomerName, Valid: true}
	}

	h.logger.Info("Order completed",
		zap.Int("order_id", order.ID),
		zap.Int64("order_number", nextNumber),
		zap.String("razorpay_order_id", comp.GatewayOrderID))

	return &order, true, nil
}

// sendInvoiceOnce sends the invoice email unless a successful send is
// already on record. The partial unique index on email_logs keeps this
// idempotent even when two paths race past the check.
func (h *PaymentHandler) sendInvoiceOnce(ctx context.Context, order *models.Order, sentBy string) {
	var alreadySent bool
	err := h.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM email_logs WHERE order_id = $1 AND email_type = 'invoice' AND status = 'sent')",
		order.ID,
	).Scan(&alreadySent)
	if err != nil {
		h.logger.Error("Failed to check email log", zap.Int("order_id", order.ID), zap.Error(err))
		return
	}
	if alreadySent {
		h.logger.Info("Invoice email already sent, skipping", zap.Int("order_id", order.ID))
		return
	}

	subject := mail.InvoiceSubject(order.ID)
	if mailErr := h.mailer.SendInvoice(order, nil); mailErr != nil {
		h.logger.Error("Failed to send invoice email",
			zap.Int("order_id", order.ID),
			zap.Error(mailErr))
		middleware.RecordInvoiceEmail("failed")
		_, err = h.db.ExecContext(ctx,
			`INSERT INTO email_logs (order_id, recipient_email, email_type, subject, status, error_message, sent_by)
			 VALUES ($1, $2, 'invoice', $3, 'failed', $4, $5)`,
			order.ID, order.CustomerEmail, subject, mailErr.Error(), sentBy)
	} else {
		h.logger.Info("Invoice email sent", zap.Int("order_id", order.ID))
		middleware.RecordInvoiceEmail("sent")
		_, err = h.db.ExecContext(ctx,
			`INSERT INTO email_logs (order_id, recipient_email, email_type, subject, status, sent_by)
			 VALUES ($1, $2, 'invoice', $3, 'sent', $4)
			 ON CONFLICT DO NOTHING`,
			order.ID, order.CustomerEmail, subject, sentBy)
	}
	if err != nil {
		h.logger.Error("Failed to write email log", zap.Int("order_id", order.ID), zap.Error(err))
	}
}

func (h *PaymentHandler) upsertUser(ctx context.Context, email, name string) (int, error) {
	var id int
	err := h.db.QueryRowContext(ctx, "SELECT id FROM users WHERE email = $1", email).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}
	err = h.db.QueryRowContext(ctx,
		"INSERT INTO users (email, name) VALUES ($1, $2) RETURNING id",
		email, nullable(name),
	).Scan(&id)
	return id, err
}

func (h *PaymentHandler) gstPercent(ctx context.Context) int {
	if value, ok := settingValue(ctx, h.db, h.rdb, models.SettingGSTPercentage); ok {
		if pct, err := strconv.Atoi(value); err == nil && pct >= 0 {
			return pct
		}
	}
	return h.cfg.DefaultGSTPercent
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
