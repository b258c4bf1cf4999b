package handlers

import (
	"database/sql"
	"encoding/csv"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront-svc/middleware"
	"storefront-svc/models"
)

type ArchivedOrderHandler struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewArchivedOrderHandler(db *sql.DB, logger *zap.Logger) *ArchivedOrderHandler {
	return &ArchivedOrderHandler{db: db, logger: logger}
}

const archivedColumns = `id, order_number, customer_name, customer_email, customer_phone,
	financial_status, paid_at, fulfillment_status,
	subtotal, shipping, taxes, total, discount_code, discount_amount,
	payment_method, payment_reference,
	billing_address, billing_city, billing_state, billing_zip, billing_country,
	shipping_address, shipping_city, shipping_state, shipping_zip, shipping_country,
	product_name, quantity, created_at`

func scanArchived(row interface{ Scan(...interface{}) error }) (*models.ArchivedOrder, error) {
	var o models.ArchivedOrder
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&o.FinancialStatus, &o.PaidAt, &o.FulfillmentStatus,
		&o.Subtotal, &o.Shipping, &o.Taxes, &o.Total, &o.DiscountCode, &o.DiscountAmount,
		&o.PaymentMethod, &o.PaymentReference,
		&o.BillingAddress, &o.BillingCity, &o.BillingState, &o.BillingZip, &o.BillingCountry,
		&o.ShippingAddress, &o.ShippingCity, &o.ShippingState, &o.ShippingZip, &o.ShippingCountry,
		&o.ProductName, &o.Quantity, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// List returns archived orders with page/limit pagination.
func (h *ArchivedOrderHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 20
	}
	offset := (page - 1) * limit

	ctx := c.Request.Context()

	var total int
	if err := h.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM archived_orders").Scan(&total); err != nil {
		h.logger.Error("Failed to count archived orders",
			zap.String("trace_id", middleware.GetTraceID(ctx)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch archived orders"})
		return
	}

	rows, err := h.db.QueryContext(ctx,
		"SELECT "+archivedColumns+" FROM archived_orders ORDER BY created_at DESC LIMIT $1 OFFSET $2",
		limit, offset)
	if err != nil {
		h.logger.Error("Failed to fetch archived orders",
			zap.String("trace_id", middleware.GetTraceID(ctx)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch archived orders"})
		return
	}
	defer rows.Close()

	orders := []*models.ArchivedOrder{}
	for rows.Next() {
		o, err := scanArchived(rows)
		if err != nil {
			h.logger.Error("Failed to scan archived order", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch archived orders"})
			return
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		h.logger.Error("Failed to read archived orders", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch archived orders"})
		return
	}

	totalPages := (total + limit - 1) / limit
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"orders":  orders,
		"pagination": gin.H{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": totalPages,
		},
	})
}

// Get returns one archived order by row id.
func (h *ArchivedOrderHandler) Get(c *gin.Context) {
	orderID, err := strconv.Atoi(c.Param("orderID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid order ID"})
		return
	}

	order, err := scanArchived(h.db.QueryRowContext(c.Request.Context(),
		"SELECT "+archivedColumns+" FROM archived_orders WHERE id = $1", orderID))
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Order not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to fetch archived order",
			zap.String("trace_id", middleware.GetTraceID(c.Request.Context())),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch order"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

// Import consumes a Shopify order-export CSV. Rows are attempted
// independently: duplicates (by order number) and bad rows are counted as
// skipped, never rolled back.
func (h *ArchivedOrderHandler) Import(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "No file provided"})
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Failed to parse CSV"})
		return
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}

	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	ctx := c.Request.Context()
	imported, skipped := 0, 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		orderNumber := strings.TrimPrefix(field(record, "Name"), "#")
		if orderNumber == "" {
			skipped++
			continue
		}

		var exists bool
		err = h.db.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM archived_orders WHERE order_number = $1)", orderNumber,
		).Scan(&exists)
		if err != nil {
			h.logger.Error("Failed to check archived order", zap.String("order_number", orderNumber), zap.Error(err))
			skipped++
			continue
		}
		if exists {
			skipped++
			continue
		}

		phone := field(record, "Phone")
		if phone == "" {
			phone = field(record, "Billing Phone")
		}
		createdAt := parseCSVTime(field(record, "Created at"))
		if !createdAt.Valid {
			createdAt = sql.NullTime{Time: time.Now(), Valid: true}
		}

		_, err = h.db.ExecContext(ctx,
			`INSERT INTO archived_orders (order_number, customer_name, customer_email, customer_phone,
				financial_status, paid_at, fulfillment_status,
				subtotal, shipping, taxes, total, discount_code, discount_amount,
				payment_method, payment_reference,
				billing_address, billing_city, billing_state, billing_zip, billing_country,
				shipping_address, shipping_city, shipping_state, shipping_zip, shipping_country,
				product_name, quantity, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
				$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28)`,
			orderNumber,
			nullable(field(record, "Billing Name")),
			nullable(field(record, "Email")),
			nullable(phone),
			nullable(field(record, "Financial Status")),
			parseCSVTime(field(record, "Paid at")),
			nullable(field(record, "Fulfillment Status")),
			parseCSVFloat(field(record, "Subtotal")),
			parseCSVFloat(field(record, "Shipping")),
			parseCSVFloat(field(record, "Taxes")),
			parseCSVFloat(field(record, "Total")),
			nullable(field(record, "Discount Code")),
			parseCSVFloat(field(record, "Discount Amount")),
			nullable(field(record, "Payment Method")),
			nullable(field(record, "Payment Reference")),
			nullable(field(record, "Billing Address1")),
			nullable(field(record, "Billing City")),
			nullable(field(record, "Billing Province")),
			nullable(field(record, "Billing Zip")),
			nullable(field(record, "Billing Country")),
			nullable(field(record, "Shipping Address1")),
			nullable(field(record, "Shipping City")),
			nullable(field(record, "Shipping Province")),
			nullable(field(record, "Shipping Zip")),
			nullable(field(record, "Shipping Country")),
			nullable(field(record, "Lineitem name")),
			parseCSVInt(field(record, "Lineitem quantity")),
			createdAt,
		)
		if err != nil {
			h.logger.Error("Failed to import archived order",
				zap.String("order_number", orderNumber), zap.Error(err))
			skipped++
			continue
		}
		imported++
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Import completed: " + strconv.Itoa(imported) + " orders imported, " + strconv.Itoa(skipped) + " skipped",
		"imported": imported,
		"skipped":  skipped,
	})
}

var csvTimeLayouts = []string{
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02",
}

func parseCSVTime(s string) sql.NullTime {
	if s == "" {
		return sql.NullTime{}
	}
	for _, layout := range csvTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return sql.NullTime{Time: t, Valid: true}
		}
	}
	return sql.NullTime{}
}

func parseCSVFloat(s string) sql.NullFloat64 {
	if s == "" {
		return sql.NullFloat64{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func parseCSVInt(s string) sql.NullInt64 {
	if s == "" {
		return sql.NullInt64{}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: v, Valid: true}
}
