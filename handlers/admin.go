package handlers

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront-svc/mail"
	"storefront-svc/middleware"
	"storefront-svc/models"
)

type AdminHandler struct {
	db        *sql.DB
	mailer    mail.Sender
	legacyKey string
	logger    *zap.Logger
}

func NewAdminHandler(db *sql.DB, mailer mail.Sender, legacyKey string, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{db: db, mailer: mailer, legacyKey: legacyKey, logger: logger}
}

type adminOrder struct {
	models.Order
	UserEmail sql.NullString `json:"user_email"`
	UserName  sql.NullString `json:"user_name"`
}

func (h *AdminHandler) fetchOrders(c *gin.Context) ([]adminOrder, bool) {
	rows, err := h.db.QueryContext(c.Request.Context(),
		`SELECT o.id, o.user_id, o.razorpay_order_id, o.razorpay_payment_id, o.order_number,
			o.amount, o.base_amount, o.tax_amount, o.status,
			o.customer_email, o.customer_name, o.customer_phone, o.customer_state,
			o.discount_code, o.discount_amount, o.product_name, o.created_at, o.updated_at,
			u.email, u.name
		 FROM orders o
		 LEFT JOIN users u ON u.id = o.user_id
		 ORDER BY o.created_at DESC`)
	if err != nil {
		h.logger.Error("Failed to fetch orders",
			zap.String("trace_id", middleware.GetTraceID(c.Request.Context())),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch orders"})
		return nil, false
	}
	defer rows.Close()

	orders := []adminOrder{}
	for rows.Next() {
		var o adminOrder
		err := rows.Scan(&o.ID, &o.UserID, &o.RazorpayOrderID, &o.RazorpayPaymentID, &o.OrderNumber,
			&o.Amount, &o.BaseAmount, &o.TaxAmount, &o.Status,
			&o.CustomerEmail, &o.CustomerName, &o.CustomerPhone, &o.CustomerState,
			&o.DiscountCode, &o.DiscountAmount, &o.ProductName, &o.CreatedAt, &o.UpdatedAt,
			&o.UserEmail, &o.UserName)
		if err != nil {
			h.logger.Error("Failed to scan order", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch orders"})
			return nil, false
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		h.logger.Error("Failed to read orders", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch orders"})
		return nil, false
	}
	return orders, true
}

// ListOrders is the dashboard view: all orders plus revenue stats.
func (h *AdminHandler) ListOrders(c *gin.Context) {
	orders, ok := h.fetchOrders(c)
	if !ok {
		return
	}

	var totalRevenue int64
	customers := map[int64]struct{}{}
	for _, o := range orders {
		totalRevenue += o.Amount
		if o.UserID.Valid {
			customers[o.UserID.Int64] = struct{}{}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"orders":  orders,
		"stats": gin.H{
			"totalRevenue":    float64(totalRevenue) / 100,
			"totalOrders":     len(orders),
			"uniqueCustomers": len(customers),
		},
	})
}

// ListOrdersLegacy is the old shared-secret endpoint kept for compatibility.
// The query-parameter key predates the bearer-token admin auth.
func (h *AdminHandler) ListOrdersLegacy(c *gin.Context) {
	if h.legacyKey == "" || c.Query("key") != h.legacyKey {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"})
		return
	}

	orders, ok := h.fetchOrders(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "orders": orders})
}

// ListContactRequests returns the contact inbox, newest first.
func (h *AdminHandler) ListContactRequests(c *gin.Context) {
	rows, err := h.db.QueryContext(c.Request.Context(),
		`SELECT id, name, email, phone, subject, message, status, created_at, updated_at
		 FROM contact_requests ORDER BY created_at DESC`)
	if err != nil {
		h.logger.Error("Failed to fetch contact requests",
			zap.String("trace_id", middleware.GetTraceID(c.Request.Context())),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch contact requests"})
		return
	}
	defer rows.Close()

	requests := []models.ContactRequest{}
	for rows.Next() {
		var r models.ContactRequest
		if err := rows.Scan(&r.ID, &r.Name, &r.Email, &r.Phone, &r.Subject, &r.Message,
			&r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
			h.logger.Error("Failed to scan contact request", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch contact requests"})
			return
		}
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		h.logger.Error("Failed to read contact requests", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch contact requests"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "requests": requests})
}

// UpdateContactRequest sets a request's status. Transitions are not
// constrained, matching how support actually uses the inbox.
func (h *AdminHandler) UpdateContactRequest(c *gin.Context) {
	var req struct {
		ID     int    `json:"id"`
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == 0 || req.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "ID and status are required"})
		return
	}

	var updated models.ContactRequest
	err := h.db.QueryRowContext(c.Request.Context(),
		`UPDATE contact_requests SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2
		 RETURNING id, name, email, phone, subject, message, status, created_at, updated_at`,
		req.Status, req.ID,
	).Scan(&updated.ID, &updated.Name, &updated.Email, &updated.Phone, &updated.Subject,
		&updated.Message, &updated.Status, &updated.CreatedAt, &updated.UpdatedAt)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Contact request not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to update contact request",
			zap.String("trace_id", middleware.GetTraceID(c.Request.Context())),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update contact request"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "request": updated})
}

// ListLeads returns captured leads, newest first.
func (h *AdminHandler) ListLeads(c *gin.Context) {
	rows, err := h.db.QueryContext(c.Request.Context(),
		"SELECT id, email, created_at FROM leads ORDER BY created_at DESC")
	if err != nil {
		h.logger.Error("Failed to fetch leads",
			zap.String("trace_id", middleware.GetTraceID(c.Request.Context())),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch leads"})
		return
	}
	defer rows.Close()

	leads := []models.Lead{}
	for rows.Next() {
		var l models.Lead
		if err := rows.Scan(&l.ID, &l.Email, &l.CreatedAt); err != nil {
			h.logger.Error("Failed to scan lead", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch leads"})
			return
		}
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		h.logger.Error("Failed to read leads", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch leads"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "leads": leads})
}

// SendTestEmail checks SMTP delivery end to end.
func (h *AdminHandler) SendTestEmail(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Email is required"})
		return
	}

	if err := h.mailer.SendTest(req.Email); err != nil {
		h.logger.Error("Test email failed",
			zap.String("trace_id", middleware.GetTraceID(c.Request.Context())),
			zap.String("email", req.Email),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to send test email",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Test email sent successfully to " + req.Email,
	})
}
