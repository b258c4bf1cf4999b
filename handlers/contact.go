package handlers

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront-svc/mail"
	"storefront-svc/middleware"
	"storefront-svc/models"
	"storefront-svc/pricing"
)

type ContactHandler struct {
	db     *sql.DB
	mailer mail.Sender
	logger *zap.Logger
}

func NewContactHandler(db *sql.DB, mailer mail.Sender, logger *zap.Logger) *ContactHandler {
	return &ContactHandler{db: db, mailer: mailer, logger: logger}
}

// SubmitContact stores a contact-form submission as pending.
func (h *ContactHandler) SubmitContact(c *gin.Context) {
	var req struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Phone   string `json:"phone"`
		Subject string `json:"subject"`
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil ||
		req.Name == "" || req.Email == "" || req.Subject == "" || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "All fields are required"})
		return
	}

	var id int
	err := h.db.QueryRowContext(c.Request.Context(),
		`INSERT INTO contact_requests (name, email, phone, subject, message, status)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		req.Name, req.Email, nullable(req.Phone), req.Subject, req.Message, models.ContactStatusPending,
	).Scan(&id)
	if err != nil {
		h.logger.Error("Failed to save contact request",
			zap.String("trace_id", middleware.GetTraceID(c.Request.Context())),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to submit contact request"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Contact request submitted successfully",
		"id":      id,
	})
}

// CaptureLead upserts a lead by email and sends the sample + discount code.
// Neither a duplicate lead nor a failed email fails the request.
func (h *ContactHandler) CaptureLead(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Email is required"})
		return
	}

	ctx := c.Request.Context()
	traceID := middleware.GetTraceID(ctx)

	_, err := h.db.ExecContext(ctx,
		"INSERT INTO leads (email) VALUES ($1) ON CONFLICT (email) DO NOTHING",
		req.Email)
	if err != nil {
		// The email still goes out even when the lead cannot be saved.
		h.logger.Error("Failed to save lead", zap.String("trace_id", traceID), zap.Error(err))
	}

	if err := h.mailer.SendSample(req.Email, pricing.LeadDiscountCode); err != nil {
		h.logger.Error("Failed to send sample email", zap.String("trace_id", traceID), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "Sample sent successfully",
		"discountCode": pricing.LeadDiscountCode,
	})
}
