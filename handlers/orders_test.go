package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
)

func setupOrderTest(t *testing.T, mailer *fakeMailer) (sqlmock.Sqlmock, *gin.Engine, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}

	handler := NewOrderHandler(db, mailer, zaptest.NewLogger(t))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/api/orders", handler.ListByEmail)
	router.GET("/api/orders/:orderID/invoice", handler.Invoice)
	router.POST("/api/admin/orders/:orderID/resend-email", handler.ResendEmail)
	router.GET("/api/admin/orders/:orderID/email-logs", handler.EmailLogs)

	return mock, router, func() { db.Close() }
}

func orderRow(status, state string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "user_id", "razorpay_order_id", "razorpay_payment_id", "order_number",
		"amount", "base_amount", "tax_amount", "status",
		"customer_email", "customer_name", "customer_phone", "customer_state",
		"discount_code", "discount_amount", "product_name", "created_at", "updated_at",
	}).AddRow(42, 7, "order_123", "pay_456", 1113, 49900, 42288, 7612, status,
		"buyer@example.com", "Buyer", nil, state, nil, 0, "Satvik 3-Book Collection", now, now)
}

func TestListByEmail_RequiresEmail(t *testing.T) {
	mock, router, teardown := setupOrderTest(t, &fakeMailer{})
	defer teardown()

	req := httptest.NewRequest("GET", "/api/orders", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unexpected database calls were made: %v", err)
	}
}

func TestListByEmail_UnknownEmailReturnsEmptyList(t *testing.T) {
	mock, router, teardown := setupOrderTest(t, &fakeMailer{})
	defer teardown()

	mock.ExpectQuery("FROM orders WHERE customer_email = \\$1").
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	req := httptest.NewRequest("GET", "/api/orders?email=nobody@example.com", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	var resp struct {
		Success bool              `json:"success"`
		Orders  []json.RawMessage `json:"orders"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if !resp.Success || resp.Orders == nil || len(resp.Orders) != 0 {
		t.Errorf("Expected success with an empty order list, got %s", w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestInvoice_IntraStateSplitsGST(t *testing.T) {
	mock, router, teardown := setupOrderTest(t, &fakeMailer{})
	defer teardown()

	mock.ExpectQuery("FROM orders WHERE id = \\$1").
		WithArgs(42).
		WillReturnRows(orderRow("completed", "Karnataka"))

	req := httptest.NewRequest("GET", "/api/orders/42/invoice", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "CGST") || !strings.Contains(body, "SGST") {
		t.Errorf("Expected CGST/SGST lines for an in-state customer")
	}
	if strings.Contains(body, "IGST") {
		t.Errorf("Did not expect an IGST line for an in-state customer")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestInvoice_InterStateUsesIGST(t *testing.T) {
	mock, router, teardown := setupOrderTest(t, &fakeMailer{})
	defer teardown()

	mock.ExpectQuery("FROM orders WHERE id = \\$1").
		WithArgs(42).
		WillReturnRows(orderRow("completed", "Delhi"))

	req := httptest.NewRequest("GET", "/api/orders/42/invoice", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "IGST") {
		t.Errorf("Expected an IGST line for an out-of-state customer")
	}
	if strings.Contains(body, "CGST") {
		t.Errorf("Did not expect a CGST line for an out-of-state customer")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestResendEmail_DraftOrderRejected(t *testing.T) {
	mailer := &fakeMailer{}
	mock, router, teardown := setupOrderTest(t, mailer)
	defer teardown()

	mock.ExpectQuery("FROM orders WHERE id = \\$1").
		WithArgs(42).
		WillReturnRows(orderRow("draft", "Karnataka"))

	w := postJSON(router, "/api/admin/orders/42/resend-email", map[string]interface{}{})

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	if mailer.invoices != 0 {
		t.Errorf("Expected no invoice email, got %d", mailer.invoices)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestResendEmail_SendsAndLogs(t *testing.T) {
	mailer := &fakeMailer{}
	mock, router, teardown := setupOrderTest(t, mailer)
	defer teardown()

	mock.ExpectQuery("FROM orders WHERE id = \\$1").
		WithArgs(42).
		WillReturnRows(orderRow("completed", "Karnataka"))
	mock.ExpectExec("INSERT INTO email_logs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	w := postJSON(router, "/api/admin/orders/42/resend-email", map[string]interface{}{
		"ccEmails": []string{"accounts@example.com"},
		"sentBy":   "support",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	if mailer.invoices != 1 {
		t.Errorf("Expected one invoice email, got %d", mailer.invoices)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestResendEmail_MailFailureIsLogged(t *testing.T) {
	mailer := &fakeMailer{failInvoice: errors.New("smtp down")}
	mock, router, teardown := setupOrderTest(t, mailer)
	defer teardown()

	mock.ExpectQuery("FROM orders WHERE id = \\$1").
		WithArgs(42).
		WillReturnRows(orderRow("completed", "Karnataka"))
	mock.ExpectExec("INSERT INTO email_logs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	w := postJSON(router, "/api/admin/orders/42/resend-email", map[string]interface{}{})

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}
