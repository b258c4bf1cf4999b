package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
)

const testLegacyKey = "legacy-key"

func setupAdminTest(t *testing.T, mailer *fakeMailer) (sqlmock.Sqlmock, *gin.Engine, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}

	handler := NewAdminHandler(db, mailer, testLegacyKey, zaptest.NewLogger(t))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/api/admin/orders", handler.ListOrders)
	router.GET("/api/admin/all-orders", handler.ListOrdersLegacy)
	router.GET("/api/admin/contact-requests", handler.ListContactRequests)
	router.PATCH("/api/admin/contact-requests", handler.UpdateContactRequest)
	router.GET("/api/admin/leads", handler.ListLeads)
	router.POST("/api/admin/test-email", handler.SendTestEmail)

	return mock, router, func() { db.Close() }
}

func adminOrderRows() *sqlmock.Rows {
	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "razorpay_order_id", "razorpay_payment_id", "order_number",
		"amount", "base_amount", "tax_amount", "status",
		"customer_email", "customer_name", "customer_phone", "customer_state",
		"discount_code", "discount_amount", "product_name", "created_at", "updated_at",
		"email", "name",
	})
	rows.AddRow(1, 7, "order_a", "pay_a", 1113, 49900, 42288, 7612, "completed",
		"one@example.com", "One", nil, "Karnataka", nil, 0, "Satvik 3-Book Collection", now, now,
		"one@example.com", "One")
	rows.AddRow(2, 7, "order_b", "pay_b", 1114, 44900, 38051, 6849, "completed",
		"one@example.com", "One", nil, "Delhi", "SATVIK10", 5000, "Satvik 3-Book Collection", now, now,
		"one@example.com", "One")
	return rows
}

func TestListOrders_Stats(t *testing.T) {
	mock, router, teardown := setupAdminTest(t, &fakeMailer{})
	defer teardown()

	mock.ExpectQuery("LEFT JOIN users").WillReturnRows(adminOrderRows())

	req := httptest.NewRequest("GET", "/api/admin/orders", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	var resp struct {
		Stats struct {
			TotalRevenue    float64 `json:"totalRevenue"`
			TotalOrders     int     `json:"totalOrders"`
			UniqueCustomers int     `json:"uniqueCustomers"`
		} `json:"stats"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Stats.TotalRevenue != 948 {
		t.Errorf("Expected total revenue 948 rupees, got %v", resp.Stats.TotalRevenue)
	}
	if resp.Stats.TotalOrders != 2 {
		t.Errorf("Expected 2 orders, got %d", resp.Stats.TotalOrders)
	}
	if resp.Stats.UniqueCustomers != 1 {
		t.Errorf("Expected 1 unique customer, got %d", resp.Stats.UniqueCustomers)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestListOrdersLegacy_WrongKey(t *testing.T) {
	mock, router, teardown := setupAdminTest(t, &fakeMailer{})
	defer teardown()

	req := httptest.NewRequest("GET", "/api/admin/all-orders?key=wrong", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unexpected database calls were made: %v", err)
	}
}

func TestListOrdersLegacy_ValidKey(t *testing.T) {
	mock, router, teardown := setupAdminTest(t, &fakeMailer{})
	defer teardown()

	mock.ExpectQuery("LEFT JOIN users").WillReturnRows(adminOrderRows())

	req := httptest.NewRequest("GET", "/api/admin/all-orders?key="+testLegacyKey, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestUpdateContactRequest_NotFound(t *testing.T) {
	mock, router, teardown := setupAdminTest(t, &fakeMailer{})
	defer teardown()

	mock.ExpectQuery("UPDATE contact_requests SET status").
		WithArgs("resolved", 99).
		WillReturnError(sql.ErrNoRows)

	body := []byte(`{"id": 99, "status": "resolved"}`)
	req := httptest.NewRequest("PATCH", "/api/admin/contact-requests", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, w.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestUpdateContactRequest_MissingFields(t *testing.T) {
	mock, router, teardown := setupAdminTest(t, &fakeMailer{})
	defer teardown()

	body := []byte(`{"id": 5}`)
	req := httptest.NewRequest("PATCH", "/api/admin/contact-requests", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unexpected database calls were made: %v", err)
	}
}

func TestSendTestEmail(t *testing.T) {
	mailer := &fakeMailer{}
	mock, router, teardown := setupAdminTest(t, mailer)
	defer teardown()

	w := postJSON(router, "/api/admin/test-email", map[string]string{"email": "check@example.com"})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	if mailer.testEmails != 1 {
		t.Errorf("Expected one test email, got %d", mailer.testEmails)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unexpected database calls were made: %v", err)
	}
}
