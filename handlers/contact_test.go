package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"storefront-svc/pricing"
)

func setupContactTest(t *testing.T, mailer *fakeMailer) (sqlmock.Sqlmock, *gin.Engine, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}

	handler := NewContactHandler(db, mailer, zaptest.NewLogger(t))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/contact", handler.SubmitContact)
	router.POST("/api/leads", handler.CaptureLead)

	return mock, router, func() { db.Close() }
}

func TestSubmitContact_MissingFields(t *testing.T) {
	mock, router, teardown := setupContactTest(t, &fakeMailer{})
	defer teardown()

	w := postJSON(router, "/api/contact", map[string]string{
		"name":  "Someone",
		"email": "someone@example.com",
	})

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unexpected database calls were made: %v", err)
	}
}

func TestSubmitContact_Success(t *testing.T) {
	mock, router, teardown := setupContactTest(t, &fakeMailer{})
	defer teardown()

	mock.ExpectQuery("INSERT INTO contact_requests").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))

	w := postJSON(router, "/api/contact", map[string]string{
		"name":    "Someone",
		"email":   "someone@example.com",
		"subject": "Shipping",
		"message": "When does my order ship?",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	var resp struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.ID != 12 {
		t.Errorf("Expected request id 12, got %d", resp.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestCaptureLead_ReturnsDiscountCode(t *testing.T) {
	mailer := &fakeMailer{}
	mock, router, teardown := setupContactTest(t, mailer)
	defer teardown()

	mock.ExpectExec("INSERT INTO leads").
		WithArgs("lead@example.com").
		WillReturnResult(sqlmock.NewResult(1, 1))

	w := postJSON(router, "/api/leads", map[string]string{"email": "lead@example.com"})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	var resp struct {
		DiscountCode string `json:"discountCode"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.DiscountCode != pricing.LeadDiscountCode {
		t.Errorf("Expected discount code %s, got %s", pricing.LeadDiscountCode, resp.DiscountCode)
	}
	if mailer.samples != 1 {
		t.Errorf("Expected one sample email, got %d", mailer.samples)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestCaptureLead_EmailFailureStillSucceeds(t *testing.T) {
	mailer := &fakeMailer{failSample: errors.New("smtp down")}
	mock, router, teardown := setupContactTest(t, mailer)
	defer teardown()

	mock.ExpectExec("INSERT INTO leads").
		WithArgs("lead@example.com").
		WillReturnResult(sqlmock.NewResult(1, 1))

	w := postJSON(router, "/api/leads", map[string]string{"email": "lead@example.com"})

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d despite email failure, got %d", http.StatusOK, w.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestCaptureLead_RequiresEmail(t *testing.T) {
	mock, router, teardown := setupContactTest(t, &fakeMailer{})
	defer teardown()

	w := postJSON(router, "/api/leads", map[string]string{})

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unexpected database calls were made: %v", err)
	}
}
