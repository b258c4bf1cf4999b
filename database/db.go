package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"storefront-svc/config"
)

func InitDB(cfg *config.Config, logger *zap.Logger) (*sql.DB, error) {
	psqlInfo := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)

	db, err := sql.Open("postgres", psqlInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	logger.Info("Database connection established")
	return db, nil
}

func createSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			name VARCHAR(255),
			phone VARCHAR(32),
			password_hash VARCHAR(255),
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			email_verified BOOLEAN NOT NULL DEFAULT FALSE,
			last_login_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id SERIAL PRIMARY KEY,
			user_id INTEGER REFERENCES users(id),
			razorpay_order_id VARCHAR(64) UNIQUE NOT NULL,
			razorpay_payment_id VARCHAR(64),
			order_number INTEGER UNIQUE,
			amount BIGINT NOT NULL,
			base_amount BIGINT NOT NULL DEFAULT 0,
			tax_amount BIGINT NOT NULL DEFAULT 0,
			status VARCHAR(16) NOT NULL DEFAULT 'draft',
			customer_email VARCHAR(255) NOT NULL,
			customer_name VARCHAR(255),
			customer_phone VARCHAR(32),
			customer_state VARCHAR(64),
			discount_code VARCHAR(32),
			discount_amount BIGINT NOT NULL DEFAULT 0,
			product_name VARCHAR(255),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS email_logs (
			id SERIAL PRIMARY KEY,
			order_id INTEGER NOT NULL REFERENCES orders(id),
			recipient_email VARCHAR(255) NOT NULL,
			cc_emails TEXT,
			email_type VARCHAR(32) NOT NULL,
			subject VARCHAR(255),
			status VARCHAR(16) NOT NULL,
			error_message TEXT,
			sent_by VARCHAR(32),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		// One successful invoice per order. The application checks before
		// sending, this index makes the guarantee hold under races too.
		`CREATE UNIQUE INDEX IF NOT EXISTS email_logs_sent_once
			ON email_logs (order_id, email_type) WHERE status = 'sent'`,
		`CREATE TABLE IF NOT EXISTS archived_orders (
			id SERIAL PRIMARY KEY,
			order_number VARCHAR(32) UNIQUE NOT NULL,
			customer_name VARCHAR(255),
			customer_email VARCHAR(255),
			customer_phone VARCHAR(64),
			financial_status VARCHAR(64),
			paid_at TIMESTAMP,
			fulfillment_status VARCHAR(64),
			subtotal DOUBLE PRECISION,
			shipping DOUBLE PRECISION,
			taxes DOUBLE PRECISION,
			total DOUBLE PRECISION,
			discount_code VARCHAR(64),
			discount_amount DOUBLE PRECISION,
			payment_method VARCHAR(128),
			payment_reference VARCHAR(128),
			billing_address VARCHAR(255),
			billing_city VARCHAR(128),
			billing_state VARCHAR(128),
			billing_zip VARCHAR(32),
			billing_country VARCHAR(64),
			shipping_address VARCHAR(255),
			shipping_city VARCHAR(128),
			shipping_state VARCHAR(128),
			shipping_zip VARCHAR(32),
			shipping_country VARCHAR(64),
			product_name VARCHAR(255),
			quantity INTEGER,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key VARCHAR(64) PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS contact_requests (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL,
			phone VARCHAR(32),
			subject VARCHAR(255) NOT NULL,
			message TEXT NOT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS leads (
			id SERIAL PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS otps (
			id SERIAL PRIMARY KEY,
			email VARCHAR(255) NOT NULL,
			otp VARCHAR(6) NOT NULL,
			purpose VARCHAR(32) NOT NULL,
			verified BOOLEAN NOT NULL DEFAULT FALSE,
			verified_at TIMESTAMP,
			attempts INTEGER NOT NULL DEFAULT 0,
			expires_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS otps_email_idx ON otps (email, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
