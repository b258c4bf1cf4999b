package models

import (
	"database/sql"
	"time"
)

// Well-known settings keys. The table is an open key/value store, these are
// the ones the service itself reads.
const (
	SettingProductPrice    = "productPrice"
	SettingHeroImage       = "heroImage"
	SettingGSTPercentage   = "gstPercentage"
	SettingNextOrderNumber = "nextOrderNumber"
)

type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ContactStatus string

const (
	ContactStatusPending    ContactStatus = "pending"
	ContactStatusInProgress ContactStatus = "in_progress"
	ContactStatusResolved   ContactStatus = "resolved"
)

type ContactRequest struct {
	ID        int            `json:"id"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Phone     sql.NullString `json:"phone"`
	Subject   string         `json:"subject"`
	Message   string         `json:"message"`
	Status    ContactStatus  `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type Lead struct {
	ID        int       `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
