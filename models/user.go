package models

import (
	"database/sql"
	"time"
)

type User struct {
	ID            int            `json:"id"`
	Email         string         `json:"email"`
	Name          sql.NullString `json:"name"`
	Phone         sql.NullString `json:"phone"`
	PasswordHash  string         `json:"-"`
	IsAdmin       bool           `json:"is_admin"`
	EmailVerified bool           `json:"email_verified"`
	LastLoginAt   sql.NullTime   `json:"last_login_at"`
	CreatedAt     time.Time      `json:"created_at"`
}

type AdminLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AdminLoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

const (
	OTPPurposeLogin         = "login"
	OTPPurposeSignup        = "signup"
	OTPPurposePasswordReset = "password_reset"
)

type SendOTPRequest struct {
	Email   string `json:"email" binding:"required"`
	Purpose string `json:"purpose" binding:"required"`
}

type VerifyOTPRequest struct {
	Email   string `json:"email" binding:"required"`
	OTP     string `json:"otp" binding:"required"`
	Purpose string `json:"purpose" binding:"required"`
}
