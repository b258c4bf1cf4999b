package handlers

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"storefront-svc/cache"
	"storefront-svc/mail"
	"storefront-svc/middleware"
	"storefront-svc/models"
)

const (
	otpTTL          = 10 * time.Minute
	otpMaxAttempts  = 5
	otpRateLimit    = 5
	otpRateWindow   = time.Hour
	adminSessionTTL = 24 * time.Hour
)

var otpFormat = regexp.MustCompile(`^\d{6}$`)

type AuthHandler struct {
	db        *sql.DB
	rdb       *redis.Client
	mailer    mail.Sender
	jwtSecret []byte
	logger    *zap.Logger
}

func NewAuthHandler(db *sql.DB, rdb *redis.Client, mailer mail.Sender, jwtSecret string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		db:        db,
		rdb:       rdb,
		mailer:    mailer,
		jwtSecret: []byte(jwtSecret),
		logger:    logger,
	}
}

func validPurpose(p string) bool {
	switch p {
	case models.OTPPurposeLogin, models.OTPPurposeSignup, models.OTPPurposePasswordReset:
		return true
	}
	return false
}

// SendOTP emails a 6-digit one-time code, rate limited per address.
func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req models.SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil || !strings.Contains(req.Email, "@") {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid email address"})
		return
	}
	if !validPurpose(req.Purpose) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid purpose"})
		return
	}

	ctx := c.Request.Context()
	traceID := middleware.GetTraceID(ctx)

	allowed, err := h.withinRateLimit(c, req.Email)
	if err != nil {
		h.logger.Error("OTP rate limit check failed", zap.String("trace_id", traceID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to send OTP. Please try again."})
		return
	}
	if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"success": false, "message": "Too many OTP requests. Please try again later."})
		return
	}

	var userID int
	err = h.db.QueryRowContext(ctx, "SELECT id FROM users WHERE email = $1", req.Email).Scan(&userID)
	userExists := err == nil
	if err != nil && err != sql.ErrNoRows {
		h.logger.Error("Database error", zap.String("trace_id", traceID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to send OTP. Please try again."})
		return
	}

	if (req.Purpose == models.OTPPurposeLogin || req.Purpose == models.OTPPurposePasswordReset) && !userExists {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "No account found with this email address"})
		return
	}
	if req.Purpose == models.OTPPurposeSignup && userExists {
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "An account with this email already exists"})
		return
	}

	otp, err := generateOTP()
	if err != nil {
		h.logger.Error("Failed to generate OTP", zap.String("trace_id", traceID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to send OTP. Please try again."})
		return
	}

	_, err = h.db.ExecContext(ctx,
		"INSERT INTO otps (email, otp, purpose, expires_at) VALUES ($1, $2, $3, $4)",
		req.Email, otp, req.Purpose, time.Now().Add(otpTTL))
	if err != nil {
		h.logger.Error("Failed to store OTP", zap.String("trace_id", traceID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to send OTP. Please try again."})
		return
	}

	if err := h.mailer.SendOTP(req.Email, otp, req.Purpose); err != nil {
		h.logger.Error("Failed to email OTP", zap.String("trace_id", traceID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to send OTP. Please try again."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "OTP sent successfully to your email"})
}

// VerifyOTP checks the code and signs the caller in, creating the user on
// the signup flow.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req models.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Missing required fields"})
		return
	}
	if !otpFormat.MatchString(req.OTP) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid OTP format"})
		return
	}
	if !validPurpose(req.Purpose) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid purpose"})
		return
	}

	ctx := c.Request.Context()
	traceID := middleware.GetTraceID(ctx)

	ok, err := h.consumeOTP(c, req.Email, req.OTP, req.Purpose)
	if err != nil {
		h.logger.Error("OTP verification failed", zap.String("trace_id", traceID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Verification failed. Please try again."})
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid or expired OTP. Please request a new one."})
		return
	}

	var user models.User
	err = h.db.QueryRowContext(ctx,
		"SELECT id, email, name, phone, is_admin, email_verified FROM users WHERE email = $1",
		req.Email,
	).Scan(&user.ID, &user.Email, &user.Name, &user.Phone, &user.IsAdmin, &user.EmailVerified)

	if err == sql.ErrNoRows && req.Purpose == models.OTPPurposeSignup {
		err = h.db.QueryRowContext(ctx,
			"INSERT INTO users (email, email_verified) VALUES ($1, TRUE) RETURNING id, email, name, phone, is_admin, email_verified",
			req.Email,
		).Scan(&user.ID, &user.Email, &user.Name, &user.Phone, &user.IsAdmin, &user.EmailVerified)
	}
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "User not found"})
		return
	}
	if err != nil {
		h.logger.Error("Database error", zap.String("trace_id", traceID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Verification failed. Please try again."})
		return
	}

	if !user.EmailVerified {
		if _, err := h.db.ExecContext(ctx, "UPDATE users SET email_verified = TRUE WHERE id = $1", user.ID); err != nil {
			h.logger.Error("Failed to mark email verified", zap.String("trace_id", traceID), zap.Error(err))
		} else {
			user.EmailVerified = true
		}
	}
	if req.Purpose == models.OTPPurposeLogin {
		if _, err := h.db.ExecContext(ctx, "UPDATE users SET last_login_at = CURRENT_TIMESTAMP WHERE id = $1", user.ID); err != nil {
			h.logger.Error("Failed to update last login", zap.String("trace_id", traceID), zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"message":          "OTP verified successfully",
		"user":             user,
		"requiresPassword": req.Purpose == models.OTPPurposePasswordReset,
	})
}

// AdminLogin exchanges admin credentials for a bearer token. Every
// /api/admin route checks that token server side.
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req models.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	ctx := c.Request.Context()
	traceID := middleware.GetTraceID(ctx)

	var user models.User
	var passwordHash sql.NullString
	err := h.db.QueryRowContext(ctx,
		"SELECT id, email, name, is_admin, password_hash FROM users WHERE email = $1",
		req.Email,
	).Scan(&user.ID, &user.Email, &user.Name, &user.IsAdmin, &passwordHash)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid credentials"})
		return
	}
	if err != nil {
		h.logger.Error("Database error", zap.String("trace_id", traceID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
		return
	}

	if !user.IsAdmin || !passwordHash.Valid {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid credentials"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash.String), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid credentials"})
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"email":    user.Email,
		"is_admin": true,
		"exp":      time.Now().Add(adminSessionTTL).Unix(),
	})
	tokenString, err := token.SignedString(h.jwtSecret)
	if err != nil {
		h.logger.Error("Failed to sign token", zap.String("trace_id", traceID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
		return
	}

	h.logger.Info("Admin logged in", zap.String("trace_id", traceID), zap.String("email", user.Email))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   tokenString,
		"user":    user,
	})
}

func (h *AuthHandler) withinRateLimit(c *gin.Context, email string) (bool, error) {
	ctx := c.Request.Context()
	if h.rdb != nil {
		count, err := cache.IncrOTPCounter(ctx, h.rdb, email, otpRateWindow)
		if err == nil {
			return count <= otpRateLimit, nil
		}
		h.logger.Warn("Redis OTP counter unavailable, falling back to database", zap.Error(err))
	}

	var recent int
	err := h.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM otps WHERE email = $1 AND created_at > $2",
		email, time.Now().Add(-otpRateWindow),
	).Scan(&recent)
	if err != nil {
		return false, err
	}
	return recent < otpRateLimit, nil
}

// consumeOTP matches the newest live code, counts the attempt, and marks it
// verified on success.
func (h *AuthHandler) consumeOTP(c *gin.Context, email, otp, purpose string) (bool, error) {
	ctx := c.Request.Context()

	var id, attempts int
	err := h.db.QueryRowContext(ctx,
		`SELECT id, attempts FROM otps
		 WHERE email = $1 AND otp = $2 AND purpose = $3 AND verified = FALSE AND expires_at > $4
		 ORDER BY created_at DESC LIMIT 1`,
		email, otp, purpose, time.Now(),
	).Scan(&id, &attempts)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if attempts >= otpMaxAttempts {
		return false, nil
	}

	if _, err := h.db.ExecContext(ctx, "UPDATE otps SET attempts = attempts + 1 WHERE id = $1", id); err != nil {
		return false, err
	}
	if _, err := h.db.ExecContext(ctx,
		"UPDATE otps SET verified = TRUE, verified_at = CURRENT_TIMESTAMP WHERE id = $1", id); err != nil {
		return false, err
	}
	return true, nil
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
