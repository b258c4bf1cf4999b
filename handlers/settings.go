package handlers

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storefront-svc/cache"
	"storefront-svc/middleware"
	"storefront-svc/models"
)

type SettingsHandler struct {
	db     *sql.DB
	rdb    *redis.Client
	logger *zap.Logger
}

func NewSettingsHandler(db *sql.DB, rdb *redis.Client, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{db: db, rdb: rdb, logger: logger}
}

// GetSettings returns every setting as a flat key/value map. Public: the
// landing page reads productPrice and heroImage from here.
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	rows, err := h.db.QueryContext(c.Request.Context(), "SELECT key, value FROM settings")
	if err != nil {
		h.logger.Error("Failed to fetch settings",
			zap.String("trace_id", middleware.GetTraceID(c.Request.Context())),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch settings"})
		return
	}
	defer rows.Close()

	settings := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			h.logger.Error("Failed to scan setting", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch settings"})
			return
		}
		settings[key] = value
	}
	if err := rows.Err(); err != nil {
		h.logger.Error("Failed to read settings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch settings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "settings": settings})
}

// UpsertSetting writes one key/value pair and drops its cache entry.
func (h *SettingsHandler) UpsertSetting(c *gin.Context) {
	var req struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Key is required"})
		return
	}

	var setting models.Setting
	err := h.db.QueryRowContext(c.Request.Context(),
		`INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, CURRENT_TIMESTAMP)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = CURRENT_TIMESTAMP
		 RETURNING key, value, updated_at`,
		req.Key, req.Value,
	).Scan(&setting.Key, &setting.Value, &setting.UpdatedAt)
	if err != nil {
		h.logger.Error("Failed to update setting",
			zap.String("trace_id", middleware.GetTraceID(c.Request.Context())),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update setting"})
		return
	}

	if h.rdb != nil {
		if err := cache.DeleteSetting(c.Request.Context(), h.rdb, req.Key); err != nil {
			h.logger.Warn("Failed to invalidate setting cache", zap.String("key", req.Key), zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "setting": setting})
}

// settingValue reads one setting through the cache. Missing keys report
// ok=false; so do read errors, callers fall back to their defaults.
func settingValue(ctx context.Context, db *sql.DB, rdb *redis.Client, key string) (string, bool) {
	if rdb != nil {
		if value, err := cache.GetSetting(ctx, rdb, key); err == nil {
			return value, true
		}
	}

	var value string
	err := db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = $1", key).Scan(&value)
	if err != nil {
		return "", false
	}

	if rdb != nil {
		_ = cache.SetSetting(ctx, rdb, key, value)
	}
	return value, true
}
