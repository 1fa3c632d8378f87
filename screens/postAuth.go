package screens

import (
	"net/http"

	"memoryserver/middlewares"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuthRequest は認証リクエストのボディ。ボディは省略できる
type AuthRequest struct {
	Nickname string `json:"nickname" binding:"omitempty,max=32"`
}

// AuthHandler は匿名プレイヤーを作成してトークンを発行する。有効なトークンがあれば同じプレイヤーを返す
func AuthHandler(c *gin.Context, db *gorm.DB, secret []byte, logger *zap.Logger) {
	var request AuthRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&request); err != nil {
			logger.Error("Request binding error", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Request binding error"})
			return
		}
	}

	playerID, newToken, err := middlewares.TokenAuthentication(c, db, secret, request.Nickname, logger)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Token processing failed"})
		return
	}

	logger.Info("Player authenticated", zap.Uint("playerID", playerID), zap.Bool("tokenIssued", newToken != ""))
	c.JSON(http.StatusOK, gin.H{
		"status":   "success",
		"playerID": playerID,
		"newToken": newToken,
	})
}
