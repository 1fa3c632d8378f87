package middlewares

import (
	"net/http"

	"memoryserver/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const playerIDKey = "playerID"

// AuthMiddleware はトークンとプレイヤーの存在を検証し、プレイヤーIDをコンテキストにセットする
func AuthMiddleware(db *gorm.DB, secret []byte, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := ParseToken(ExtractToken(c.Request), secret)
		if err != nil {
			logger.Warn("認証失敗", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var player models.Player
		if err := db.WithContext(c.Request.Context()).First(&player, claims.PlayerID).Error; err != nil {
			logger.Warn("プレイヤーIDがデータベースに存在しない", zap.Uint("playerID", claims.PlayerID), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set(playerIDKey, claims.PlayerID)
		c.Next()
	}
}

// PlayerID は AuthMiddleware がセットしたプレイヤーIDを返す
func PlayerID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(playerIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}
