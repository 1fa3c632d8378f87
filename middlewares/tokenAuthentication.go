package middlewares

import (
	"time"

	"memoryserver/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TokenAuthentication はリクエストのトークンを検証し、プレイヤーIDと新トークンを返す。
// トークンがない・無効な場合は新しいプレイヤーを作成する。
// 有効期限が1時間未満の場合は同じプレイヤーで再発行する。新トークンが不要な場合は空文字列
func TokenAuthentication(c *gin.Context, db *gorm.DB, secret []byte, nickname string, logger *zap.Logger) (uint, string, error) {
	now := time.Now()

	claims, err := ParseToken(ExtractToken(c.Request), secret)
	if err == nil {
		// トークンのプレイヤーが削除されていないか確認
		var player models.Player
		if dbErr := db.First(&player, claims.PlayerID).Error; dbErr != nil {
			logger.Warn("Token refers to unknown player", zap.Uint("playerID", claims.PlayerID), zap.Error(dbErr))
			err = dbErr
		}
	}

	if err != nil {
		playerID, err := CreatePlayer(db, nickname, logger)
		if err != nil {
			return 0, "", err
		}
		newToken, err := GenerateToken(secret, playerID, now)
		if err != nil {
			logger.Error("Token generation error", zap.Error(err))
			return 0, "", err
		}
		return playerID, newToken, nil
	}

	// トークンの有効期限が1時間未満の場合は新しいトークンを生成
	if time.Unix(claims.ExpiresAt, 0).Sub(now) < time.Hour {
		newToken, err := GenerateToken(secret, claims.PlayerID, now)
		if err != nil {
			logger.Error("Token generation error", zap.Error(err))
			return claims.PlayerID, "", err
		}
		return claims.PlayerID, newToken, nil
	}

	return claims.PlayerID, "", nil
}
