package middlewares

import (
	"time"

	"memoryserver/models"

	jwt "github.com/dgrijalva/jwt-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// トークンの有効期限
const TokenLifetime = 72 * time.Hour

// GenerateToken はプレイヤーIDを内包したJWTトークンを生成する
func GenerateToken(secret []byte, playerID uint, now time.Time) (string, error) {
	// JWTトークン生成時に内包するデータ
	claims := &models.PlayerClaims{
		PlayerID: playerID,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(TokenLifetime).Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// CreatePlayer はGORMのオートインクリメントで匿名プレイヤーを作成する
func CreatePlayer(db *gorm.DB, nickname string, logger *zap.Logger) (uint, error) {
	player := models.Player{Nickname: nickname}
	if err := db.Create(&player).Error; err != nil {
		logger.Error("プレイヤー作成中にエラー発生", zap.Error(err))
		return 0, err
	}
	return player.ID, nil
}
