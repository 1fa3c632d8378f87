package middlewares

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"memoryserver/models"

	jwt "github.com/dgrijalva/jwt-go"
)

var (
	ErrMissingToken = errors.New("token is required")
	ErrInvalidToken = errors.New("invalid token")
)

// ExtractToken はAuthorizationヘッダー、なければ token クエリからトークンを取り出す。
// ブラウザのWebSocketはヘッダーを付けられないのでクエリも受け付ける
func ExtractToken(r *http.Request) string {
	tokenString := r.Header.Get("Authorization")
	// Bearerトークンのプレフィックスを確認し、存在する場合は削除
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")
	if tokenString == "" {
		tokenString = r.URL.Query().Get("token")
	}
	return tokenString
}

// ParseToken はトークンを検証してクレームを返す
func ParseToken(tokenString string, secret []byte) (*models.PlayerClaims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	claims := &models.PlayerClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.PlayerID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
