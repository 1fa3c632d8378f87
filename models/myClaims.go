package models

import (
	"github.com/dgrijalva/jwt-go"
)

// PlayerClaims はJWTクレームの構造体定義です。
type PlayerClaims struct {
	PlayerID uint `json:"playerid"`
	jwt.StandardClaims
}
