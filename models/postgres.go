package models

import (
	"time"

	"gorm.io/gorm"
)

// Player モデルの定義。匿名プレイヤーもトークン発行時に作成される
type Player struct {
	gorm.Model
	Nickname string
}

// HighScore はプレイヤーとカテゴリごとの最高得点
type HighScore struct {
	gorm.Model
	PlayerID uint   `gorm:"not null;uniqueIndex:idx_player_category"`
	Category string `gorm:"not null;uniqueIndex:idx_player_category"`
	Score    int    `gorm:"not null;default:0"`
}

// RoundRecord は終了したラウンドの履歴
type RoundRecord struct {
	gorm.Model
	RoundID      string `gorm:"uniqueIndex;not null"`
	PlayerID     uint   `gorm:"index;not null"`
	Category     string `gorm:"not null"`
	Outcome      string `gorm:"not null"` // "won" または "lost"
	Score        int
	TimeBonus    int
	TimeLeft     int
	MatchedCards int
	TotalCards   int
	FinishedAt   time.Time `gorm:"index;not null"`
}
