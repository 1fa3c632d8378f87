package database

import (
	"context"
	"time"

	"memoryserver/memory/game"
	"memoryserver/models"

	"gorm.io/gorm"
)

// RoundStore は終了したラウンドの履歴を保存する
type RoundStore struct {
	db *gorm.DB
}

func NewRoundStore(db *gorm.DB) *RoundStore {
	return &RoundStore{db: db}
}

func (s *RoundStore) Record(ctx context.Context, playerID uint, result game.Result, finishedAt time.Time) error {
	record := models.RoundRecord{
		RoundID:      result.RoundID,
		PlayerID:     playerID,
		Category:     result.Category,
		Outcome:      string(result.Outcome),
		Score:        result.Score,
		TimeBonus:    result.TimeBonus,
		TimeLeft:     result.TimeLeft,
		MatchedCards: result.MatchedCards,
		TotalCards:   result.TotalCards,
		FinishedAt:   finishedAt,
	}
	return s.db.WithContext(ctx).Create(&record).Error
}

// Recent は新しい順にラウンド履歴を返す
func (s *RoundStore) Recent(ctx context.Context, playerID uint, limit int) ([]models.RoundRecord, error) {
	var records []models.RoundRecord
	err := s.db.WithContext(ctx).
		Where("player_id = ?", playerID).
		Order("finished_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// PurgeBefore は指定時刻より前に終了したラウンドを物理削除する
func (s *RoundStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Unscoped().
		Where("finished_at < ?", cutoff).
		Delete(&models.RoundRecord{})
	return result.RowsAffected, result.Error
}
