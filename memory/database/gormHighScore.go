package database

import (
	"context"
	"errors"

	"memoryserver/models"

	"gorm.io/gorm"
)

// HighScoreStore はカテゴリごとの最高得点を管理する
type HighScoreStore struct {
	db *gorm.DB
}

func NewHighScoreStore(db *gorm.DB) *HighScoreStore {
	return &HighScoreStore{db: db}
}

// Submit は記録より高い得点の場合のみ更新する。更新後の最高得点と、更新されたかを返す
func (s *HighScoreStore) Submit(ctx context.Context, playerID uint, category string, score int) (int, bool, error) {
	var best int
	var improved bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var highScore models.HighScore
		err := tx.Where("player_id = ? AND category = ?", playerID, category).First(&highScore).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 初回は得点に関わらず記録する
			highScore = models.HighScore{PlayerID: playerID, Category: category, Score: score}
			if err := tx.Create(&highScore).Error; err != nil {
				return err
			}
			best, improved = score, true
			return nil
		}
		if err != nil {
			return err
		}

		if score <= highScore.Score {
			best = highScore.Score
			return nil
		}
		if err := tx.Model(&highScore).Update("score", score).Error; err != nil {
			return err
		}
		best, improved = score, true
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return best, improved, nil
}

// Table はプレイヤーのカテゴリ→最高得点のマップを返す
func (s *HighScoreStore) Table(ctx context.Context, playerID uint) (map[string]int, error) {
	var highScores []models.HighScore
	if err := s.db.WithContext(ctx).Where("player_id = ?", playerID).Find(&highScores).Error; err != nil {
		return nil, err
	}
	table := make(map[string]int, len(highScores))
	for _, h := range highScores {
		table[h.Category] = h.Score
	}
	return table, nil
}
