package utils

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// RoundPurger は古いラウンド履歴を削除する
type RoundPurger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// CronCleaner は保持期間を過ぎたラウンド履歴を毎日削除するジョブを開始する
func CronCleaner(purger RoundPurger, retention time.Duration, logger *zap.Logger) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc("@daily", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		PurgeExpiredRounds(ctx, purger, retention, time.Now(), logger)
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	return c, nil
}

// PurgeExpiredRounds は now から retention より前に終了したラウンドを削除する
func PurgeExpiredRounds(ctx context.Context, purger RoundPurger, retention time.Duration, now time.Time, logger *zap.Logger) {
	logger.Info("古いラウンド履歴を削除する処理を開始")
	deleted, err := purger.PurgeBefore(ctx, now.Add(-retention))
	if err != nil {
		logger.Error("ラウンド履歴の削除に失敗しました", zap.Error(err))
		return
	}
	logger.Info("ラウンド履歴の削除完了", zap.Int64("rounds_deleted", deleted))
}
