package connection

import (
	"context"
	"time"

	"memoryserver/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	PingPeriod   = 10 * time.Second // 10秒ごとにPingを送信
	ReadDeadline = 60 * time.Second // Pongが来なければ切断
)

// SetupPongHandler は読み取りデッドラインを設定し、Pongを受信するたびに延長する。
// 読み取りを始める前に呼ぶこと
func SetupPongHandler(c *models.Client, readDeadline time.Duration) {
	// 読み取りデッドラインの初期設定（最初のPong待機に使用）
	c.Conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})
}

// MaintainWebSocketConnection は定期的にPingを送る。ctxが終了するかPingの送信に失敗すると戻る
func MaintainWebSocketConnection(ctx context.Context, c *models.Client, pingPeriod time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.WriteControl(websocket.PingMessage, nil, time.Now().Add(pingPeriod)); err != nil {
				logger.Info("Error sending ping", zap.Uint("playerID", c.PlayerID), zap.Error(err))
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
