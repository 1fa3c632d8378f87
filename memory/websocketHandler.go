package memory

import (
	"context"
	"net/http"
	"time"

	"memoryserver/memory/actions"
	"memoryserver/memory/broadcast"
	"memoryserver/memory/connection"
	"memoryserver/memory/session"
	"memoryserver/middlewares"
	"memoryserver/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 同じプレイヤーの古い接続が後始末を終えるまで待つ時間
const replaceWait = 5 * time.Second

// Dependencies はWebSocket接続の処理に必要なもの。
// Session はセッションごとにコピーされるので RandGen は nil のままにすること
type Dependencies struct {
	DB           *gorm.DB
	Secret       []byte
	Upgrader     websocket.Upgrader
	Registry     *connection.Registry
	Session      session.Deps
	PingPeriod   time.Duration
	ReadDeadline time.Duration
	Logger       *zap.Logger
}

// WebSocket接続へのアップグレードを行い、切断されるまでゲームのセッションを処理する
func HandleConnections(ctx context.Context, w http.ResponseWriter, r *http.Request, deps Dependencies) {
	logger := deps.Logger

	// トークンの検証
	claims, err := middlewares.ParseToken(middlewares.ExtractToken(r), deps.Secret)
	if err != nil {
		logger.Warn("Failed to validate token", zap.Error(err))
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	var player models.Player
	if err := deps.DB.WithContext(r.Context()).First(&player, claims.PlayerID).Error; err != nil {
		logger.Warn("Failed to fetch player", zap.Uint("playerID", claims.PlayerID), zap.Error(err))
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	// WebSocket接続へのアップグレードと確立
	conn, err := deps.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade がエラーレスポンスを返している
		logger.Error("Error upgrading WebSocket", zap.Error(err))
		return
	}

	client := &models.Client{
		Conn:        conn,
		PlayerID:    player.ID,
		ConnectedAt: time.Now(),
	}
	release := deps.Registry.Register(client, replaceWait)
	defer release()
	logger.Info("New client added", zap.Uint("playerID", client.PlayerID))

	// 切断後もスナップショットを保存できるよう、キャンセルは引き継がない
	sess := session.New(context.WithoutCancel(ctx), client.PlayerID, broadcast.NewPresenter(client, logger), deps.Session)
	defer sess.Close()

	// Ping/Pongを管理するゴルーチンを起動
	connection.SetupPongHandler(client, deps.ReadDeadline)
	keepaliveCtx, stopKeepalive := context.WithCancel(ctx)
	defer stopKeepalive()
	go connection.MaintainWebSocketConnection(keepaliveCtx, client, deps.PingPeriod, logger)

	if err := sess.Open(); err != nil {
		logger.Error("Failed to open session", zap.Uint("playerID", client.PlayerID), zap.Error(err))
		client.Close()
		return
	}

	// 切断されるまでメッセージを読み取る
	actions.HandleClient(client, sess, logger)

	client.Close()
	logger.Info("Client removed", zap.Uint("playerID", client.PlayerID))
}
