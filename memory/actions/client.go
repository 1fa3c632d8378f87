package actions

import (
	"encoding/json"
	"errors"
	"math"

	"memoryserver/memory/broadcast"
	"memoryserver/memory/deck"
	"memoryserver/memory/game"
	"memoryserver/memory/session"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler はクライアントの操作を受け付ける。*session.Session が満たす
type Handler interface {
	Start(category string) error
	Flip(index int) error
	Resume() error
	Discard() error
	Back() error
	PlayAgain() error
	ChangeCategory() error
}

type Conn interface {
	broadcast.Conn
	ReadMessage() (messageType int, p []byte, err error)
}

// HandleClient は接続が切れるまでメッセージを読み取り、操作を実行する
func HandleClient(conn Conn, handler Handler, logger *zap.Logger) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket error", zap.Error(err))
			}
			return
		}

		// 受信したメッセージをJSON形式でデコード
		var msg map[string]interface{}
		if err := json.Unmarshal(message, &msg); err != nil {
			logger.Error("Error decoding message", zap.Error(err))
			broadcast.SendErrorMessage(conn, "Invalid message", logger)
			continue
		}

		if err := dispatch(conn, handler, msg, logger); errors.Is(err, session.ErrClosed) {
			return
		}
	}
}

func dispatch(conn Conn, handler Handler, msg map[string]interface{}, logger *zap.Logger) error {
	msgType, _ := msg["type"].(string)

	var err error
	switch msgType {
	case "start":
		category, ok := msg["category"].(string)
		if !ok {
			broadcast.SendErrorMessage(conn, "Invalid category", logger)
			return nil
		}
		err = handler.Start(category)
	case "flip":
		indexFloat, ok := msg["index"].(float64)
		if !ok || indexFloat != math.Trunc(indexFloat) {
			broadcast.SendErrorMessage(conn, "Invalid card index", logger)
			logger.Debug("Invalid card index", zap.Any("index", msg["index"]))
			return nil
		}
		err = handler.Flip(int(indexFloat))
	case "resume":
		err = handler.Resume()
	case "discard":
		err = handler.Discard()
	case "back":
		err = handler.Back()
	case "playAgain":
		err = handler.PlayAgain()
	case "changeCategory":
		err = handler.ChangeCategory()
	default:
		logger.Info("Received unknown message type", zap.Any("message", msg))
		broadcast.SendErrorMessage(conn, "Unknown message type", logger)
		return nil
	}

	if err != nil && !errors.Is(err, session.ErrClosed) {
		logger.Info("Action rejected", zap.String("type", msgType), zap.Error(err))
		broadcast.SendErrorMessage(conn, errorMessage(err), logger)
	}
	return err
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, deck.ErrUnknownCategory):
		return "Unknown category"
	case errors.Is(err, session.ErrNoSavedGame):
		return "No saved game"
	case errors.Is(err, game.ErrInvalidSnapshot):
		return "Saved game could not be restored"
	case errors.Is(err, session.ErrNoFinishedRound):
		return "No finished round"
	default:
		return "Internal error"
	}
}
