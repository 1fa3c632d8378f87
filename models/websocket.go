package models

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Websocketクライアントを定義
type Client struct {
	Conn        *websocket.Conn
	PlayerID    uint // JWTから抽出したプレイヤーID
	ConnectedAt time.Time

	writeMu sync.Mutex // gorilla/websocket は同時書き込み不可
}

func (c *Client) WriteMessage(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

func (c *Client) WriteControl(messageType int, data []byte, deadline time.Time) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteControl(messageType, data, deadline)
}

func (c *Client) ReadMessage() (int, []byte, error) {
	return c.Conn.ReadMessage()
}

func (c *Client) Close() error {
	if c.Conn == nil {
		return nil
	}
	return c.Conn.Close()
}
