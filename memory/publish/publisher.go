package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"memoryserver/memory/game"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// ラウンド終了イベントのサブジェクト
const SubjectRoundFinished = "memory.rounds.finished"

// RoundFinished は終了したラウンドの通知内容
type RoundFinished struct {
	PlayerID   uint        `json:"playerID"`
	Result     game.Result `json:"result"`
	FinishedAt time.Time   `json:"finishedAt"`
}

type Publisher interface {
	PublishRound(ctx context.Context, event RoundFinished) error
	Close()
}

// msgConn は *nats.Conn のうち使う部分だけ
type msgConn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

type NATSPublisher struct {
	conn    msgConn
	subject string
	logger  *zap.Logger
}

// Connect はNATSに接続する。URLが空の場合は何もしない Publisher を返す
func Connect(url string, logger *zap.Logger) (Publisher, error) {
	if url == "" {
		logger.Info("NATS URL not configured, round events will not be published")
		return NopPublisher{}, nil
	}

	opts := []nats.Option{
		nats.Name("memory-server"),
		nats.Timeout(10 * time.Second),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(5),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	logger.Info("Connected to NATS", zap.String("url", nc.ConnectedUrl()))
	return newNATSPublisher(nc, logger), nil
}

func newNATSPublisher(conn msgConn, logger *zap.Logger) *NATSPublisher {
	return &NATSPublisher{conn: conn, subject: SubjectRoundFinished, logger: logger}
}

func (p *NATSPublisher) PublishRound(ctx context.Context, event RoundFinished) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		p.logger.Error("Failed to publish round result",
			zap.Uint("playerID", event.PlayerID),
			zap.String("roundID", event.Result.RoundID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// Close は未送信のメッセージを送り切ってから切断する
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("Failed to drain NATS connection", zap.Error(err))
	}
}

type NopPublisher struct{}

func (NopPublisher) PublishRound(context.Context, RoundFinished) error { return nil }
func (NopPublisher) Close()                                          {}
