package broadcast

import (
	"encoding/json"

	"memoryserver/memory/game"
	"memoryserver/memory/session"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// 裏向きのカードはシンボルを送らない
const cardBack = "?"

// Conn はフレームの書き込み先。*models.Client が満たす
type Conn interface {
	WriteMessage(messageType int, data []byte) error
}

// Presenter はセッションの描画をWebSocketのJSONフレームとして送る
type Presenter struct {
	conn   Conn
	logger *zap.Logger
}

var _ session.Presenter = (*Presenter)(nil)

func NewPresenter(conn Conn, logger *zap.Logger) *Presenter {
	return &Presenter{conn: conn, logger: logger}
}

// ShowCategories はカテゴリ選択を送る。中断したラウンドがあれば resumable に概要を載せる
func (p *Presenter) ShowCategories(categories []string, highScores map[string]int, resumable *game.GameState) {
	var summary map[string]interface{}
	if resumable != nil {
		summary = resumeSummary(*resumable)
	}
	p.send(map[string]interface{}{
		"type":       "categories",
		"categories": categories,
		"highScores": highScores,
		"resumable":  summary,
	})
}

func (p *Presenter) OfferResume(snapshot game.GameState) {
	msg := resumeSummary(snapshot)
	msg["type"] = "resumeOffer"
	p.send(msg)
}

func resumeSummary(snapshot game.GameState) map[string]interface{} {
	return map[string]interface{}{
		"category": snapshot.Category,
		"score":    snapshot.Score,
		"timeLeft": snapshot.TimeLeft,
	}
}

func (p *Presenter) ShowGameState(state game.GameState) {
	p.send(map[string]interface{}{
		"type":         "gameState",
		"category":     state.Category,
		"cards":        visibleCards(state),
		"flippedCards": state.FlippedCards,
		"matchedPairs": state.MatchedPairs,
		"score":        state.Score,
		"timeLeft":     state.TimeLeft,
		"isGameActive": state.IsGameActive,
	})
}

func (p *Presenter) ShowTick(timeLeft int) {
	p.send(map[string]interface{}{
		"type":     "tick",
		"timeLeft": timeLeft,
	})
}

func (p *Presenter) PlaySound(sound session.Sound) {
	p.send(map[string]interface{}{
		"type":   "sound",
		"effect": sound,
		"tones":  Tones(sound),
	})
}

func (p *Presenter) ShowResults(result game.Result) {
	title := "Game Over!"
	if result.Outcome == game.OutcomeWon {
		title = "Congratulations!"
	}
	p.send(map[string]interface{}{
		"type":         "gameResults",
		"outcome":      result.Outcome,
		"title":        title,
		"score":        result.Score,
		"timeBonus":    result.TimeBonus,
		"highScore":    result.HighScore,
		"newHighScore": result.NewHighScore,
	})
}

func (p *Presenter) send(message map[string]interface{}) {
	messageJSON, err := json.Marshal(message)
	if err != nil {
		p.logger.Error("Failed to marshal message", zap.Any("type", message["type"]), zap.Error(err))
		return
	}
	if err := p.conn.WriteMessage(websocket.TextMessage, messageJSON); err != nil {
		p.logger.Error("Failed to send message", zap.Any("type", message["type"]), zap.Error(err))
	}
}

// visibleCards はめくられているカードとマッチ済みのカードだけシンボルを見せる
func visibleCards(state game.GameState) []string {
	cards := make([]string, len(state.Cards))
	for i, c := range state.Cards {
		if state.IsFaceUp(i) {
			cards[i] = c
		} else {
			cards[i] = cardBack
		}
	}
	return cards
}

// SendErrorMessage はクライアントにエラーを通知する
func SendErrorMessage(conn Conn, errorMessage string, logger *zap.Logger) {
	errorJSON, _ := json.Marshal(map[string]string{"type": "error", "error": errorMessage})
	if err := conn.WriteMessage(websocket.TextMessage, errorJSON); err != nil {
		logger.Error("Failed to send error message", zap.Error(err))
	}
}
