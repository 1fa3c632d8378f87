package game

import (
	"fmt"
	"math/rand"
	"time"

	"memoryserver/memory/deck"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Outcome string

const (
	OutcomeWon  Outcome = "won"
	OutcomeLost Outcome = "lost"
)

// Result はラウンド終了時にプレゼンテーション層へ渡す結果
type Result struct {
	RoundID      string  `json:"roundID"`
	Category     string  `json:"category"`
	Outcome      Outcome `json:"outcome"`
	Score        int     `json:"score"`
	TimeBonus    int     `json:"timeBonus"`
	TimeLeft     int     `json:"timeLeft"`
	MatchedCards int     `json:"matchedCards"`
	TotalCards   int     `json:"totalCards"`
	HighScore    int     `json:"highScore"`
	NewHighScore bool    `json:"newHighScore"`
}

// Observer はエンジンの副作用（効果音・再描画）を受け取る
type Observer interface {
	OnFlip(index int)
	OnMatch(first, second int)
	OnMismatch(first, second int)
	OnResolved(first, second int)
	OnTick(timeLeft int)
	OnRoundEnd(result Result)
}

// ScoreKeeper はカテゴリごとのハイスコアを更新する
type ScoreKeeper interface {
	Submit(category string, score int) (best int, improved bool, err error)
}

// Engine はカードめくり、マッチ判定、タイマー、勝敗判定を担当する。
// goroutine-safe ではないので、呼び出しとスケジュールされた処理は同じイベントループで実行すること
type Engine struct {
	opts     Options
	sched    Scheduler
	observer Observer
	scores   ScoreKeeper
	randGen  *rand.Rand
	logger   *zap.Logger

	state      GameState
	roundID    string
	generation uint64 // ラウンドの世代。古いコールバックはこれで無効化する
	running    bool
	timer      Task
	pending    []Task
	result     *Result
}

func NewEngine(sched Scheduler, observer Observer, scores ScoreKeeper, randGen *rand.Rand, logger *zap.Logger, opts Options) *Engine {
	if observer == nil {
		observer = NopObserver{}
	}
	if randGen == nil {
		randGen = deck.NewRandGenerator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		opts:     opts.withDefaults(),
		sched:    sched,
		observer: observer,
		scores:   scores,
		randGen:  randGen,
		logger:   logger,
	}
}

func (e *Engine) Options() Options { return e.opts }

// Start は新しいデッキでラウンドを開始する
func (e *Engine) Start(category string) error {
	cards, err := deck.ForCategory(category, e.randGen)
	if err != nil {
		return err
	}

	e.halt()
	e.state = GameState{
		Category:     category,
		Cards:        cards,
		FlippedCards: []int{},
		MatchedPairs: []int{},
		Score:        0,
		TimeLeft:     e.opts.TimeLimit,
		IsGameActive: true,
	}
	e.begin()
	e.logger.Info("Round started", zap.String("roundID", e.roundID), zap.String("category", category))
	return nil
}

// Resume はスナップショットからラウンドを再開する。タイマーは保存された残り時間から再開
func (e *Engine) Resume(snapshot GameState) error {
	if err := snapshot.Validate(); err != nil {
		return err
	}
	if !snapshot.IsGameActive {
		return fmt.Errorf("%w: round already finished", ErrInvalidSnapshot)
	}

	e.halt()
	e.state = snapshot.Clone()
	e.begin()
	e.logger.Info("Round resumed",
		zap.String("roundID", e.roundID),
		zap.String("category", e.state.Category),
		zap.Int("score", e.state.Score),
		zap.Int("timeLeft", e.state.TimeLeft),
	)

	if e.state.AllMatched() {
		e.endGame(true)
		return nil
	}
	// 2枚めくった状態で保存された場合は判定をやり直す
	if len(e.state.FlippedCards) == 2 {
		e.resolve()
	}
	return nil
}

// Flip はカードをめくる。前提条件を満たさない操作は無視して false を返す
func (e *Engine) Flip(index int) bool {
	s := &e.state
	if !e.running || !s.IsGameActive ||
		len(s.FlippedCards) >= 2 ||
		index < 0 || index >= len(s.Cards) ||
		s.IsFlipped(index) ||
		s.IsMatched(index) {
		return false
	}

	s.FlippedCards = append(s.FlippedCards, index)
	e.logger.Debug("Card flipped", zap.String("roundID", e.roundID), zap.Int("index", index))
	e.observer.OnFlip(index)

	if len(s.FlippedCards) == 2 {
		e.resolve()
	}
	return true
}

// Suspend はタイマーと保留中の判定を止める。ラウンドはアクティブのまま（スナップショット保存の対象）
func (e *Engine) Suspend() {
	if !e.running {
		return
	}
	e.halt()
	e.logger.Info("Round suspended", zap.String("roundID", e.roundID), zap.Int("timeLeft", e.state.TimeLeft))
}

// Abandon はラウンドを結果なしで破棄する。ハイスコアは更新しない
func (e *Engine) Abandon() {
	e.halt()
	if !e.state.IsGameActive {
		return
	}
	e.state.FlippedCards = []int{}
	e.state.IsGameActive = false
	e.result = nil
	e.logger.Info("Round abandoned", zap.String("roundID", e.roundID))
}

func (e *Engine) State() GameState { return e.state.Clone() }

// Snapshot はアクティブなラウンドのスナップショットを返す
func (e *Engine) Snapshot() (GameState, bool) {
	if !e.state.IsGameActive {
		return GameState{}, false
	}
	return e.state.Clone(), true
}

func (e *Engine) Result() (Result, bool) {
	if e.result == nil {
		return Result{}, false
	}
	return *e.result, true
}

func (e *Engine) RoundID() string { return e.roundID }

func (e *Engine) Running() bool { return e.running }

func (e *Engine) begin() {
	e.roundID = uuid.New().String()
	e.result = nil
	e.running = true
	e.startTimer()
}

// halt はタイマーと保留中のタスクを止め、世代を進める
func (e *Engine) halt() {
	e.stopTimer()
	for _, t := range e.pending {
		t.Stop()
	}
	e.pending = nil
	e.generation++
	e.running = false
}

// resolve は2枚めくった時点で結果のタスクを1つのタイムラインに予約する
func (e *Engine) resolve() {
	first, second := e.state.FlippedCards[0], e.state.FlippedCards[1]

	// マッチ確定後に保存されたスナップショット
	if e.state.IsMatched(first) && e.state.IsMatched(second) {
		e.schedule(e.opts.ResolveDelay, func() { e.clearFlipped(first, second) })
		return
	}

	if e.state.Cards[first] != e.state.Cards[second] {
		e.schedule(e.opts.ResolveDelay, func() {
			e.observer.OnMismatch(first, second)
			e.clearFlipped(first, second)
		})
		return
	}

	if e.opts.MatchDelay >= e.opts.ResolveDelay {
		e.schedule(e.opts.ResolveDelay, func() {
			if e.applyMatch(first, second) {
				e.clearFlipped(first, second)
			}
		})
		return
	}
	e.schedule(e.opts.MatchDelay, func() { e.applyMatch(first, second) })
	e.schedule(e.opts.ResolveDelay, func() { e.clearFlipped(first, second) })
}

func (e *Engine) schedule(d time.Duration, fn func()) {
	gen := e.generation
	task := e.sched.AfterFunc(d, func() {
		if gen != e.generation || !e.state.IsGameActive {
			return
		}
		fn()
	})
	e.pending = append(e.pending, task)
}

// applyMatch はマッチを確定させる。ラウンドが続く場合は true
func (e *Engine) applyMatch(first, second int) bool {
	s := &e.state
	s.MatchedPairs = append(s.MatchedPairs, first, second)
	s.Score += e.opts.MatchPoints
	e.logger.Debug("Pair matched",
		zap.String("roundID", e.roundID),
		zap.Int("first", first),
		zap.Int("second", second),
		zap.Int("score", s.Score),
	)
	e.observer.OnMatch(first, second)

	if s.AllMatched() {
		e.endGame(true)
		return false
	}
	return true
}

func (e *Engine) clearFlipped(first, second int) {
	e.state.FlippedCards = []int{}
	e.pending = nil
	e.observer.OnResolved(first, second)
}

func (e *Engine) startTimer() {
	e.stopTimer()
	gen := e.generation
	e.timer = e.sched.Every(e.opts.TickPeriod, func() { e.tick(gen) })
}

func (e *Engine) stopTimer() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (e *Engine) tick(gen uint64) {
	if gen != e.generation || !e.state.IsGameActive {
		return
	}
	e.state.TimeLeft--
	if e.state.TimeLeft <= 0 {
		e.state.TimeLeft = 0
		e.observer.OnTick(0)
		e.endGame(false)
		return
	}
	e.observer.OnTick(e.state.TimeLeft)
}

// endGame はラウンドを終了させる。これ以降スコアやカードの状態は変わらない
func (e *Engine) endGame(isWin bool) {
	e.halt()

	s := &e.state
	s.FlippedCards = []int{}
	s.IsGameActive = false

	result := Result{
		RoundID:      e.roundID,
		Category:     s.Category,
		Outcome:      OutcomeLost,
		TimeLeft:     s.TimeLeft,
		MatchedCards: len(s.MatchedPairs),
		TotalCards:   len(s.Cards),
	}
	if isWin {
		result.Outcome = OutcomeWon
		result.TimeBonus = s.TimeLeft * e.opts.TimeBonusMultiplier
		s.Score += result.TimeBonus
	}
	result.Score = s.Score
	result.HighScore = s.Score

	if e.scores != nil {
		best, improved, err := e.scores.Submit(s.Category, s.Score)
		if err != nil {
			e.logger.Error("Failed to submit high score", zap.String("roundID", e.roundID), zap.Error(err))
		} else {
			result.HighScore = best
			result.NewHighScore = improved
		}
	}

	e.result = &result
	e.logger.Info("Round finished",
		zap.String("roundID", e.roundID),
		zap.String("category", s.Category),
		zap.String("outcome", string(result.Outcome)),
		zap.Int("score", result.Score),
		zap.Int("timeLeft", s.TimeLeft),
	)
	e.observer.OnRoundEnd(result)
}

// NopObserver は何もしない Observer
type NopObserver struct{}

func (NopObserver) OnFlip(int)          {}
func (NopObserver) OnMatch(int, int)    {}
func (NopObserver) OnMismatch(int, int) {}
func (NopObserver) OnResolved(int, int) {}
func (NopObserver) OnTick(int)          {}
func (NopObserver) OnRoundEnd(Result)   {}
