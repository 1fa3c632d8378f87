package session

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"memoryserver/memory/deck"
	"memoryserver/memory/game"
	"memoryserver/memory/publish"

	"go.uber.org/zap"
)

var (
	ErrNoSavedGame     = errors.New("no saved game to resume")
	ErrNoFinishedRound = errors.New("no finished round")
)

const storeTimeout = 5 * time.Second

type screen int

const (
	screenCategories screen = iota
	screenResumeOffer
	screenPlaying
	screenResults
)

// Deps はセッションが使う外部コンポーネント
type Deps struct {
	Snapshots  SnapshotStore
	HighScores HighScoreStore
	Rounds     RoundStore
	Publisher  publish.Publisher
	Scheduler  game.Scheduler
	RandGen    *rand.Rand
	Options    game.Options
	Logger     *zap.Logger
	Now        func() time.Time
}

// Session は接続中のプレイヤー1人分のゲームを管理する
type Session struct {
	ctx       context.Context
	playerID  uint
	presenter Presenter
	deps      Deps
	logger    *zap.Logger

	loop      *Loop
	engine    *game.Engine
	screen    screen
	offered   *game.GameState // 再開を提案中のスナップショット
	closeOnce sync.Once
}

func New(ctx context.Context, playerID uint, presenter Presenter, deps Deps) *Session {
	if deps.Scheduler == nil {
		deps.Scheduler = game.ClockScheduler{}
	}
	if deps.Publisher == nil {
		deps.Publisher = publish.NopPublisher{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	s := &Session{
		ctx:       ctx,
		playerID:  playerID,
		presenter: presenter,
		deps:      deps,
		logger:    deps.Logger.With(zap.Uint("playerID", playerID)),
		loop:      NewLoop(32),
	}
	sched := loopScheduler{loop: s.loop, inner: deps.Scheduler}
	s.engine = game.NewEngine(sched, observer{s}, scoreKeeper{s}, deps.RandGen, s.logger, deps.Options)

	go s.loop.Run()
	return s
}

func (s *Session) PlayerID() uint { return s.playerID }

// Open は接続直後の画面を表示する。保存されたラウンドがあれば再開を提案する
func (s *Session) Open() error {
	return s.loop.Do(func() {
		ctx, cancel := s.storeContext()
		defer cancel()
		snapshot, ok, err := s.deps.Snapshots.Load(ctx, s.playerID)
		if err != nil {
			s.logger.Error("Failed to load snapshot", zap.Error(err))
		}
		if ok {
			s.offerResume(snapshot)
			return
		}
		s.showCategories()
	})
}

// Start は新しいラウンドを開始する。保存済みのラウンドは破棄される
func (s *Session) Start(category string) error {
	var err error
	if doErr := s.loop.Do(func() { err = s.start(category) }); doErr != nil {
		return doErr
	}
	return err
}

func (s *Session) start(category string) error {
	if !deck.IsCategory(category) {
		return deck.ErrUnknownCategory
	}
	if s.offered != nil {
		s.offered = nil
		s.clearSnapshot()
	}
	s.screen = screenPlaying
	if err := s.engine.Start(category); err != nil {
		return err
	}
	s.presenter.ShowGameState(s.engine.State())
	return nil
}

// Flip はカードをめくる。無効な操作は無視される
func (s *Session) Flip(index int) error {
	return s.loop.Do(func() {
		if s.screen != screenPlaying {
			return
		}
		if !s.engine.Flip(index) {
			s.logger.Debug("Flip ignored", zap.Int("index", index))
		}
	})
}

// Resume は提案中のスナップショットからラウンドを再開する
func (s *Session) Resume() error {
	var err error
	if doErr := s.loop.Do(func() { err = s.resume() }); doErr != nil {
		return doErr
	}
	return err
}

func (s *Session) resume() error {
	if s.offered == nil {
		return ErrNoSavedGame
	}
	snapshot := *s.offered
	s.offered = nil
	// 再開したラウンドはメモリ上にあるので、切断時に改めて保存する
	s.clearSnapshot()

	s.screen = screenPlaying
	if err := s.engine.Resume(snapshot); err != nil {
		s.logger.Warn("Failed to resume round", zap.Error(err))
		s.showCategories()
		return err
	}
	// 全ペア揃ったスナップショットは再開と同時に終了する
	if s.screen == screenPlaying {
		s.presenter.ShowGameState(s.engine.State())
	}
	return nil
}

// Discard は保存されたラウンドを破棄してカテゴリ選択に戻る。中断中のラウンドも捨てる
func (s *Session) Discard() error {
	return s.loop.Do(func() {
		s.offered = nil
		s.engine.Abandon()
		s.clearSnapshot()
		s.showCategories()
	})
}

// Back はラウンドを中断してカテゴリ選択に戻る。中断したラウンドは保存され、再開できる
func (s *Session) Back() error {
	return s.loop.Do(s.back)
}

func (s *Session) back() {
	if snapshot, ok := s.engine.Snapshot(); ok {
		s.engine.Suspend()
		s.saveSnapshot(snapshot)
		s.offered = &snapshot
	}
	s.showCategories()
}

// PlayAgain は直前のラウンドと同じカテゴリで新しいラウンドを始める
func (s *Session) PlayAgain() error {
	var err error
	doErr := s.loop.Do(func() {
		result, ok := s.engine.Result()
		if !ok || s.screen != screenResults {
			err = ErrNoFinishedRound
			return
		}
		err = s.start(result.Category)
	})
	if doErr != nil {
		return doErr
	}
	return err
}

// ChangeCategory は結果画面を閉じてカテゴリ選択に戻る
func (s *Session) ChangeCategory() error {
	return s.loop.Do(func() {
		if s.screen == screenPlaying {
			s.back()
			return
		}
		s.showCategories()
	})
}

// State は現在のゲーム状態のコピーを返す
func (s *Session) State() (game.GameState, error) {
	var state game.GameState
	err := s.loop.Do(func() { state = s.engine.State() })
	return state, err
}

// Close はアクティブなラウンドを保存し（終了済みなら削除し）、ループを止める
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		err := s.loop.Do(func() {
			if snapshot, ok := s.engine.Snapshot(); ok {
				s.engine.Suspend()
				s.saveSnapshot(snapshot)
				return
			}
			if s.offered == nil {
				s.clearSnapshot()
			}
		})
		if err != nil {
			s.logger.Warn("Session loop already stopped", zap.Error(err))
		}
		s.loop.Stop()
		s.logger.Info("Session closed")
	})
}

func (s *Session) showCategories() {
	s.screen = screenCategories
	ctx, cancel := s.storeContext()
	defer cancel()
	highScores, err := s.deps.HighScores.Table(ctx, s.playerID)
	if err != nil {
		s.logger.Error("Failed to load high scores", zap.Error(err))
		highScores = map[string]int{}
	}
	s.presenter.ShowCategories(deck.Categories(), highScores, s.offered)
}

func (s *Session) offerResume(snapshot game.GameState) {
	s.screen = screenResumeOffer
	s.offered = &snapshot
	s.presenter.OfferResume(snapshot)
}

func (s *Session) saveSnapshot(snapshot game.GameState) {
	ctx, cancel := s.storeContext()
	defer cancel()
	if err := s.deps.Snapshots.Save(ctx, s.playerID, snapshot); err != nil {
		s.logger.Error("Failed to save snapshot", zap.Error(err))
	}
}

func (s *Session) clearSnapshot() {
	ctx, cancel := s.storeContext()
	defer cancel()
	if err := s.deps.Snapshots.Clear(ctx, s.playerID); err != nil {
		s.logger.Error("Failed to clear snapshot", zap.Error(err))
	}
}

func (s *Session) storeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(s.ctx, storeTimeout)
}

// roundFinished はラウンド終了後の記録と通知を行う
func (s *Session) roundFinished(result game.Result) {
	s.screen = screenResults
	s.presenter.ShowGameState(s.engine.State())
	if result.Outcome == game.OutcomeWon {
		s.presenter.PlaySound(SoundWin)
	} else {
		s.presenter.PlaySound(SoundLose)
	}
	s.presenter.ShowResults(result)

	s.clearSnapshot()

	finishedAt := s.deps.Now()
	ctx, cancel := s.storeContext()
	defer cancel()
	if err := s.deps.Rounds.Record(ctx, s.playerID, result, finishedAt); err != nil {
		s.logger.Error("Failed to record round", zap.String("roundID", result.RoundID), zap.Error(err))
	}
	event := publish.RoundFinished{PlayerID: s.playerID, Result: result, FinishedAt: finishedAt}
	if err := s.deps.Publisher.PublishRound(ctx, event); err != nil {
		s.logger.Warn("Failed to publish round", zap.String("roundID", result.RoundID), zap.Error(err))
	}
}

// observer はエンジンの通知をクライアントに中継する
type observer struct{ s *Session }

func (o observer) OnFlip(int) {
	o.s.presenter.PlaySound(SoundFlip)
	o.s.presenter.ShowGameState(o.s.engine.State())
}

func (o observer) OnMatch(int, int) {
	o.s.presenter.PlaySound(SoundMatch)
	o.s.presenter.ShowGameState(o.s.engine.State())
}

func (o observer) OnMismatch(first, second int) {
	o.s.logger.Debug("Cards did not match", zap.Int("first", first), zap.Int("second", second))
}

func (o observer) OnResolved(int, int) {
	o.s.presenter.ShowGameState(o.s.engine.State())
}

func (o observer) OnTick(timeLeft int) {
	o.s.presenter.ShowTick(timeLeft)
}

func (o observer) OnRoundEnd(result game.Result) {
	o.s.roundFinished(result)
}

// scoreKeeper はプレイヤーIDを束縛してハイスコアを更新する
type scoreKeeper struct{ s *Session }

func (k scoreKeeper) Submit(category string, score int) (int, bool, error) {
	ctx, cancel := k.s.storeContext()
	defer cancel()
	return k.s.deps.HighScores.Submit(ctx, k.s.playerID, category, score)
}
