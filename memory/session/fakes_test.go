package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"memoryserver/memory/game"
	"memoryserver/memory/publish"
)

// fakeScheduler は Advance で時間を進めたときだけタスクを実行する
type fakeScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks []*fakeTask
}

type fakeTask struct {
	mu      *sync.Mutex
	at      time.Duration
	period  time.Duration
	seq     int
	fn      func()
	stopped bool
}

func (t *fakeTask) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func (s *fakeScheduler) add(d, period time.Duration, fn func()) game.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &fakeTask{mu: &s.mu, at: s.now + d, period: period, seq: s.seq, fn: fn}
	s.tasks = append(s.tasks, t)
	return t
}

func (s *fakeScheduler) AfterFunc(d time.Duration, fn func()) game.Task { return s.add(d, 0, fn) }
func (s *fakeScheduler) Every(d time.Duration, fn func()) game.Task    { return s.add(d, d, fn) }

// Advance は期限の来たタスクを時刻順に実行する。コールバックはロックの外で呼ぶ
func (s *fakeScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()
	for {
		s.mu.Lock()
		var next *fakeTask
		for _, t := range s.tasks {
			if t.stopped || t.at > target {
				continue
			}
			if next == nil || t.at < next.at || (t.at == next.at && t.seq < next.seq) {
				next = t
			}
		}
		if next == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		s.now = next.at
		if next.period > 0 {
			next.at += next.period
		} else {
			next.stopped = true
		}
		fn := next.fn
		s.mu.Unlock()
		fn()
	}
}

type call struct {
	kind      string
	state     game.GameState
	value     interface{}
	resumable bool
}

type fakePresenter struct {
	mu    sync.Mutex
	calls []call
}

func (p *fakePresenter) record(c call) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, c)
}

func (p *fakePresenter) ShowCategories(categories []string, highScores map[string]int, resumable *game.GameState) {
	c := call{kind: "categories", value: highScores}
	if resumable != nil {
		c.state = *resumable
		c.resumable = true
	}
	p.record(c)
}
func (p *fakePresenter) OfferResume(snapshot game.GameState) {
	p.record(call{kind: "resumeOffer", state: snapshot})
}
func (p *fakePresenter) ShowGameState(state game.GameState) {
	p.record(call{kind: "gameState", state: state})
}
func (p *fakePresenter) ShowTick(timeLeft int)   { p.record(call{kind: "tick", value: timeLeft}) }
func (p *fakePresenter) PlaySound(sound Sound)   { p.record(call{kind: "sound", value: sound}) }
func (p *fakePresenter) ShowResults(r game.Result) { p.record(call{kind: "results", value: r}) }

func (p *fakePresenter) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]string, len(p.calls))
	for i, c := range p.calls {
		kinds[i] = c.kind
	}
	return kinds
}

func (p *fakePresenter) last(kind string) (call, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.calls) - 1; i >= 0; i-- {
		if p.calls[i].kind == kind {
			return p.calls[i], true
		}
	}
	return call{}, false
}

func (p *fakePresenter) sounds() []Sound {
	p.mu.Lock()
	defer p.mu.Unlock()
	var sounds []Sound
	for _, c := range p.calls {
		if c.kind == "sound" {
			sounds = append(sounds, c.value.(Sound))
		}
	}
	return sounds
}

func (p *fakePresenter) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
}

type memSnapshots struct {
	mu      sync.Mutex
	states  map[uint]game.GameState
	loadErr error
}

func newMemSnapshots() *memSnapshots {
	return &memSnapshots{states: map[uint]game.GameState{}}
}

func (m *memSnapshots) Save(_ context.Context, playerID uint, state game.GameState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[playerID] = state.Clone()
	return nil
}

func (m *memSnapshots) Load(_ context.Context, playerID uint) (game.GameState, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return game.GameState{}, false, m.loadErr
	}
	state, ok := m.states[playerID]
	return state, ok, nil
}

func (m *memSnapshots) Clear(_ context.Context, playerID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, playerID)
	return nil
}

func (m *memSnapshots) get(playerID uint) (game.GameState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[playerID]
	return state, ok
}

type memHighScores struct {
	mu     sync.Mutex
	scores map[string]int
	err    error
}

func (m *memHighScores) Submit(_ context.Context, _ uint, category string, score int) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, false, m.err
	}
	if best, ok := m.scores[category]; ok && score <= best {
		return best, false, nil
	}
	m.scores[category] = score
	return score, true, nil
}

func (m *memHighScores) Table(context.Context, uint) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	table := make(map[string]int, len(m.scores))
	for k, v := range m.scores {
		table[k] = v
	}
	return table, nil
}

type memRounds struct {
	mu      sync.Mutex
	results []game.Result
}

func (m *memRounds) Record(_ context.Context, _ uint, result game.Result, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, result)
	return nil
}

func (m *memRounds) all() []game.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]game.Result(nil), m.results...)
}

// fakePublisher は記録したうえで常に失敗する
type fakePublisher struct {
	mu     sync.Mutex
	events []publish.RoundFinished
}

func (p *fakePublisher) PublishRound(_ context.Context, event publish.RoundFinished) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return errors.New("broker unavailable")
}

func (p *fakePublisher) Close() {}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}
