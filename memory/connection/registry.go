package connection

import (
	"sync"
	"time"

	"memoryserver/models"
)

type entry struct {
	client *models.Client
	done   chan struct{}
}

// Registry はプレイヤーごとに1つの接続だけを保持する
type Registry struct {
	mu      sync.Mutex
	clients map[uint]*entry
	closed  bool
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[uint]*entry)}
}

// Register はクライアントを登録する。同じプレイヤーの古い接続は切断し、
// その後始末（スナップショットの保存）が終わるまで最大 wait だけ待つ。
// 戻り値の関数は接続の後始末が終わったら呼ぶこと
func (r *Registry) Register(c *models.Client, wait time.Duration) func() {
	e := &entry{client: c, done: make(chan struct{})}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		// シャットダウン中は受け付けない。読み取りループはすぐに終わる
		c.Close()
		return func() {}
	}
	old := r.clients[c.PlayerID]
	r.clients[c.PlayerID] = e
	r.mu.Unlock()

	if old != nil {
		old.client.Close()
		select {
		case <-old.done:
		case <-time.After(wait):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			if r.clients[c.PlayerID] == e {
				delete(r.clients, c.PlayerID)
			}
			r.mu.Unlock()
			close(e.done)
		})
	}
}

// CloseAll は全ての接続を切断し、それぞれの後始末が終わるまで最大 wait だけ待つ。
// 以降の Register は即座に切断される。全て終わったら true を返す
func (r *Registry) CloseAll(wait time.Duration) bool {
	r.mu.Lock()
	r.closed = true
	entries := make([]*entry, 0, len(r.clients))
	for _, e := range r.clients {
		entries = append(entries, e)
	}
	r.mu.Unlock()

	for _, e := range entries {
		e.client.Close()
	}

	timeout := time.NewTimer(wait)
	defer timeout.Stop()
	for _, e := range entries {
		select {
		case <-e.done:
		case <-timeout.C:
			return false
		}
	}
	return true
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Lookup は現在の接続を返す
func (r *Registry) Lookup(playerID uint) (*models.Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.clients[playerID]
	if !ok {
		return nil, false
	}
	return e.client, true
}
