package session

import (
	"errors"
	"sync"
)

var ErrClosed = errors.New("session closed")

// Loop は投入された処理を1つのgoroutineで順番に実行する。
// ゲームの状態を変更する処理はすべてここを通す
type Loop struct {
	events   chan func()
	quit     chan struct{}
	finished chan struct{}
	stopOnce sync.Once
}

func NewLoop(buffer int) *Loop {
	return &Loop{
		events:   make(chan func(), buffer),
		quit:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// Run は Stop されるまでイベントを処理する
func (l *Loop) Run() {
	defer close(l.finished)
	for {
		select {
		case fn := <-l.events:
			fn()
		case <-l.quit:
			return
		}
	}
}

// Post は処理をキューに入れる。ループが停止済みなら false
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.quit:
		return false
	default:
	}
	select {
	case l.events <- fn:
		return true
	case <-l.quit:
		return false
	}
}

// Do は処理をキューに入れ、実行が終わるまで待つ。ループ内から呼んではいけない
func (l *Loop) Do(fn func()) error {
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		fn()
	}) {
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-l.finished:
		return ErrClosed
	}
}

// Stop はループを止め、実行中の処理が終わるのを待つ
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.quit) })
	<-l.finished
}
