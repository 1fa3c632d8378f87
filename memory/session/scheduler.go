package session

import (
	"time"

	"memoryserver/memory/game"
)

// loopScheduler はタイマーのコールバックをイベントループに投入する
type loopScheduler struct {
	loop  *Loop
	inner game.Scheduler
}

func (s loopScheduler) AfterFunc(d time.Duration, fn func()) game.Task {
	return s.inner.AfterFunc(d, func() { s.loop.Post(fn) })
}

func (s loopScheduler) Every(d time.Duration, fn func()) game.Task {
	return s.inner.Every(d, func() { s.loop.Post(fn) })
}
