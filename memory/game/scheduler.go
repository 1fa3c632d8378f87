package game

import (
	"sync"
	"time"
)

// Task はスケジュール済みの処理。Stop後は実行されない
type Task interface {
	Stop() bool
}

// Scheduler は遅延実行と周期実行を提供する
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Task
	Every(d time.Duration, fn func()) Task
}

// ClockScheduler は実時間のタイマーを使う
type ClockScheduler struct{}

func (ClockScheduler) AfterFunc(d time.Duration, fn func()) Task {
	return time.AfterFunc(d, fn)
}

func (ClockScheduler) Every(d time.Duration, fn func()) Task {
	t := &tickerTask{
		ticker: time.NewTicker(d),
		stop:   make(chan struct{}),
	}
	go func() {
		defer t.ticker.Stop()
		for {
			select {
			case <-t.ticker.C:
				fn()
			case <-t.stop:
				return
			}
		}
	}()
	return t
}

type tickerTask struct {
	ticker *time.Ticker
	stop   chan struct{}
	once   sync.Once
}

func (t *tickerTask) Stop() bool {
	stopped := false
	t.once.Do(func() {
		close(t.stop)
		stopped = true
	})
	return stopped
}
