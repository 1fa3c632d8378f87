package game

import (
	"time"
)

// manualScheduler は Advance で時間を進めたときだけタスクを実行する
type manualScheduler struct {
	now   time.Duration
	seq   int
	tasks []*manualTask
}

type manualTask struct {
	at      time.Duration
	period  time.Duration
	seq     int
	fn      func()
	stopped bool
}

func (t *manualTask) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (s *manualScheduler) add(d, period time.Duration, fn func()) *manualTask {
	s.seq++
	t := &manualTask{at: s.now + d, period: period, seq: s.seq, fn: fn}
	s.tasks = append(s.tasks, t)
	return t
}

func (s *manualScheduler) AfterFunc(d time.Duration, fn func()) Task {
	return s.add(d, 0, fn)
}

func (s *manualScheduler) Every(d time.Duration, fn func()) Task {
	return s.add(d, d, fn)
}

func (s *manualScheduler) Advance(d time.Duration) {
	target := s.now + d
	for {
		next := s.next(target)
		if next == nil {
			break
		}
		s.now = next.at
		if next.period > 0 {
			next.at += next.period
		} else {
			next.stopped = true
		}
		next.fn()
	}
	s.now = target
}

func (s *manualScheduler) next(limit time.Duration) *manualTask {
	var best *manualTask
	for _, t := range s.tasks {
		if t.stopped || t.at > limit {
			continue
		}
		if best == nil || t.at < best.at || (t.at == best.at && t.seq < best.seq) {
			best = t
		}
	}
	return best
}

func (s *manualScheduler) Live() int {
	n := 0
	for _, t := range s.tasks {
		if !t.stopped {
			n++
		}
	}
	return n
}
