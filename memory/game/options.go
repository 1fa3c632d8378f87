package game

import "time"

// Options はラウンドの調整値。デフォルトは元のブラウザ版と同じ値
type Options struct {
	TimeLimit           int           // 秒
	MatchDelay          time.Duration // マッチ確定までの待ち時間
	ResolveDelay        time.Duration // めくったカードを戻すまでの待ち時間
	TickPeriod          time.Duration
	MatchPoints         int
	TimeBonusMultiplier int
}

func DefaultOptions() Options {
	return Options{
		TimeLimit:           30,
		MatchDelay:          500 * time.Millisecond,
		ResolveDelay:        1000 * time.Millisecond,
		TickPeriod:          time.Second,
		MatchPoints:         10,
		TimeBonusMultiplier: 2,
	}
}

// withDefaults はゼロ値の項目をデフォルトで埋める
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TimeLimit <= 0 {
		o.TimeLimit = d.TimeLimit
	}
	if o.MatchDelay <= 0 {
		o.MatchDelay = d.MatchDelay
	}
	if o.ResolveDelay <= 0 {
		o.ResolveDelay = d.ResolveDelay
	}
	if o.ResolveDelay < o.MatchDelay {
		o.ResolveDelay = o.MatchDelay
	}
	if o.TickPeriod <= 0 {
		o.TickPeriod = d.TickPeriod
	}
	if o.MatchPoints <= 0 {
		o.MatchPoints = d.MatchPoints
	}
	if o.TimeBonusMultiplier <= 0 {
		o.TimeBonusMultiplier = d.TimeBonusMultiplier
	}
	return o
}
