package session

import (
	"context"
	"time"

	"memoryserver/memory/game"
)

// SnapshotStore は中断したラウンドを保存する
type SnapshotStore interface {
	Save(ctx context.Context, playerID uint, state game.GameState) error
	Load(ctx context.Context, playerID uint) (game.GameState, bool, error)
	Clear(ctx context.Context, playerID uint) error
}

type HighScoreStore interface {
	Submit(ctx context.Context, playerID uint, category string, score int) (int, bool, error)
	Table(ctx context.Context, playerID uint) (map[string]int, error)
}

type RoundStore interface {
	Record(ctx context.Context, playerID uint, result game.Result, finishedAt time.Time) error
}

// Sound はクライアントで鳴らす効果音
type Sound string

const (
	SoundFlip  Sound = "flip"
	SoundMatch Sound = "match"
	SoundWin   Sound = "win"
	SoundLose  Sound = "lose"
)

// Presenter はクライアントへの描画を担当する
type Presenter interface {
	ShowCategories(categories []string, highScores map[string]int, resumable *game.GameState)
	OfferResume(snapshot game.GameState)
	ShowGameState(state game.GameState)
	ShowTick(timeLeft int)
	PlaySound(sound Sound)
	ShowResults(result game.Result)
}
