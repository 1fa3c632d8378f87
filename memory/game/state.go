package game

import (
	"errors"
	"fmt"

	"memoryserver/memory/deck"
)

var ErrInvalidSnapshot = errors.New("invalid game snapshot")

// Phase はマッチエンジンの状態
type Phase int

const (
	PhaseIdle       Phase = iota // めくられたカードなし
	PhaseOneFlipped              // 1枚めくられている
	PhaseResolving               // 2枚めくられ、判定待ち
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseOneFlipped:
		return "oneFlipped"
	case PhaseResolving:
		return "resolving"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// GameState はラウンドの状態そのもの。JSONはそのままスナップショットとして保存される
type GameState struct {
	Category     string   `json:"category"`
	Cards        []string `json:"cards"`
	FlippedCards []int    `json:"flippedCards"`
	MatchedPairs []int    `json:"matchedPairs"`
	Score        int      `json:"score"`
	TimeLeft     int      `json:"timeLeft"`
	IsGameActive bool     `json:"isGameActive"`
}

func (s *GameState) Phase() Phase {
	switch len(s.FlippedCards) {
	case 0:
		return PhaseIdle
	case 1:
		return PhaseOneFlipped
	}
	return PhaseResolving
}

func (s *GameState) IsFlipped(index int) bool {
	return contains(s.FlippedCards, index)
}

func (s *GameState) IsMatched(index int) bool {
	return contains(s.MatchedPairs, index)
}

// IsFaceUp は表示上カードが表向きかどうか
func (s *GameState) IsFaceUp(index int) bool {
	return s.IsFlipped(index) || s.IsMatched(index)
}

// AllMatched は全カードがマッチ済みかどうか（勝利条件）
func (s *GameState) AllMatched() bool {
	return len(s.Cards) > 0 && len(s.MatchedPairs) == len(s.Cards)
}

// Clone はスライスを含めたディープコピーを返す
func (s *GameState) Clone() GameState {
	c := *s
	c.Cards = append([]string(nil), s.Cards...)
	c.FlippedCards = append([]int{}, s.FlippedCards...)
	c.MatchedPairs = append([]int{}, s.MatchedPairs...)
	return c
}

// Validate は復元したスナップショットの不変条件を検証する
func (s *GameState) Validate() error {
	if !deck.IsCategory(s.Category) {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidSnapshot, s.Category)
	}
	symbols, _ := deck.Symbols(s.Category)
	if len(s.Cards) != 2*len(symbols) {
		return fmt.Errorf("%w: %d cards for %d symbols", ErrInvalidSnapshot, len(s.Cards), len(symbols))
	}

	counts := make(map[string]int, len(symbols))
	for _, c := range s.Cards {
		counts[c]++
	}
	for _, sym := range symbols {
		if counts[sym] != 2 {
			return fmt.Errorf("%w: symbol %q appears %d times", ErrInvalidSnapshot, sym, counts[sym])
		}
	}

	if len(s.FlippedCards) > 2 {
		return fmt.Errorf("%w: %d flipped cards", ErrInvalidSnapshot, len(s.FlippedCards))
	}
	if err := validIndices(s.FlippedCards, len(s.Cards)); err != nil {
		return fmt.Errorf("%w: flippedCards: %v", ErrInvalidSnapshot, err)
	}
	if err := validIndices(s.MatchedPairs, len(s.Cards)); err != nil {
		return fmt.Errorf("%w: matchedPairs: %v", ErrInvalidSnapshot, err)
	}
	if len(s.MatchedPairs)%2 != 0 {
		return fmt.Errorf("%w: odd number of matched cards", ErrInvalidSnapshot)
	}
	// マッチ済みのカードは同じシンボルの相方もマッチ済み
	for _, i := range s.MatchedPairs {
		if !s.IsMatched(s.partner(i)) {
			return fmt.Errorf("%w: card %d matched without its pair", ErrInvalidSnapshot, i)
		}
	}
	if err := s.validFlipped(); err != nil {
		return fmt.Errorf("%w: flippedCards: %v", ErrInvalidSnapshot, err)
	}
	if s.Score < 0 {
		return fmt.Errorf("%w: negative score", ErrInvalidSnapshot)
	}
	if s.IsGameActive && s.TimeLeft <= 0 {
		return fmt.Errorf("%w: active round without time left", ErrInvalidSnapshot)
	}
	return nil
}

// validFlipped は1枚めくりならマッチ済みでないこと、2枚めくりなら両方未マッチか
// マッチ確定した同じシンボルの組であることを確かめる
func (s *GameState) validFlipped() error {
	switch len(s.FlippedCards) {
	case 1:
		if i := s.FlippedCards[0]; s.IsMatched(i) {
			return fmt.Errorf("card %d is already matched", i)
		}
	case 2:
		first, second := s.FlippedCards[0], s.FlippedCards[1]
		a, b := s.IsMatched(first), s.IsMatched(second)
		if a != b || (a && s.Cards[first] != s.Cards[second]) {
			return fmt.Errorf("cards %d and %d are partly matched", first, second)
		}
	}
	return nil
}

// partner は同じシンボルを持つもう1枚のカードの位置
func (s *GameState) partner(index int) int {
	for i, c := range s.Cards {
		if i != index && c == s.Cards[index] {
			return i
		}
	}
	return -1
}

func validIndices(indices []int, n int) error {
	seen := make(map[int]bool, len(indices))
	for _, i := range indices {
		if i < 0 || i >= n {
			return fmt.Errorf("index %d out of range", i)
		}
		if seen[i] {
			return fmt.Errorf("duplicate index %d", i)
		}
		seen[i] = true
	}
	return nil
}

func contains(indices []int, index int) bool {
	for _, i := range indices {
		if i == index {
			return true
		}
	}
	return false
}
