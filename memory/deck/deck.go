package deck

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

var ErrEmptySymbolSet = errors.New("symbol set is empty")

// 乱数はデッキのシャッフルに使用
func NewRandGenerator() *rand.Rand {
	source := rand.NewSource(time.Now().UnixNano())
	return rand.New(source)
}

// NewDeck はシンボルを2枚ずつ複製し、Fisher–Yates でシャッフルしたデッキを返す
func NewDeck(symbols []string, randGen *rand.Rand) ([]string, error) {
	if len(symbols) == 0 {
		return nil, ErrEmptySymbolSet
	}
	seen := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		if seen[s] {
			return nil, fmt.Errorf("duplicate symbol %q", s)
		}
		seen[s] = true
	}

	cards := make([]string, 0, len(symbols)*2)
	cards = append(cards, symbols...)
	cards = append(cards, symbols...)

	for i := len(cards) - 1; i > 0; i-- {
		j := randGen.Intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
	return cards, nil
}

// ForCategory はカテゴリ名から新しいデッキを作る
func ForCategory(category string, randGen *rand.Rand) ([]string, error) {
	symbols, err := Symbols(category)
	if err != nil {
		return nil, err
	}
	return NewDeck(symbols, randGen)
}
