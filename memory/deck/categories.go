package deck

import (
	"errors"
	"sort"
)

var ErrUnknownCategory = errors.New("unknown category")

// カテゴリごとのシンボル一覧。各カテゴリは8種類のユニークなシンボルを持つ
var catalog = map[string][]string{
	"fruits":    {"🍎", "🍌", "🍇", "🍊", "🍓", "🍑", "🍍", "🥝"},
	"animals":   {"🐶", "🐱", "🐼", "🦊", "🦁", "🐘", "🦒", "🐪"},
	"emojis":    {"😀", "😍", "🤔", "😎", "🤩", "😴", "🤗", "🥳"},
	"planets":   {"🌍", "🌎", "🌏", "⭐", "🌙", "☀️", "🌠", "🌌"},
	"landmarks": {"🗽", "🗼", "🗿", "🏰", "🎡", "⛩️", "🏛️", "🕌"},
}

// Categories はカテゴリIDをソート済みで返す
func Categories() []string {
	ids := make([]string, 0, len(catalog))
	for id := range catalog {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Symbols はカテゴリのシンボル一覧のコピーを返す
func Symbols(category string) ([]string, error) {
	symbols, ok := catalog[category]
	if !ok {
		return nil, ErrUnknownCategory
	}
	return append([]string(nil), symbols...), nil
}

func IsCategory(category string) bool {
	_, ok := catalog[category]
	return ok
}
