package broadcast

import "memoryserver/memory/session"

// Tone はクライアントのオシレーターで鳴らす1音
type Tone struct {
	Frequency int     `json:"frequency"` // Hz
	Duration  float64 `json:"duration"`  // 秒
	Delay     int     `json:"delay"`     // ミリ秒
}

var toneTable = map[session.Sound][]Tone{
	session.SoundFlip:  {{Frequency: 300, Duration: 0.1}},
	session.SoundMatch: {{Frequency: 500, Duration: 0.15}},
	session.SoundLose:  {{Frequency: 200, Duration: 0.3}},
	session.SoundWin: {
		{Frequency: 400, Duration: 0.1},
		{Frequency: 600, Duration: 0.15, Delay: 150},
		{Frequency: 800, Duration: 0.2, Delay: 300},
	},
}

// Tones は効果音の音列を返す。未知の効果音は空
func Tones(sound session.Sound) []Tone {
	tones := toneTable[sound]
	out := make([]Tone, len(tones))
	copy(out, tones)
	return out
}
