package models

import (
	"time"

	"memoryserver/memory/game"
)

// Config 構造体はサーバー全体の設定情報を保持します。
type Config struct {
	DBHost     string `json:"db_host" validate:"required"`
	DBUser     string `json:"db_user" validate:"required"`
	DBPassword string `json:"db_password"`
	DBName     string `json:"db_name" validate:"required"`
	DBSSLMode  string `json:"db_sslmode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`

	RedisAddr     string `json:"redis_addr" validate:"required,hostname_port"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db" validate:"gte=0"`

	NATSURL string `json:"nats_url" validate:"omitempty,url"` // 空の場合は結果を配信しない

	JWTSecret      string   `json:"jwt_secret" validate:"required,min=16"`
	LogLevel       string   `json:"log_level" validate:"oneof=debug info warn error"`
	ListenAddr     string   `json:"listen_addr" validate:"required"`
	AllowedOrigins []string `json:"allowed_origins"`

	SnapshotTTLHours   int `json:"snapshot_ttl_hours" validate:"gt=0"`
	RoundRetentionDays int `json:"round_retention_days" validate:"gt=0"`

	Game GameConfig `json:"game"`
}

// GameConfig はラウンドの調整値。0の場合はデフォルト値を使う
type GameConfig struct {
	TimeLimitSeconds    int `json:"time_limit_seconds" validate:"gte=0"`
	MatchDelayMillis    int `json:"match_delay_ms" validate:"gte=0"`
	ResolveDelayMillis  int `json:"resolve_delay_ms" validate:"gte=0"`
	TickPeriodMillis    int `json:"tick_period_ms" validate:"gte=0"`
	MatchPoints         int `json:"match_points" validate:"gte=0"`
	TimeBonusMultiplier int `json:"time_bonus_multiplier" validate:"gte=0"`
}

func (c Config) SnapshotTTL() time.Duration {
	return time.Duration(c.SnapshotTTLHours) * time.Hour
}

func (c Config) RoundRetention() time.Duration {
	return time.Duration(c.RoundRetentionDays) * 24 * time.Hour
}

// GameOptions はエンジン用のオプションに変換する
func (g GameConfig) GameOptions() game.Options {
	return game.Options{
		TimeLimit:           g.TimeLimitSeconds,
		MatchDelay:          time.Duration(g.MatchDelayMillis) * time.Millisecond,
		ResolveDelay:        time.Duration(g.ResolveDelayMillis) * time.Millisecond,
		TickPeriod:          time.Duration(g.TickPeriodMillis) * time.Millisecond,
		MatchPoints:         g.MatchPoints,
		TimeBonusMultiplier: g.TimeBonusMultiplier,
	}
}
