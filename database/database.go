package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"memoryserver/models"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// デフォルト値。config.json と環境変数で上書きされる
func defaultConfig() models.Config {
	return models.Config{
		DBHost:             "localhost",
		DBSSLMode:          "disable",
		RedisAddr:          "localhost:6379",
		LogLevel:           "info",
		ListenAddr:         ":8080",
		SnapshotTTLHours:   24,
		RoundRetentionDays: 30,
	}
}

// LoadConfig loads the configuration from config.json, then environment variables.
// The file is optional; a missing file means defaults + environment only.
func LoadConfig(filename string) (models.Config, error) {
	config := defaultConfig()

	if filename != "" {
		configFile, err := os.Open(filename)
		switch {
		case err == nil:
			defer configFile.Close()
			jsonParser := json.NewDecoder(configFile)
			if err := jsonParser.Decode(&config); err != nil {
				return config, fmt.Errorf("設定ファイルの解析に失敗しました: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return config, err
		}
	}

	if err := applyEnv(&config); err != nil {
		return config, err
	}

	if err := validator.New().Struct(config); err != nil {
		return config, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// 環境変数から接続情報を取得
func applyEnv(config *models.Config) error {
	fields := map[string]*string{
		"DB_HOST":        &config.DBHost,
		"DB_USER":        &config.DBUser,
		"DB_PASSWORD":    &config.DBPassword,
		"DB_NAME":        &config.DBName,
		"DB_SSLMODE":     &config.DBSSLMode,
		"REDIS_ADDR":     &config.RedisAddr,
		"REDIS_PASSWORD": &config.RedisPassword,
		"NATS_URL":       &config.NATSURL,
		"JWT_SECRET":     &config.JWTSecret,
		"LOG_LEVEL":      &config.LogLevel,
		"LISTEN_ADDR":    &config.ListenAddr,
	}
	for key, field := range fields {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*field = v
		}
	}

	if v, ok := os.LookupEnv("REDIS_DB"); ok && v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REDIS_DB value %q: %w", v, err)
		}
		config.RedisDB = db
	}
	return nil
}

func InitPostgreSQL(config models.Config, logger *zap.Logger) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s dbname=%s password=%s sslmode=%s",
		config.DBHost, config.DBUser, config.DBName, config.DBPassword, config.DBSSLMode)

	const maxRetries = 3
	const retryInterval = 5 * time.Second
	var err error
	for i := 0; i <= maxRetries; i++ {
		var gormDB *gorm.DB
		gormDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err == nil {
			return gormDB, nil
		}
		logger.Error("データベース接続のリトライ", zap.Int("retry", i), zap.Error(err))
		if i < maxRetries {
			time.Sleep(retryInterval)
		}
	}
	return nil, fmt.Errorf("データベース接続に失敗しました: %w", err)
}

// AutoMigrate はテーブルを作成・更新する
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Player{}, &models.HighScore{}, &models.RoundRecord{}); err != nil {
		return fmt.Errorf("マイグレーションに失敗しました: %w", err)
	}
	return nil
}

func InitRedis(ctx context.Context, config models.Config, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})

	// Redisへの接続テスト
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		logger.Error("Failed to connect to Redis", zap.Error(err))
		rdb.Close()
		return nil, err
	}

	logger.Info("Connected to Redis", zap.String("addr", config.RedisAddr))
	return rdb, nil
}
