package database

import (
	"fmt"
	"strings"
	"testing"

	"memoryserver/memory/game"
	"memoryserver/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.Player{}, &models.HighScore{}, &models.RoundRecord{}))
	return db
}

func activeState() game.GameState {
	return game.GameState{
		Category: "animals",
		Cards: []string{
			"🐶", "🐱", "🐼", "🦊", "🦁", "🐘", "🦒", "🐪",
			"🐪", "🦒", "🐘", "🦁", "🦊", "🐼", "🐱", "🐶",
		},
		FlippedCards: []int{2},
		MatchedPairs: []int{0, 15},
		Score:        10,
		TimeLeft:     17,
		IsGameActive: true,
	}
}
