package screens

import (
	"context"
	"net/http"
	"strconv"

	"memoryserver/memory/deck"
	"memoryserver/memory/session"
	"memoryserver/middlewares"
	"memoryserver/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultRoundLimit = 20
	maxRoundLimit     = 100
)

// RoundHistory は終了したラウンドの履歴を返す
type RoundHistory interface {
	Recent(ctx context.Context, playerID uint, limit int) ([]models.RoundRecord, error)
}

// CategoriesHandler はカテゴリの一覧とシンボル数を返す
func CategoriesHandler(c *gin.Context) {
	categories := deck.Categories()
	list := make([]gin.H, 0, len(categories))
	for _, category := range categories {
		symbols, _ := deck.Symbols(category)
		list = append(list, gin.H{
			"category": category,
			"pairs":    len(symbols),
		})
	}
	c.JSON(http.StatusOK, gin.H{"categories": list})
}

// HighScoresHandler はプレイヤーのカテゴリごとの最高得点を返す
func HighScoresHandler(c *gin.Context, scores session.HighScoreStore, logger *zap.Logger) {
	playerID, ok := middlewares.PlayerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	table, err := scores.Table(c.Request.Context(), playerID)
	if err != nil {
		logger.Error("Failed to load high scores", zap.Uint("playerID", playerID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load high scores"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"highScores": table})
}

// SnapshotHandler は再開できるラウンドがあるかを返す
func SnapshotHandler(c *gin.Context, snapshots session.SnapshotStore, logger *zap.Logger) {
	playerID, ok := middlewares.PlayerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	snapshot, exists, err := snapshots.Load(c.Request.Context(), playerID)
	if err != nil {
		logger.Error("Failed to load snapshot", zap.Uint("playerID", playerID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load saved game"})
		return
	}
	if !exists {
		c.JSON(http.StatusOK, gin.H{"exists": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"exists":       true,
		"category":     snapshot.Category,
		"score":        snapshot.Score,
		"timeLeft":     snapshot.TimeLeft,
		"matchedCards": len(snapshot.MatchedPairs),
		"totalCards":   len(snapshot.Cards),
	})
}

// DeleteSnapshotHandler は保存されたラウンドを破棄する
func DeleteSnapshotHandler(c *gin.Context, snapshots session.SnapshotStore, logger *zap.Logger) {
	playerID, ok := middlewares.PlayerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := snapshots.Clear(c.Request.Context(), playerID); err != nil {
		logger.Error("Failed to delete snapshot", zap.Uint("playerID", playerID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete saved game"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// RoundsHandler は新しい順にラウンド履歴を返す。?limit= で件数を指定
func RoundsHandler(c *gin.Context, rounds RoundHistory, logger *zap.Logger) {
	playerID, ok := middlewares.PlayerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	limit := defaultRoundLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = min(n, maxRoundLimit)
	}

	records, err := rounds.Recent(c.Request.Context(), playerID, limit)
	if err != nil {
		logger.Error("Failed to load rounds", zap.Uint("playerID", playerID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load rounds"})
		return
	}

	roundsData := make([]gin.H, 0, len(records))
	for _, r := range records {
		roundsData = append(roundsData, gin.H{
			"roundID":      r.RoundID,
			"category":     r.Category,
			"outcome":      r.Outcome,
			"score":        r.Score,
			"timeBonus":    r.TimeBonus,
			"timeLeft":     r.TimeLeft,
			"matchedCards": r.MatchedCards,
			"totalCards":   r.TotalCards,
			"finishedAt":   r.FinishedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"rounds": roundsData})
}
