package screens

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gamedb "memoryserver/memory/database"
	"memoryserver/memory/game"
	"memoryserver/middlewares"
	"memoryserver/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testSecret = []byte("screens-test-secret-key")

type testServer struct {
	router    *gin.Engine
	snapshots *gamedb.SnapshotStore
	scores    *gamedb.HighScoreStore
	rounds    *gamedb.RoundStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.Player{}, &models.HighScore{}, &models.RoundRecord{}))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	s := &testServer{
		router:    gin.New(),
		snapshots: gamedb.NewSnapshotStore(rdb, time.Hour, logger),
		scores:    gamedb.NewHighScoreStore(db),
		rounds:    gamedb.NewRoundStore(db),
	}
	auth := middlewares.AuthMiddleware(db, testSecret, logger)
	s.router.POST("/auth", func(c *gin.Context) { AuthHandler(c, db, testSecret, logger) })
	s.router.GET("/categories", CategoriesHandler)
	s.router.GET("/highscores", auth, func(c *gin.Context) { HighScoresHandler(c, s.scores, logger) })
	s.router.GET("/snapshot", auth, func(c *gin.Context) { SnapshotHandler(c, s.snapshots, logger) })
	s.router.DELETE("/snapshot", auth, func(c *gin.Context) { DeleteSnapshotHandler(c, s.snapshots, logger) })
	s.router.GET("/rounds", auth, func(c *gin.Context) { RoundsHandler(c, s.rounds, logger) })
	return s
}

func (s *testServer) do(t *testing.T, method, path, token string, body []byte) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func (s *testServer) login(t *testing.T) (uint, string) {
	t.Helper()
	code, resp := s.do(t, http.MethodPost, "/auth", "", []byte(`{"nickname":"tester"}`))
	require.Equal(t, http.StatusOK, code)
	return uint(resp["playerID"].(float64)), resp["newToken"].(string)
}

func TestAuthHandler(t *testing.T) {
	s := newTestServer(t)
	playerID, token := s.login(t)
	assert.NotZero(t, playerID)
	assert.NotEmpty(t, token)

	// 有効なトークンでは再発行しない
	code, resp := s.do(t, http.MethodPost, "/auth", token, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(playerID), resp["playerID"])
	assert.Equal(t, "", resp["newToken"])

	code, _ = s.do(t, http.MethodPost, "/auth", "", []byte(`{"nickname":"`+strings.Repeat("x", 40)+`"}`))
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCategoriesHandler(t *testing.T) {
	s := newTestServer(t)
	code, resp := s.do(t, http.MethodGet, "/categories", "", nil)
	require.Equal(t, http.StatusOK, code)

	categories := resp["categories"].([]interface{})
	require.Len(t, categories, 5)
	first := categories[0].(map[string]interface{})
	assert.Equal(t, "animals", first["category"])
	assert.Equal(t, float64(8), first["pairs"])
}

func TestHighScoresHandler(t *testing.T) {
	s := newTestServer(t)
	playerID, token := s.login(t)
	_, _, err := s.scores.Submit(context.Background(), playerID, "emojis", 72)
	require.NoError(t, err)

	code, resp := s.do(t, http.MethodGet, "/highscores", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]interface{}{"emojis": float64(72)}, resp["highScores"])

	code, _ = s.do(t, http.MethodGet, "/highscores", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestSnapshotHandlers(t *testing.T) {
	s := newTestServer(t)
	playerID, token := s.login(t)

	code, resp := s.do(t, http.MethodGet, "/snapshot", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, resp["exists"])

	saved := game.GameState{
		Category: "landmarks",
		Cards: []string{
			"🗽", "🗼", "🗿", "🏰", "🎡", "⛩️", "🏛️", "🕌",
			"🕌", "🏛️", "⛩️", "🎡", "🏰", "🗿", "🗼", "🗽",
		},
		FlippedCards: []int{},
		MatchedPairs: []int{1, 14},
		Score:        10,
		TimeLeft:     9,
		IsGameActive: true,
	}
	require.NoError(t, s.snapshots.Save(context.Background(), playerID, saved))

	code, resp = s.do(t, http.MethodGet, "/snapshot", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, resp["exists"])
	assert.Equal(t, "landmarks", resp["category"])
	assert.Equal(t, float64(9), resp["timeLeft"])
	assert.Equal(t, float64(2), resp["matchedCards"])

	code, _ = s.do(t, http.MethodDelete, "/snapshot", token, nil)
	require.Equal(t, http.StatusOK, code)
	_, exists, err := s.snapshots.Load(context.Background(), playerID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRoundsHandler(t *testing.T) {
	s := newTestServer(t)
	playerID, token := s.login(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		result := game.Result{RoundID: fmt.Sprintf("round-%d", i), Category: "fruits", Outcome: game.OutcomeLost, Score: i * 10}
		require.NoError(t, s.rounds.Record(ctx, playerID, result, base.Add(time.Duration(i)*time.Minute)))
	}

	code, resp := s.do(t, http.MethodGet, "/rounds?limit=2", token, nil)
	require.Equal(t, http.StatusOK, code)
	rounds := resp["rounds"].([]interface{})
	require.Len(t, rounds, 2)
	assert.Equal(t, "round-2", rounds[0].(map[string]interface{})["roundID"])

	code, _ = s.do(t, http.MethodGet, "/rounds?limit=zero", token, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}
