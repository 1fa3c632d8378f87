package middlewares

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"memoryserver/models"

	jwt "github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testSecret = []byte("0123456789abcdef-test")

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.Player{}))
	return db
}

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken(testSecret, 12, time.Now())
	require.NoError(t, err)

	claims, err := ParseToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, uint(12), claims.PlayerID)

	_, err = ParseToken(token, []byte("another-secret-0000"))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseToken("", testSecret)
	assert.ErrorIs(t, err, ErrMissingToken)

	expired, err := GenerateToken(testSecret, 12, time.Now().Add(-2*TokenLifetime))
	require.NoError(t, err)
	_, err = ParseToken(expired, testSecret)
	assert.Error(t, err)
}

func TestParseTokenRejectsOtherAlgorithms(t *testing.T) {
	claims := &models.PlayerClaims{PlayerID: 3, StandardClaims: jwt.StandardClaims{ExpiresAt: time.Now().Add(time.Hour).Unix()}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseToken(token, testSecret)
	assert.Error(t, err)
}

func TestExtractToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws?token=fromquery", nil)
	assert.Equal(t, "fromquery", ExtractToken(r))

	r.Header.Set("Authorization", "Bearer fromheader")
	assert.Equal(t, "fromheader", ExtractToken(r))

	r.Header.Set("Authorization", "raw")
	assert.Equal(t, "raw", ExtractToken(r))
}

func newAuthContext(token string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/auth", nil)
	if token != "" {
		c.Request.Header.Set("Authorization", "Bearer "+token)
	}
	return c
}

func TestTokenAuthentication(t *testing.T) {
	db := newTestDB(t)
	logger := zap.NewNop()

	// トークンなしは新規プレイヤー
	playerID, token, err := TokenAuthentication(newAuthContext(""), db, testSecret, "guest", logger)
	require.NoError(t, err)
	require.NotZero(t, playerID)
	require.NotEmpty(t, token)

	// 有効なトークンはそのまま
	again, newToken, err := TokenAuthentication(newAuthContext(token), db, testSecret, "guest", logger)
	require.NoError(t, err)
	assert.Equal(t, playerID, again)
	assert.Empty(t, newToken)

	// 期限切れ間近のトークンは同じプレイヤーで再発行
	closeToExpiry, err := GenerateToken(testSecret, playerID, time.Now().Add(-TokenLifetime+30*time.Minute))
	require.NoError(t, err)
	again, newToken, err = TokenAuthentication(newAuthContext(closeToExpiry), db, testSecret, "guest", logger)
	require.NoError(t, err)
	assert.Equal(t, playerID, again)
	assert.NotEmpty(t, newToken)

	// 無効なトークンは新規プレイヤー
	other, newToken, err := TokenAuthentication(newAuthContext("garbage"), db, testSecret, "guest", logger)
	require.NoError(t, err)
	assert.NotEqual(t, playerID, other)
	assert.NotEmpty(t, newToken)

	// 存在しないプレイヤーのトークンも新規プレイヤー
	ghost, err := GenerateToken(testSecret, 9999, time.Now())
	require.NoError(t, err)
	fresh, _, err := TokenAuthentication(newAuthContext(ghost), db, testSecret, "guest", logger)
	require.NoError(t, err)
	assert.NotEqual(t, uint(9999), fresh)

	var count int64
	require.NoError(t, db.Model(&models.Player{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	playerID, err := CreatePlayer(db, "guest", zap.NewNop())
	require.NoError(t, err)

	router := gin.New()
	router.GET("/me", AuthMiddleware(db, testSecret, zap.NewNop()), func(c *gin.Context) {
		id, ok := PlayerID(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"playerID": id})
	})

	valid, err := GenerateToken(testSecret, playerID, time.Now())
	require.NoError(t, err)
	ghost, err := GenerateToken(testSecret, playerID+100, time.Now())
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"valid", valid, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "abc.def.ghi", http.StatusUnauthorized},
		{"unknown player", ghost, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}
