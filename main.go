package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"memoryserver/database"               //PostgreSQLとRedisの初期化
	"memoryserver/memory"                 //WebSocketでのゲーム進行
	"memoryserver/memory/connection"      //Ping/Pongと接続の管理
	gamedb "memoryserver/memory/database" //スナップショット・ハイスコア・ラウンド履歴
	"memoryserver/memory/game"            //ゲームエンジン
	"memoryserver/memory/publish"         //ラウンド結果のNATS配信
	"memoryserver/memory/session"         //プレイヤーごとのセッション
	"memoryserver/middlewares"            //JWT認証
	"memoryserver/screens"                //HTTPリクエストの処理
	"memoryserver/utils"                  //ロガーの初期化とCronジョブ

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"
)

func main() {
	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = "config.json"
	}
	config, err := database.LoadConfig(configFile)
	if err != nil {
		panic(err) // 設定がなければ起動できない
	}

	logger, err := utils.InitLogger(config.LogLevel) // ロガーの初期化
	if err != nil {
		panic(err)
	}
	defer logger.Sync() // ロガーのクリーンアップ

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 非同期でPostgreSQLとRedisの初期化
	var db *gorm.DB
	var rdb *redis.Client
	done := make(chan bool)

	go func() {
		var err error
		db, err = database.InitPostgreSQL(config, logger)
		if err != nil {
			logger.Fatal("PostgreSQLの初期化に失敗しました", zap.Error(err))
		}
		if err := database.AutoMigrate(db); err != nil {
			logger.Fatal("マイグレーションに失敗しました", zap.Error(err))
		}
		done <- true
	}()

	go func() {
		var err error
		rdb, err = database.InitRedis(ctx, config, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Redis", zap.Error(err))
		}
		done <- true
	}()

	// 2つの初期化が完了するのを待つ
	<-done
	<-done
	defer rdb.Close()

	publisher, err := publish.Connect(config.NATSURL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer publisher.Close()

	snapshots := gamedb.NewSnapshotStore(rdb, config.SnapshotTTL(), logger)
	highScores := gamedb.NewHighScoreStore(db)
	rounds := gamedb.NewRoundStore(db)

	// クーロンスケジューラのセットアップと呼び出し
	cleaner, err := utils.CronCleaner(rounds, config.RoundRetention(), logger)
	if err != nil {
		logger.Fatal("Failed to start cron jobs", zap.Error(err))
	}
	defer cleaner.Stop()

	secret := []byte(config.JWTSecret)
	wsDeps := memory.Dependencies{
		DB:     db,
		Secret: secret,
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(config.AllowedOrigins),
		},
		Registry: connection.NewRegistry(),
		Session: session.Deps{
			Snapshots:  snapshots,
			HighScores: highScores,
			Rounds:     rounds,
			Publisher:  publisher,
			Scheduler:  game.ClockScheduler{},
			Options:    config.Game.GameOptions(),
			Logger:     logger,
		},
		PingPeriod:   connection.PingPeriod,
		ReadDeadline: connection.ReadDeadline,
		Logger:       logger,
	}

	router := gin.New()
	//リクエストロガーを起動
	router.Use(gin.Recovery(), utils.RequestLogger(logger))

	//CORS（Cross-Origin Resource Sharing）ポリシーを設定
	corsConfig := cors.Config{
		AllowOrigins:     config.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(config.AllowedOrigins) == 0 {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	router.Use(cors.New(corsConfig))

	auth := middlewares.AuthMiddleware(db, secret, logger)

	//各HTTPリクエストのルーティング
	router.POST("/auth", func(c *gin.Context) {
		screens.AuthHandler(c, db, secret, logger)
	})
	router.GET("/categories", screens.CategoriesHandler)
	router.GET("/highscores", auth, func(c *gin.Context) {
		screens.HighScoresHandler(c, highScores, logger)
	})
	router.GET("/snapshot", auth, func(c *gin.Context) {
		screens.SnapshotHandler(c, snapshots, logger)
	})
	router.DELETE("/snapshot", auth, func(c *gin.Context) {
		screens.DeleteSnapshotHandler(c, snapshots, logger)
	})
	router.GET("/rounds", auth, func(c *gin.Context) {
		screens.RoundsHandler(c, rounds, logger)
	})
	router.GET("/ws", func(c *gin.Context) {
		memory.HandleConnections(ctx, c.Writer, c.Request, wsDeps)
	})

	srv := &http.Server{Addr: config.ListenAddr, Handler: router}
	go func() {
		logger.Info("Server started", zap.String("addr", config.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to run HTTP server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	// WebSocket接続はShutdownの対象外なので、ここで切断してスナップショットの保存を待つ
	if !wsDeps.Registry.CloseAll(10 * time.Second) {
		logger.Warn("Some sessions did not close in time")
	}
}

// checkOrigin は許可されたOriginからのWebSocket接続だけを受け付ける。未設定なら全て許可
func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		for _, o := range allowed {
			if o == origin {
				return true
			}
		}
		return false
	}
}
