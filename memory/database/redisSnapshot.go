package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"memoryserver/memory/game"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const snapshotKeyPrefix = "savedGameState:"

// SnapshotStore は中断したラウンドのスナップショットをRedisに保存する
type SnapshotStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewSnapshotStore(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *SnapshotStore {
	return &SnapshotStore{rdb: rdb, ttl: ttl, logger: logger}
}

func snapshotKey(playerID uint) string {
	return fmt.Sprintf("%s%d", snapshotKeyPrefix, playerID)
}

func (s *SnapshotStore) Save(ctx context.Context, playerID uint, state game.GameState) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.rdb.Set(ctx, snapshotKey(playerID), stateJSON, s.ttl).Err(); err != nil {
		s.logger.Error("Error storing snapshot in Redis", zap.Uint("playerID", playerID), zap.Error(err))
		return err
	}
	return nil
}

// Load はスナップショットを返す。壊れたスナップショットは削除し、存在しないものとして扱う
func (s *SnapshotStore) Load(ctx context.Context, playerID uint) (game.GameState, bool, error) {
	stateJSON, err := s.rdb.Get(ctx, snapshotKey(playerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return game.GameState{}, false, nil
	}
	if err != nil {
		s.logger.Error("Failed to retrieve snapshot", zap.Uint("playerID", playerID), zap.Error(err))
		return game.GameState{}, false, err
	}

	var state game.GameState
	if err := json.Unmarshal(stateJSON, &state); err == nil {
		err = state.Validate()
		if err == nil && state.IsGameActive {
			return state, true, nil
		}
		s.logger.Warn("Discarding invalid snapshot", zap.Uint("playerID", playerID), zap.Error(err))
	} else {
		s.logger.Warn("Discarding corrupt snapshot", zap.Uint("playerID", playerID), zap.Error(err))
	}

	if err := s.Clear(ctx, playerID); err != nil {
		return game.GameState{}, false, err
	}
	return game.GameState{}, false, nil
}

func (s *SnapshotStore) Clear(ctx context.Context, playerID uint) error {
	if err := s.rdb.Del(ctx, snapshotKey(playerID)).Err(); err != nil {
		s.logger.Error("Failed to delete snapshot", zap.Uint("playerID", playerID), zap.Error(err))
		return err
	}
	return nil
}
