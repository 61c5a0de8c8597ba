// Package storage 把回合结果持久化到 Redis：最近回合列表与按标签区分的累计排行榜。
package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/palemoky/sketchers/internal/game/session"
	"github.com/palemoky/sketchers/internal/protocol"
)

const (
	// Redis key 前缀，后接会话标签
	historyKeyPrefix     = "sketchers:rounds:"
	leaderboardKeyPrefix = "sketchers:leaderboard:"

	// 排行榜单次查询上限
	maxLeaderboardLimit = 100
)

// RedisStore Redis 存储
type RedisStore struct {
	client      *redis.Client
	historySize int64
}

// NewRedisStore 创建 Redis 存储，historySize 为每个标签保留的回合记录数
func NewRedisStore(client *redis.Client, historySize int) *RedisStore {
	return &RedisStore{client: client, historySize: int64(max(historySize, 1))}
}

// RecordRound 追加回合记录并累加排行榜，实现 session.RoundRecorder
func (rs *RedisStore) RecordRound(ctx context.Context, result session.RoundResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("序列化回合记录失败: %w", err)
	}

	historyKey := historyKeyPrefix + result.Tag
	boardKey := leaderboardKeyPrefix + result.Tag

	pipe := rs.client.TxPipeline()
	pipe.RPush(ctx, historyKey, data)
	pipe.LTrim(ctx, historyKey, -rs.historySize, -1)
	for nick, points := range result.Points {
		if points > 0 {
			pipe.ZIncrBy(ctx, boardKey, float64(points), nick)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("写入回合记录失败: %w", err)
	}
	return nil
}

// RecentRounds 最近 limit 条回合记录，旧的在前
func (rs *RedisStore) RecentRounds(ctx context.Context, tag string, limit int) ([]session.RoundResult, error) {
	if limit <= 0 {
		return nil, nil
	}
	raw, err := rs.client.LRange(ctx, historyKeyPrefix+tag, int64(-limit), -1).Result()
	if err != nil {
		return nil, err
	}

	rounds := make([]session.RoundResult, 0, len(raw))
	for _, item := range raw {
		var r session.RoundResult
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			return nil, fmt.Errorf("反序列化回合记录失败: %w", err)
		}
		rounds = append(rounds, r)
	}
	return rounds, nil
}

// Top 排行榜前 limit 名，实现 types.Leaderboard
func (rs *RedisStore) Top(ctx context.Context, tag string, limit int) ([]protocol.LeaderboardEntry, error) {
	if limit <= 0 {
		return []protocol.LeaderboardEntry{}, nil
	}
	limit = min(limit, maxLeaderboardLimit)

	members, err := rs.client.ZRevRangeWithScores(ctx, leaderboardKeyPrefix+tag, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]protocol.LeaderboardEntry, 0, len(members))
	for i, m := range members {
		nick, _ := m.Member.(string)
		entries = append(entries, protocol.LeaderboardEntry{
			Rank:  i + 1,
			Nick:  nick,
			Score: int64(m.Score),
		})
	}
	return entries, nil
}

// Ping 检查连接
func (rs *RedisStore) Ping(ctx context.Context) error {
	return rs.client.Ping(ctx).Err()
}
