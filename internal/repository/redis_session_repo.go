package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/boardman/internal/model"
	"github.com/redis/go-redis/v9"
)

// sessionKeyPrefix はRedis上のセッションキーの接頭辞。
const sessionKeyPrefix = "boardman:session:"

// redisSession はRedisに保存するセッションの表現。
type redisSession struct {
	User      model.SessionUser `json:"user"`
	ExpiresAt time.Time         `json:"expiresAt"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// RedisSessionRepo はRedisを使用したセッションリポジトリ。
// 期限切れはキーのTTLで管理する。
type RedisSessionRepo struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewRedisSessionRepo はRedisSessionRepoを生成する。
func NewRedisSessionRepo(client redis.UniversalClient) *RedisSessionRepo {
	return &RedisSessionRepo{client: client, now: time.Now}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

// Create はセッションを作成する。有効期限をキーのTTLとして設定する。
func (r *RedisSessionRepo) Create(ctx context.Context, session *model.Session) error {
	ttl := session.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("session %s is already expired", session.ID)
	}
	data, err := json.Marshal(redisSession{
		User:      session.User,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(session.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindByID は指定IDのセッションを取得する。キーがない場合はnilを返す。
func (r *RedisSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	var rs redisSession
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &model.Session{
		ID:        id,
		User:      rs.User,
		ExpiresAt: rs.ExpiresAt,
		CreatedAt: rs.CreatedAt,
		UpdatedAt: rs.UpdatedAt,
	}, nil
}

// UpdateUser はセッションのユーザー射影を置き換える。
// 既存キーのTTLを保ったまま上書きする（SET XX KEEPTTL）。
func (r *RedisSessionRepo) UpdateUser(ctx context.Context, id string, user model.SessionUser) error {
	current, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return ErrSessionNotFound
	}

	data, err := json.Marshal(redisSession{
		User:      user,
		ExpiresAt: current.ExpiresAt,
		CreatedAt: current.CreatedAt,
		UpdatedAt: r.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	err = r.client.SetArgs(ctx, sessionKey(id), data, redis.SetArgs{
		Mode:    "XX",
		KeepTTL: true,
	}).Err()
	if errors.Is(err, redis.Nil) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

// DeleteByID は指定IDのセッションを削除する。
func (r *RedisSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired はTTLで自動削除されるため何もしない。
func (r *RedisSessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	return 0, nil
}

// compile-time interface check
var _ SessionRepository = (*RedisSessionRepo)(nil)
