package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/boardman/internal/database"
	"github.com/hitoshi/boardman/internal/model"
	"github.com/redis/go-redis/v9"
)

// PostgresSessionRepoはSessionRepositoryインターフェースを満たすことを検証
func TestPostgresSessionRepo_ImplementsInterface(t *testing.T) {
	var _ SessionRepository = (*PostgresSessionRepo)(nil)
}

// RedisSessionRepoはSessionRepositoryインターフェースを満たすことを検証
func TestRedisSessionRepo_ImplementsInterface(t *testing.T) {
	var _ SessionRepository = (*RedisSessionRepo)(nil)
}

func TestNewPostgresSessionRepo_Initializes(t *testing.T) {
	if repo := NewPostgresSessionRepo(nil); repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// setupPostgresRepo はTEST_DATABASE_URLのPostgreSQLにマイグレーションを適用する。
// 未設定・接続不可の場合はスキップする。
func setupPostgresRepo(t *testing.T) SessionRepository {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL が未設定のためスキップ")
	}
	db, err := database.Open(dbURL)
	if err != nil {
		t.Fatalf("データベースのオープンに失敗: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Ping(); err != nil {
		t.Skipf("テスト用データベースに接続できません（スキップ）: %v", err)
	}
	if err := database.RunMigrations(dbURL); err != nil {
		t.Fatalf("マイグレーション実行に失敗: %v", err)
	}
	truncateSessions(t, db)
	return NewPostgresSessionRepo(db)
}

func truncateSessions(t *testing.T, db *sql.DB) {
	t.Helper()
	if _, err := db.Exec(`TRUNCATE sessions`); err != nil {
		t.Fatalf("sessionsのクリアに失敗: %v", err)
	}
}

// setupRedisRepo はTEST_REDIS_URLのRedisに接続する。未設定の場合はスキップする。
func setupRedisRepo(t *testing.T) SessionRepository {
	t.Helper()
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("TEST_REDIS_URL が未設定のためスキップ")
	}
	client, err := database.NewRedisClient(redisURL)
	if err != nil {
		t.Fatalf("Redisクライアント生成に失敗: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	if err := database.PingRedis(context.Background(), client); err != nil {
		t.Skipf("テスト用Redisに接続できません（スキップ）: %v", err)
	}
	return NewRedisSessionRepo(client)
}

func newTestSession(ttl time.Duration) *model.Session {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &model.Session{
		ID: uuid.NewString(),
		User: model.SessionUser{
			ID:           "u1",
			Name:         "Kim",
			Image:        "/files/kim.png",
			AccessToken:  "at",
			RefreshToken: "rt",
		},
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// sessionRepoContract は両実装に共通する振る舞いを検証する。
func sessionRepoContract(t *testing.T, repo SessionRepository) {
	ctx := context.Background()

	t.Run("作成したセッションを取得できる", func(t *testing.T) {
		s := newTestSession(time.Hour)
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("Create に失敗: %v", err)
		}
		got, err := repo.FindByID(ctx, s.ID)
		if err != nil {
			t.Fatalf("FindByID に失敗: %v", err)
		}
		if got == nil {
			t.Fatal("作成したセッションが見つからない")
		}
		if got.User != s.User {
			t.Errorf("User = %+v, want %+v", got.User, s.User)
		}
		if !got.ExpiresAt.Equal(s.ExpiresAt) {
			t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, s.ExpiresAt)
		}
	})

	t.Run("存在しないIDはnilを返す", func(t *testing.T) {
		got, err := repo.FindByID(ctx, uuid.NewString())
		if err != nil {
			t.Fatalf("FindByID に失敗: %v", err)
		}
		if got != nil {
			t.Errorf("got = %+v, want nil", got)
		}
	})

	t.Run("UpdateUserは射影を置き換える", func(t *testing.T) {
		s := newTestSession(time.Hour)
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("Create に失敗: %v", err)
		}
		updated := s.User
		updated.Name = "Alice"
		if err := repo.UpdateUser(ctx, s.ID, updated); err != nil {
			t.Fatalf("UpdateUser に失敗: %v", err)
		}
		got, _ := repo.FindByID(ctx, s.ID)
		if got == nil || got.User.Name != "Alice" {
			t.Fatalf("got = %+v", got)
		}
		if got.User.AccessToken != "at" || got.User.ID != "u1" {
			t.Errorf("IDとトークンが変わってはならない: %+v", got.User)
		}
	})

	t.Run("存在しないセッションのUpdateUserはErrSessionNotFound", func(t *testing.T) {
		err := repo.UpdateUser(ctx, uuid.NewString(), model.SessionUser{Name: "x"})
		if !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("err = %v, want ErrSessionNotFound", err)
		}
	})

	t.Run("DeleteByID後は取得できない", func(t *testing.T) {
		s := newTestSession(time.Hour)
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("Create に失敗: %v", err)
		}
		if err := repo.DeleteByID(ctx, s.ID); err != nil {
			t.Fatalf("DeleteByID に失敗: %v", err)
		}
		got, _ := repo.FindByID(ctx, s.ID)
		if got != nil {
			t.Errorf("削除後もセッションが残っている: %+v", got)
		}
		if err := repo.DeleteByID(ctx, s.ID); err != nil {
			t.Errorf("2回目の削除でエラー: %v", err)
		}
	})
}

func TestPostgresSessionRepo_Contract(t *testing.T) {
	sessionRepoContract(t, setupPostgresRepo(t))
}

func TestPostgresSessionRepo_DeleteExpired(t *testing.T) {
	repo := setupPostgresRepo(t)
	ctx := context.Background()

	expired := newTestSession(-time.Minute)
	live := newTestSession(time.Hour)
	for _, s := range []*model.Session{expired, live} {
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("Create に失敗: %v", err)
		}
	}

	if got, _ := repo.FindByID(ctx, expired.ID); got != nil {
		t.Error("期限切れセッションが取得できてしまう")
	}

	n, err := repo.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("DeleteExpired に失敗: %v", err)
	}
	if n != 1 {
		t.Errorf("削除件数 = %d, want 1", n)
	}
	if got, _ := repo.FindByID(ctx, live.ID); got == nil {
		t.Error("有効なセッションまで削除された")
	}
}

func TestRedisSessionRepo_Contract(t *testing.T) {
	sessionRepoContract(t, setupRedisRepo(t))
}

func TestRedisSessionRepo_CreateExpiredFails(t *testing.T) {
	repo := NewRedisSessionRepo(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}))
	if err := repo.Create(context.Background(), newTestSession(-time.Second)); err == nil {
		t.Error("期限切れのセッション作成でエラーにならなかった")
	}
}

func TestRedisSessionRepo_UpdateKeepsTTL(t *testing.T) {
	repo := setupRedisRepo(t).(*RedisSessionRepo)
	ctx := context.Background()

	s := newTestSession(time.Hour)
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("Create に失敗: %v", err)
	}
	if err := repo.UpdateUser(ctx, s.ID, s.User); err != nil {
		t.Fatalf("UpdateUser に失敗: %v", err)
	}
	ttl, err := repo.client.TTL(ctx, sessionKey(s.ID)).Result()
	if err != nil {
		t.Fatalf("TTL取得に失敗: %v", err)
	}
	if ttl <= 0 || ttl > time.Hour {
		t.Errorf("TTL = %v, want (0, 1h]", ttl)
	}
}

func TestRedisSessionRepo_DeleteExpiredIsNoop(t *testing.T) {
	repo := NewRedisSessionRepo(nil)
	n, err := repo.DeleteExpired(context.Background())
	if err != nil || n != 0 {
		t.Errorf("DeleteExpired = (%d, %v), want (0, nil)", n, err)
	}
}
