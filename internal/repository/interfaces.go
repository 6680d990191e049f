// Package repository はセッションデータの永続化を提供する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/boardman/internal/model"
)

// ErrSessionNotFound は対象のセッションが存在しないか期限切れであることを表す。
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository はセッションデータの永続化インターフェース。
// 各メソッドはストア上で1回の操作として完結する。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。見つからない・期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// UpdateUser はセッションのユーザー射影を置き換える。
	// セッションがない場合はErrSessionNotFoundを返す。
	UpdateUser(ctx context.Context, id string, user model.SessionUser) error
	// DeleteByID は指定IDのセッションを削除する。存在しない場合もエラーにしない。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は期限切れのセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}
