package auth

import (
	"github.com/hitoshi/boardman/internal/model"
)

// Outcome は認証系の処理結果の種別。
type Outcome int

const (
	// OutcomeSuccess はバックエンドが処理を受け付けたことを表す。
	OutcomeSuccess Outcome = iota
	// OutcomeRejected はバックエンドが応答し、処理を拒否したことを表す。
	OutcomeRejected
	// OutcomeTransportFailed はリクエストが完了しなかったことを表す。
	OutcomeTransportFailed
)

// String はメトリクスのラベルにも使う文字列表現を返す。
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRejected:
		return "rejected"
	case OutcomeTransportFailed:
		return "transport_error"
	default:
		return "unknown"
	}
}

// Result は成功・拒否・通信失敗のいずれかを保持する。
// 呼び出し元はOutcomeで分岐し、失敗の種類を取り違えないようにする。
type Result[T any] struct {
	Outcome   Outcome
	Value     T
	Rejection *model.ErrorEnvelope
	Err       error
}

// Succeeded は成功の結果を返す。
func Succeeded[T any](v T) Result[T] {
	return Result[T]{Outcome: OutcomeSuccess, Value: v}
}

// Rejected はバックエンドの拒否を保持する結果を返す。
func Rejected[T any](env *model.ErrorEnvelope) Result[T] {
	if env == nil {
		env = model.NewGenericRejection()
	}
	return Result[T]{Outcome: OutcomeRejected, Rejection: env}
}

// TransportFailed は通信失敗の結果を返す。
func TransportFailed[T any](err error) Result[T] {
	return Result[T]{Outcome: OutcomeTransportFailed, Err: err}
}

// OK は成功の場合にtrueを返す。
func (r Result[T]) OK() bool {
	return r.Outcome == OutcomeSuccess
}

// Failure はプレゼンテーション層に渡すエラーエンベロープを返す。
// 拒否はバックエンドの内容をそのまま、通信失敗は汎用メッセージに置き換える。
// 成功の場合はnilを返す。
func (r Result[T]) Failure() *model.ErrorEnvelope {
	switch r.Outcome {
	case OutcomeRejected:
		return r.Rejection
	case OutcomeTransportFailed:
		return model.NewGenericRejection()
	default:
		return nil
	}
}
