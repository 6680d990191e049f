package model

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sort"
)

// Envelope はバックエンドAPIの統一レスポンス形式。
// 成功時はok=1とitem（単一または一覧）、失敗時はok=0とmessage・errorsを持つ。
type Envelope[T any] struct {
	Ok         int         `json:"ok"`
	Item       T           `json:"item"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Message    string      `json:"message,omitempty"`
	Errors     FieldErrors `json:"errors,omitempty"`

	// Status はレスポンスのHTTPステータスコード。ボディには含まれない。
	Status int `json:"-"`
}

// IsSuccess はバックエンドが処理を受け付けた場合にtrueを返す。
func (e *Envelope[T]) IsSuccess() bool {
	return e != nil && e.Ok == 1
}

// IsNotFound はバックエンドが対象なしと応答した場合にtrueを返す。
func (e *Envelope[T]) IsNotFound() bool {
	return e != nil && e.Ok != 1 && e.Status == http.StatusNotFound
}

// Rejection は失敗エンベロープをitemの型に依存しない形に変換する。
func (e *Envelope[T]) Rejection() *ErrorEnvelope {
	if e == nil {
		return nil
	}
	return &ErrorEnvelope{
		Ok:      e.Ok,
		Message: e.Message,
		Errors:  e.Errors,
		Status:  e.Status,
	}
}

// ErrorEnvelope はバックエンドの拒否応答。
// フィールド単位のバリデーションメッセージをそのままUIに渡すために使う。
type ErrorEnvelope struct {
	Ok      int         `json:"ok"`
	Message string      `json:"message,omitempty"`
	Errors  FieldErrors `json:"errors,omitempty"`
	Status  int         `json:"-"`
}

// FieldMessage は指定フィールドのバリデーションメッセージを返す。
func (e *ErrorEnvelope) FieldMessage(field string) string {
	if e == nil {
		return ""
	}
	return e.Errors[field].Msg
}

// FieldError はフィールド単位のバリデーションエラー。
type FieldError struct {
	Type     string `json:"type,omitempty"`
	Value    any    `json:"value,omitempty"`
	Msg      string `json:"msg"`
	Path     string `json:"path,omitempty"`
	Location string `json:"location,omitempty"`
}

// FieldErrors はフィールド名をキーにしたバリデーションエラーの集合。
// バックエンドはオブジェクト形式とpath付きの配列形式のどちらかで返す。
type FieldErrors map[string]FieldError

// UnmarshalJSON はオブジェクト形式と配列形式の両方を受け付ける。
func (fe *FieldErrors) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*fe = nil
		return nil
	}

	if data[0] == '[' {
		var list []FieldError
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		out := make(FieldErrors, len(list))
		for _, e := range list {
			if e.Path == "" {
				continue
			}
			// 同じフィールドの2件目以降は最初のメッセージを優先する
			if _, exists := out[e.Path]; !exists {
				out[e.Path] = e
			}
		}
		*fe = out
		return nil
	}

	var m map[string]FieldError
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	for k, v := range m {
		if v.Path == "" {
			v.Path = k
			m[k] = v
		}
	}
	*fe = m
	return nil
}

// Fields はエラーを持つフィールド名をソートして返す。
func (fe FieldErrors) Fields() []string {
	fields := make([]string, 0, len(fe))
	for k := range fe {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}

// Pagination は一覧レスポンスのページ情報。
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// FileRecord はファイルアップロードの結果。
type FileRecord struct {
	Name         string `json:"name"`
	OriginalName string `json:"originalname,omitempty"`
	Path         string `json:"path"`
}

// RefreshResponse はアクセストークン再発行APIのレスポンス。
type RefreshResponse struct {
	Ok          int         `json:"ok"`
	AccessToken string      `json:"accessToken"`
	Message     string      `json:"message,omitempty"`
	Errors      FieldErrors `json:"errors,omitempty"`
	Status      int         `json:"-"`
}
