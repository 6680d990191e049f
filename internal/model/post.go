package model

// Post は掲示板の投稿を表す。
type Post struct {
	ID           ID       `json:"_id"`
	Type         string   `json:"type"`
	Title        string   `json:"title"`
	Content      string   `json:"content,omitempty"` // 未サニタイズのHTML
	User         PostUser `json:"user"`
	Views        int      `json:"views"`
	RepliesCount int      `json:"repliesCount"`
	CreatedAt    string   `json:"createdAt"`
	UpdatedAt    string   `json:"updatedAt,omitempty"`
}

// PostUser は投稿者の概要。
type PostUser struct {
	ID    ID     `json:"_id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// PostQuery は投稿一覧の取得条件。
type PostQuery struct {
	Type  string
	Page  int
	Limit int
}
