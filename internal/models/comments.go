package models

import "time"

// Comment — плоская запись комментария в том виде, в каком её отдаёт API.
// ParentID == nil — комментарий верхнего уровня.
type Comment struct {
	ID              string    `json:"id"`
	AuthorFirstName string    `json:"author_first_name"`
	AuthorLastName  string    `json:"author_last_name"`
	BlogID          string    `json:"blog_id"`
	Content         string    `json:"content"`
	CreatedAt       time.Time `json:"created_at"`
	ModifiedAt      time.Time `json:"modified_at"`
	ParentID        *string   `json:"parent_id"`
}

// IsTopLevel сообщает, может ли комментарий владеть списком ответов.
func (c Comment) IsTopLevel() bool { return c.ParentID == nil }

// CreateCommentRequest — создание комментария или ответа (если задан ParentID).
type CreateCommentRequest struct {
	Content  string  `json:"content"`
	ParentID *string `json:"parent_id,omitempty"`
}

type UpdateCommentRequest struct {
	Content string `json:"content"`
}
