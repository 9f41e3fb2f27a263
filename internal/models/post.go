package models

import "time"

// MaxTextLength bounds the body of both posts and comments.
const MaxTextLength = 120

// Post is the persisted shape of a post. The author is stored by
// reference; read responses use PostView instead.
type Post struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Comment is the persisted shape of a comment. Its lifetime is bound
// to the parent post.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	AuthorID  string    `json:"authorId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Like is a relation between exactly one user and one post. At most
// one row exists per (user, post) pair.
type Like struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	PostID    string    `json:"postId"`
	CreatedAt time.Time `json:"createdAt"`
}

// PostView is the denormalized read-side shape of a post: author,
// comment authors, and liking users expanded to their public fields.
type PostView struct {
	ID        string        `json:"id"`
	Text      string        `json:"text"`
	Author    UserSummary   `json:"author"`
	CreatedAt time.Time     `json:"created"`
	Comments  []CommentView `json:"comments"`
	Likes     []UserSummary `json:"likes"`
}

// CommentView is the denormalized read-side shape of a comment.
type CommentView struct {
	ID        string      `json:"id"`
	Text      string      `json:"text"`
	Author    UserSummary `json:"author"`
	CreatedAt time.Time   `json:"created"`
}
