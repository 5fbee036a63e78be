// Package post holds the recipe post models shared by the remote client,
// the interaction reconciler and the comment appender.
package post

import (
	"slices"
	"time"
)

// Counts are the authoritative like/dislike counters of a post.
type Counts struct {
	Likes    uint64
	Dislikes uint64
}

// Comment is a single comment on a post.
type Comment struct {
	ID        string
	AuthorID  string
	Author    string
	Text      string
	CreatedAt time.Time
}

// Post is a recipe post as returned by the API.
type Post struct {
	ID          string
	AuthorID    string
	Title       string
	Description string
	VideoURL    string
	Recipe      string
	Country     string
	Counts      Counts
	Comments    []Comment
}

// Detail is a post together with the viewer's reaction lists. The lists are
// empty when the API did not recognise the viewer.
type Detail struct {
	Post         Post
	LikesList    []string
	DislikesList []string
}

// LikedByViewer reports whether the viewer's like list contains the post.
func (d Detail) LikedByViewer() bool {
	return slices.Contains(d.LikesList, d.Post.ID)
}

// DislikedByViewer reports whether the viewer's dislike list contains the post.
func (d Detail) DislikedByViewer() bool {
	return slices.Contains(d.DislikesList, d.Post.ID)
}
