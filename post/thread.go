package post

import (
	"slices"
	"sync"
)

// Thread is the comment sequence of one post, most recent first.
// It is safe for concurrent use.
type Thread struct {
	postID string

	mu       sync.RWMutex
	comments []Comment
}

// NewThread returns a thread for postID seeded with comments, which the API
// returns oldest first.
func NewThread(postID string, comments []Comment) *Thread {
	seeded := slices.Clone(comments)
	slices.Reverse(seeded)
	return &Thread{postID: postID, comments: seeded}
}

// PostID returns the ID of the post the thread belongs to.
func (t *Thread) PostID() string {
	return t.postID
}

// Prepend adds c at the head of the thread.
func (t *Thread) Prepend(c Comment) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.comments = slices.Insert(t.comments, 0, c)
}

// Comments returns a copy of the thread, most recent first.
func (t *Thread) Comments() []Comment {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.comments)
}

// Len returns the number of comments in the thread.
func (t *Thread) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.comments)
}
