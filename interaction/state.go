// Package interaction implements the optimistic like/dislike toggle. A toggle
// is applied locally at once, sent to the API, and then either reconciled
// with the server's counters or rolled back to the exact prior state.
package interaction

import (
	"github.com/urcuisine/urcuisine/post"
)

// Kind is the reaction being toggled.
type Kind int

const (
	Like Kind = iota + 1
	Dislike
)

func (k Kind) String() string {
	switch k {
	case Like:
		return "like"
	case Dislike:
		return "dislike"
	default:
		return "unknown"
	}
}

// State is one viewer's view of a post's reactions. Liked and Disliked are
// never both true.
type State struct {
	Likes    uint64
	Dislikes uint64
	Liked    bool
	Disliked bool
}

// Seed builds the initial state from a freshly loaded post detail. If the
// API reports the post in both of the viewer's lists, the like wins.
func Seed(d post.Detail) State {
	liked := d.LikedByViewer()
	return State{
		Likes:    d.Post.Counts.Likes,
		Dislikes: d.Post.Counts.Dislikes,
		Liked:    liked,
		Disliked: !liked && d.DislikedByViewer(),
	}
}

// Next returns the speculative state after toggling k. Counters never go
// below zero.
func (s State) Next(k Kind) State {
	n := s
	switch k {
	case Like:
		switch {
		case s.Liked:
			n.Liked = false
			n.Likes = dec(s.Likes)
		case s.Disliked:
			n.Liked, n.Disliked = true, false
			n.Likes++
			n.Dislikes = dec(s.Dislikes)
		default:
			n.Liked = true
			n.Likes++
		}
	case Dislike:
		switch {
		case s.Disliked:
			n.Disliked = false
			n.Dislikes = dec(s.Dislikes)
		case s.Liked:
			n.Liked, n.Disliked = false, true
			n.Likes = dec(s.Likes)
			n.Dislikes++
		default:
			n.Disliked = true
			n.Dislikes++
		}
	}
	return n
}

// Counts returns the state's counters.
func (s State) Counts() post.Counts {
	return post.Counts{Likes: s.Likes, Dislikes: s.Dislikes}
}

func dec(v uint64) uint64 {
	if v == 0 {
		return 0
	}
	return v - 1
}
