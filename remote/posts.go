package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/urcuisine/urcuisine/post"
)

// Wire shapes follow the API's Go field names.
type wireComment struct {
	ID      string `json:"ID"`
	UserID  string `json:"UserID"`
	Name    string `json:"Name"`
	Text    string `json:"Text"`
	Created int64  `json:"Created"`
}

type wirePost struct {
	ID          string        `json:"ID"`
	UserID      string        `json:"UserID"`
	Title       string        `json:"Title"`
	Description string        `json:"Description"`
	VideoURL    string        `json:"VideoURL"`
	Recipe      string        `json:"Recipe"`
	Country     string        `json:"Country"`
	Likes       int64         `json:"Likes"`
	Dislikes    int64         `json:"Dislikes"`
	Comments    []wireComment `json:"Comments"`
}

type wireDetail struct {
	Post        json.RawMessage `json:"post"`
	LikesList   []string        `json:"likesList"`
	DislikeList []string        `json:"dislikeList"`
}

type countsResponse struct {
	Likes    int64 `json:"likes"`
	Dislikes int64 `json:"dislikes"`
}

type commentRequest struct {
	Text string `json:"text"`
}

func (w wireComment) model() post.Comment {
	c := post.Comment{ID: w.ID, AuthorID: w.UserID, Author: w.Name, Text: w.Text}
	if w.Created > 0 {
		c.CreatedAt = time.Unix(w.Created, 0)
	}
	return c
}

func (w wirePost) model() post.Post {
	p := post.Post{
		ID:          w.ID,
		AuthorID:    w.UserID,
		Title:       w.Title,
		Description: w.Description,
		VideoURL:    w.VideoURL,
		Recipe:      w.Recipe,
		Country:     w.Country,
		Counts:      post.Counts{Likes: clampCount(w.Likes), Dislikes: clampCount(w.Dislikes)},
	}
	for _, c := range w.Comments {
		p.Comments = append(p.Comments, c.model())
	}
	return p
}

func clampCount(v int64) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}

func postPath(postID, suffix string) string {
	return "/posts/" + url.PathEscape(postID) + suffix
}

// Post loads a post. For a recognised viewer the API also returns the
// viewer's like and dislike lists; otherwise they are empty.
func (c *Client) Post(ctx context.Context, postID string) (post.Detail, error) {
	body, err := c.send(ctx, http.MethodGet, postPath(postID, ""), nil)
	if err != nil {
		return post.Detail{}, err
	}

	var wd wireDetail
	if err := json.Unmarshal(body, &wd); err != nil {
		return post.Detail{}, fmt.Errorf("%w: decoding post %s: %v", ErrNetwork, postID, err)
	}
	raw := body
	if len(wd.Post) > 0 && string(wd.Post) != "null" {
		raw = wd.Post
	}
	var wp wirePost
	if err := json.Unmarshal(raw, &wp); err != nil {
		return post.Detail{}, fmt.Errorf("%w: decoding post %s: %v", ErrNetwork, postID, err)
	}
	return post.Detail{
		Post:         wp.model(),
		LikesList:    wd.LikesList,
		DislikesList: wd.DislikeList,
	}, nil
}

// Like toggles the viewer's like and returns the post's counters.
func (c *Client) Like(ctx context.Context, postID string) (post.Counts, error) {
	return c.react(ctx, postID, "/like")
}

// Dislike toggles the viewer's dislike and returns the post's counters.
func (c *Client) Dislike(ctx context.Context, postID string) (post.Counts, error) {
	return c.react(ctx, postID, "/dislike")
}

func (c *Client) react(ctx context.Context, postID, suffix string) (post.Counts, error) {
	var resp countsResponse
	if err := c.do(ctx, http.MethodPost, postPath(postID, suffix), nil, &resp); err != nil {
		return post.Counts{}, err
	}
	return post.Counts{Likes: clampCount(resp.Likes), Dislikes: clampCount(resp.Dislikes)}, nil
}

// AddComment posts a comment and returns the stored record.
func (c *Client) AddComment(ctx context.Context, postID, text string) (post.Comment, error) {
	var resp wireComment
	if err := c.do(ctx, http.MethodPost, postPath(postID, "/comments"), commentRequest{Text: text}, &resp); err != nil {
		return post.Comment{}, err
	}
	return resp.model(), nil
}
