package comment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urcuisine/urcuisine/post"
	"github.com/urcuisine/urcuisine/session"
)

var viewer = session.Session{User: &session.Identity{ID: "u1", Name: "Ava"}}

type fakeRemote struct {
	calls    int
	lastText string
	err      error
}

func (f *fakeRemote) AddComment(_ context.Context, postID, text string) (post.Comment, error) {
	f.calls++
	f.lastText = text
	if f.err != nil {
		return post.Comment{}, f.err
	}
	return post.Comment{
		ID:        "c-new",
		AuthorID:  "u1",
		Author:    "Ava",
		Text:      text,
		CreatedAt: time.Unix(1_700_000_000, 0),
	}, nil
}

func TestSubmitPrepends(t *testing.T) {
	remote := &fakeRemote{}
	a := NewAppender(remote)
	thread := post.NewThread("p1", []post.Comment{{ID: "c1"}, {ID: "c2"}})

	c, err := a.Submit(t.Context(), viewer, thread, "  Tried it, loved it  ")
	require.NoError(t, err)
	assert.Equal(t, "c-new", c.ID)
	assert.Equal(t, "Tried it, loved it", remote.lastText)

	got := thread.Comments()
	require.Len(t, got, 3)
	assert.Equal(t, "c-new", got[0].ID)
	assert.Equal(t, "c2", got[1].ID)
}

func TestSubmitNormalizesText(t *testing.T) {
	remote := &fakeRemote{}
	a := NewAppender(remote)

	// "e" followed by a combining acute accent composes to a single rune.
	_, err := a.Submit(t.Context(), viewer, post.NewThread("p1", nil), "cre\u0301me bru\u0302le\u0301e")
	require.NoError(t, err)
	assert.Equal(t, "cr\u00e9me br\u00fbl\u00e9e", remote.lastText)
}

func TestSubmitUnauthenticated(t *testing.T) {
	remote := &fakeRemote{}
	a := NewAppender(remote)
	thread := post.NewThread("p1", nil)

	_, err := a.Submit(t.Context(), session.Session{}, thread, "hello")
	require.ErrorIs(t, err, session.ErrUnauthenticated)
	assert.Equal(t, 0, remote.calls)
	assert.Equal(t, 0, thread.Len())
}

func TestSubmitEmpty(t *testing.T) {
	remote := &fakeRemote{}
	a := NewAppender(remote)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := a.Submit(t.Context(), viewer, post.NewThread("p1", nil), text)
		require.ErrorIs(t, err, ErrEmptyComment)
	}
	assert.Equal(t, 0, remote.calls)
}

func TestSubmitNilThread(t *testing.T) {
	remote := &fakeRemote{}
	a := NewAppender(remote)

	_, err := a.Submit(t.Context(), viewer, nil, "hello")
	require.ErrorIs(t, err, ErrNoThread)
	assert.Equal(t, 0, remote.calls)
}

func TestSubmitRemoteFailure(t *testing.T) {
	boom := errors.New("502 bad gateway")
	remote := &fakeRemote{err: boom}
	a := NewAppender(remote)
	thread := post.NewThread("p1", []post.Comment{{ID: "c1"}})

	_, err := a.Submit(t.Context(), viewer, thread, "hello")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, remote.calls)
	assert.Equal(t, []post.Comment{{ID: "c1"}}, thread.Comments())
}
