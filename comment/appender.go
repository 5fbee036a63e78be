// Package comment submits comments on posts. Unlike reactions, comments are
// not optimistic: the thread only changes after the API has accepted the
// comment, so a failure leaves nothing to undo.
package comment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/urcuisine/urcuisine/internal/metrics"
	"github.com/urcuisine/urcuisine/post"
	"github.com/urcuisine/urcuisine/session"
)

var (
	// ErrEmptyComment is returned for comments that are empty after trimming.
	ErrEmptyComment = errors.New("comment is empty")
	// ErrNoThread is returned when Submit is given no thread to append to.
	ErrNoThread = errors.New("comment thread is nil")
)

// Remote creates comments through the API.
type Remote interface {
	AddComment(ctx context.Context, postID, text string) (post.Comment, error)
}

// Appender submits comments and prepends accepted ones to their thread.
type Appender struct {
	remote  Remote
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures an Appender.
type Option func(*Appender)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Appender) {
		a.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Appender) {
		a.metrics = m
	}
}

// NewAppender returns an Appender posting through remote.
func NewAppender(remote Remote, opts ...Option) *Appender {
	a := &Appender{remote: remote}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	a.logger = a.logger.With("component", "comment")
	return a
}

// Submit posts text on the thread's post. The text is NFC-normalised and
// trimmed first. Without a signed-in user it returns
// session.ErrUnauthenticated; with empty text ErrEmptyComment; with a nil
// thread ErrNoThread. None of these reach the API.
func (a *Appender) Submit(ctx context.Context, sess session.Session, thread *post.Thread, text string) (post.Comment, error) {
	if thread == nil {
		return post.Comment{}, ErrNoThread
	}
	if !sess.Authenticated() {
		a.metrics.Comment(metrics.OutcomeUnauthenticated)
		return post.Comment{}, session.ErrUnauthenticated
	}
	text = strings.TrimSpace(norm.NFC.String(text))
	if text == "" {
		a.metrics.Comment(metrics.OutcomeRejected)
		return post.Comment{}, ErrEmptyComment
	}

	c, err := a.remote.AddComment(ctx, thread.PostID(), text)
	if err != nil {
		a.metrics.Comment(metrics.OutcomeFailed)
		a.logger.Warn("comment submission failed",
			slog.String("post_id", thread.PostID()),
			slog.String("error", err.Error()))
		return post.Comment{}, fmt.Errorf("comment on post %s: %w", thread.PostID(), err)
	}

	thread.Prepend(c)
	a.metrics.Comment(metrics.OutcomeAppended)
	return c, nil
}
