package interaction

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/urcuisine/urcuisine/internal/metrics"
	"github.com/urcuisine/urcuisine/post"
	"github.com/urcuisine/urcuisine/session"
)

// Remote sends reactions to the API and returns the authoritative counters.
type Remote interface {
	Like(ctx context.Context, postID string) (post.Counts, error)
	Dislike(ctx context.Context, postID string) (post.Counts, error)
}

// Observer is called whenever a post's state changes, including the
// speculative apply.
type Observer func(postID string, s State)

// Reconciler owns the InteractionState of every loaded post and is the only
// thing that mutates it. Toggles on one post run strictly one after another;
// toggles on different posts run concurrently.
type Reconciler struct {
	remote    Remote
	logger    *slog.Logger
	metrics   *metrics.Metrics
	timeout   time.Duration
	observers []Observer

	mu    sync.Mutex
	posts map[string]*entry
	// turns holds one slot per post ID, taken by the toggle in flight. Slots
	// outlive Seed and Discard so a reloaded post still queues behind a
	// toggle started before the reload.
	turns map[string]chan struct{}
}

type entry struct {
	state State
}

// pendingMutation is the snapshot taken before a speculative apply. It lives
// for exactly one toggle and is settled exactly once.
type pendingMutation struct {
	postID string
	kind   Kind
	prior  State
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) ReconcilerOption {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

// WithRequestTimeout bounds each remote call. Zero leaves the bound to the
// Remote implementation.
func WithRequestTimeout(d time.Duration) ReconcilerOption {
	return func(r *Reconciler) {
		r.timeout = d
	}
}

// WithObserver registers fn for state changes.
func WithObserver(fn Observer) ReconcilerOption {
	return func(r *Reconciler) {
		r.observers = append(r.observers, fn)
	}
}

// NewReconciler returns a Reconciler sending reactions through remote.
func NewReconciler(remote Remote, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		remote: remote,
		posts:  make(map[string]*entry),
		turns:  make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.logger = r.logger.With("component", "interaction")
	return r
}

// Seed registers a loaded post with its initial state, replacing any earlier
// registration. A toggle still in flight for the replaced registration
// settles into it and is not visible through the new one.
func (r *Reconciler) Seed(postID string, s State) {
	r.mu.Lock()
	r.posts[postID] = &entry{state: s}
	r.mu.Unlock()
	r.notify(postID, s)
}

// Discard forgets a post's state, typically when its view goes away. A
// toggle still in flight for it keeps the post's turn until it settles.
func (r *Reconciler) Discard(postID string) {
	r.mu.Lock()
	delete(r.posts, postID)
	r.mu.Unlock()
}

// State returns the current state of a seeded post.
func (r *Reconciler) State(postID string) (State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.posts[postID]
	if !ok {
		return State{}, false
	}
	return e.state, true
}

// Toggle flips the viewer's kind reaction on postID.
//
// Without a signed-in user nothing changes, the API is not contacted and
// session.ErrUnauthenticated is returned. Otherwise the speculative state is
// applied immediately, then the API call decides between reconcile (counters
// overwritten, flags kept) and rollback (prior state restored verbatim).
//
// A toggle waiting behind another on the same post gives up if ctx ends.
// Once its request is sent it always runs to settlement, regardless of ctx.
func (r *Reconciler) Toggle(ctx context.Context, sess session.Session, kind Kind, postID string) (State, error) {
	if kind != Like && kind != Dislike {
		return State{}, fmt.Errorf("%w: %d", ErrUnknownKind, kind)
	}
	if !sess.Authenticated() {
		r.metrics.Toggle(kind.String(), metrics.OutcomeUnauthenticated)
		s, _ := r.State(postID)
		return s, session.ErrUnauthenticated
	}

	r.mu.Lock()
	_, ok := r.posts[postID]
	turn := r.turnLocked(postID)
	r.mu.Unlock()
	if !ok {
		return State{}, fmt.Errorf("%w: %s", ErrUnknownPost, postID)
	}

	select {
	case turn <- struct{}{}:
	case <-ctx.Done():
		s, _ := r.State(postID)
		return s, ctx.Err()
	}
	defer func() { <-turn }()

	// The post may have been re-seeded or discarded while this toggle waited.
	r.mu.Lock()
	e, ok := r.posts[postID]
	r.mu.Unlock()
	if !ok {
		return State{}, fmt.Errorf("%w: %s", ErrUnknownPost, postID)
	}

	pm := r.apply(e, postID, kind)

	counts, err := r.send(context.WithoutCancel(ctx), kind, postID)
	if err != nil {
		s := r.rollback(e, pm)
		r.logger.Warn("reaction rolled back",
			slog.String("post_id", postID),
			slog.String("kind", kind.String()),
			slog.String("error", err.Error()))
		return s, fmt.Errorf("%s post %s: %w", kind, postID, err)
	}
	return r.reconcile(e, pm, counts), nil
}

func (r *Reconciler) apply(e *entry, postID string, kind Kind) pendingMutation {
	r.mu.Lock()
	pm := pendingMutation{postID: postID, kind: kind, prior: e.state}
	e.state = e.state.Next(kind)
	next := e.state
	r.mu.Unlock()
	r.notify(postID, next)
	return pm
}

func (r *Reconciler) reconcile(e *entry, pm pendingMutation, counts post.Counts) State {
	r.mu.Lock()
	e.state.Likes = counts.Likes
	e.state.Dislikes = counts.Dislikes
	s := e.state
	r.mu.Unlock()
	r.metrics.Toggle(pm.kind.String(), metrics.OutcomeReconciled)
	r.notify(pm.postID, s)
	return s
}

func (r *Reconciler) rollback(e *entry, pm pendingMutation) State {
	r.mu.Lock()
	e.state = pm.prior
	r.mu.Unlock()
	r.metrics.Toggle(pm.kind.String(), metrics.OutcomeRolledBack)
	r.notify(pm.postID, pm.prior)
	return pm.prior
}

func (r *Reconciler) send(ctx context.Context, kind Kind, postID string) (post.Counts, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	if kind == Like {
		return r.remote.Like(ctx, postID)
	}
	return r.remote.Dislike(ctx, postID)
}

func (r *Reconciler) turnLocked(postID string) chan struct{} {
	turn, ok := r.turns[postID]
	if !ok {
		turn = make(chan struct{}, 1)
		r.turns[postID] = turn
	}
	return turn
}

func (r *Reconciler) notify(postID string, s State) {
	for _, fn := range r.observers {
		fn(postID, s)
	}
}
